package vpsaudio

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Action names accepted by Do and ParseScript.
const (
	ActionStart    = "start"
	ActionScore    = "score"
	ActionRollover = "rollover"
	ActionBall     = "ball"
	ActionFlipper  = "flipper"
	ActionMessage  = "message"
	ActionBass     = "bass"
	ActionDrums    = "drums"
	ActionAndroid  = "android"
	ActionTick     = "tick"
	ActionWait     = "wait"
)

// Step is one entry of a trigger script: an action run Repeat times, or a
// pause when Action is ActionWait.
type Step struct {
	Action string
	Repeat int
	Wait   time.Duration
}

func (s Step) String() string {
	if s.Action == ActionWait {
		return "wait:" + s.Wait.String()
	}
	if s.Repeat > 1 {
		return fmt.Sprintf("%s*%d", s.Action, s.Repeat)
	}
	return s.Action
}

// ParseScript reads a comma-separated script such as
// "start,wait:2s,score*12,rollover". Score steps go through PlayScore so the
// music cadence applies.
func ParseScript(script string) ([]Step, error) {
	var steps []Step
	for _, field := range strings.Split(script, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(field, ActionWait+":"); ok {
			d, err := time.ParseDuration(rest)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("script step %q: bad duration", field)
			}
			steps = append(steps, Step{Action: ActionWait, Wait: d})
			continue
		}
		name, count, hasCount := strings.Cut(field, "*")
		step := Step{Action: name, Repeat: 1}
		if hasCount {
			n, err := strconv.Atoi(count)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("script step %q: bad repeat count", field)
			}
			step.Repeat = n
		}
		if !knownAction(step.Action) {
			return nil, fmt.Errorf("script step %q: unknown action %q", field, step.Action)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func knownAction(name string) bool {
	switch name {
	case ActionStart, ActionScore, ActionRollover, ActionBall, ActionFlipper,
		ActionMessage, ActionBass, ActionDrums, ActionAndroid, ActionTick:
		return true
	}
	return false
}

// Do runs a named action once.
func (b *Bridge) Do(action string) error {
	switch action {
	case ActionStart:
		return b.StartIntro()
	case ActionScore:
		return b.PlayScore()
	case ActionRollover:
		return b.TriggerRollover()
	case ActionBall:
		return b.TriggerBall()
	case ActionFlipper:
		return b.TriggerFlipper()
	case ActionMessage:
		return b.TriggerMessage()
	case ActionBass:
		return b.AdvanceBass()
	case ActionDrums:
		return b.AdvanceDrums()
	case ActionAndroid:
		return b.AdvanceAndroidTrack()
	case ActionTick:
		return b.Tick()
	}
	return fmt.Errorf("unknown action %q", action)
}

// Timeline schedules script steps against render time. Actions fire in
// order; a wait step holds the following steps until that much time has
// passed.
type Timeline struct {
	steps []Step
	next  int
	due   time.Duration
}

func NewTimeline(steps []Step) *Timeline {
	return &Timeline{steps: steps}
}

// Advance runs every step due at elapsed. It fits RenderSession's onTick.
func (t *Timeline) Advance(b *Bridge, elapsed time.Duration) error {
	for t.next < len(t.steps) && elapsed >= t.due {
		step := t.steps[t.next]
		t.next++
		if step.Action == ActionWait {
			t.due = elapsed + step.Wait
			continue
		}
		for i := 0; i < step.Repeat; i++ {
			if err := b.Do(step.Action); err != nil {
				return fmt.Errorf("%s: %w", step, err)
			}
		}
	}
	return nil
}

// Done reports whether every step has run.
func (t *Timeline) Done() bool { return t.next >= len(t.steps) }
