// Package sequencer holds the playback state of a session: whether the intro
// has finished, which bass variation plays next and which drum loops run.
// It drives an Engine and owns nothing the engine plays.
package sequencer

import (
	"fmt"
	"strings"
)

// Engine is the subset of the audio engine the sequencer drives.
type Engine interface {
	IsActive(cue string) (bool, error)
	Begin(cue string) error
	End(cue string) error
	Event(name string) (EventInstance, error)
	SetParameter(name string, value float64) error
}

// EventInstance is a one-shot event ready to be pitched and started.
type EventInstance interface {
	SetPitch(semitones float64) error
	Start() error
}

// Rand returns a uniform integer in [0, n).
type Rand interface {
	IntN(n int) int
}

// Config names the cues, events and parameters the sequencer uses.
type Config struct {
	IntroCue      string
	IntroSegment  int
	BassCue       string
	BassParam     string
	DrumCues      [3]string
	RolloverEvent string
	// Scale holds semitone offsets from the rollover recording's pitch.
	Scale []float64
}

// BassPhases is the number of bass variations AdvanceBass cycles through.
// The bass parameter takes the values 0 to BassPhases-1.
const BassPhases = 3

// RolloverScale is the pentatonic scale around the E rollover ding:
// C D E G A C.
var RolloverScale = []float64{-4, -2, 0, 3, 5, 8}

func DefaultConfig() Config {
	return Config{
		IntroCue:      "android",
		IntroSegment:  1,
		BassCue:       "bass",
		BassParam:     "bassSequence",
		DrumCues:      [3]string{"drloop1", "drloop2", "drloop3"},
		RolloverEvent: "VPS2/VPS2/rollover",
		Scale:         RolloverScale,
	}
}

// Combo is one of the two-loop drum patterns used once the first three
// single-loop patterns have played.
type Combo int

const (
	ComboOneTwo Combo = iota
	ComboTwoThree
	ComboOneThree
	numCombos
)

func (c Combo) Pattern() Pattern {
	switch c {
	case ComboOneTwo:
		return PatternOf(1, 2)
	case ComboTwoThree:
		return PatternOf(2, 3)
	default:
		return PatternOf(1, 3)
	}
}

// Pattern is a set of drum loops numbered 1 to 3.
type Pattern uint8

func PatternOf(loops ...int) Pattern {
	var p Pattern
	for _, l := range loops {
		if l >= 1 && l <= 3 {
			p |= 1 << (l - 1)
		}
	}
	return p
}

func (p Pattern) Has(loop int) bool {
	return loop >= 1 && loop <= 3 && p&(1<<(loop-1)) != 0
}

// Loops returns the loop numbers in ascending order.
func (p Pattern) Loops() []int {
	var out []int
	for l := 1; l <= 3; l++ {
		if p.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

func (p Pattern) String() string {
	parts := make([]string, 0, 3)
	for _, l := range p.Loops() {
		parts = append(parts, fmt.Sprint(l))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// State is a snapshot of the session.
type State struct {
	IntroPlayed bool
	BassPhase   int
	DrumCounter int
	DrumPattern Pattern
}

// EventKind identifies sequencer transitions.
type EventKind int

const (
	EventIntroCompleted EventKind = iota
	EventBassAdvanced
	EventDrumsAdvanced
)

func (k EventKind) String() string {
	switch k {
	case EventIntroCompleted:
		return "intro-completed"
	case EventBassAdvanced:
		return "bass-advanced"
	case EventDrumsAdvanced:
		return "drums-advanced"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event reports a transition. BassPhase is the phase that was applied.
type Event struct {
	Kind      EventKind
	BassPhase int
	Pattern   Pattern
}

type Options struct {
	OnEvent func(Event)
}

// Sequencer is not safe for concurrent use.
type Sequencer struct {
	cfg     Config
	engine  Engine
	rng     Rand
	onEvent func(Event)
	state   State
}

func New(engine Engine, rng Rand, cfg Config) *Sequencer {
	return NewWithOptions(engine, rng, cfg, Options{})
}

func NewWithOptions(engine Engine, rng Rand, cfg Config, opts Options) *Sequencer {
	if len(cfg.Scale) == 0 {
		cfg.Scale = RolloverScale
	}
	return &Sequencer{cfg: cfg, engine: engine, rng: rng, onEvent: opts.OnEvent}
}

// Reset returns to the start of a session: intro not played, bass phase 0,
// no drum loops counted.
func (s *Sequencer) Reset() {
	s.state = State{}
}

func (s *Sequencer) State() State { return s.state }

// OnSegmentEnd starts the bass line the first time the intro segment
// finishes. Later reports are ignored.
func (s *Sequencer) OnSegmentEnd(segmentID int) error {
	if segmentID != s.cfg.IntroSegment || s.state.IntroPlayed {
		return nil
	}
	s.state.IntroPlayed = true
	if err := s.engine.SetParameter(s.cfg.BassParam, 0); err != nil {
		return err
	}
	if err := s.engine.Begin(s.cfg.BassCue); err != nil {
		return err
	}
	s.emit(Event{Kind: EventIntroCompleted})
	return nil
}

// AdvanceBass keeps the bass cue running and selects the next of the three
// variations. It does nothing until the intro has played.
func (s *Sequencer) AdvanceBass() error {
	if !s.state.IntroPlayed {
		return nil
	}
	active, err := s.engine.IsActive(s.cfg.BassCue)
	if err != nil {
		return err
	}
	if !active {
		if err := s.engine.Begin(s.cfg.BassCue); err != nil {
			return err
		}
	}
	phase := s.state.BassPhase
	if err := s.engine.SetParameter(s.cfg.BassParam, float64(phase)); err != nil {
		return err
	}
	s.state.BassPhase = (phase + 1) % BassPhases
	s.emit(Event{Kind: EventBassAdvanced, BassPhase: phase})
	return nil
}

// AdvanceDrums stops the running drum loops, then starts loops 1, 2 and 3
// alone on the first three calls and a random pair after that. It does
// nothing until the intro has played.
func (s *Sequencer) AdvanceDrums() error {
	if !s.state.IntroPlayed {
		return nil
	}
	for _, cue := range s.cfg.DrumCues {
		active, err := s.engine.IsActive(cue)
		if err != nil {
			return err
		}
		if active {
			if err := s.engine.End(cue); err != nil {
				return err
			}
		}
	}
	s.state.DrumPattern = 0

	s.state.DrumCounter++
	var next Pattern
	if s.state.DrumCounter <= 3 {
		next = PatternOf(s.state.DrumCounter)
	} else {
		next = Combo(s.rng.IntN(int(numCombos))).Pattern()
	}
	for _, l := range next.Loops() {
		if err := s.engine.Begin(s.cfg.DrumCues[l-1]); err != nil {
			return err
		}
		s.state.DrumPattern |= PatternOf(l)
	}
	s.emit(Event{Kind: EventDrumsAdvanced, Pattern: next})
	return nil
}

// PlayRollover plays up to three rollover dings, each pitched to a random
// scale step. A draw that repeats an earlier draw in the same call is
// skipped, so the first ding always sounds and no two share a pitch.
func (s *Sequencer) PlayRollover() error {
	var picked [3]int
	for i := range picked {
		k := s.rng.IntN(len(s.cfg.Scale))
		picked[i] = k
		repeat := false
		for j := 0; j < i; j++ {
			if picked[j] == k {
				repeat = true
			}
		}
		if repeat {
			continue
		}
		ev, err := s.engine.Event(s.cfg.RolloverEvent)
		if err != nil {
			return err
		}
		if err := ev.SetPitch(s.cfg.Scale[k]); err != nil {
			return err
		}
		if err := ev.Start(); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceAndroidTrack restarts the intro cue from its first segment.
func (s *Sequencer) AdvanceAndroidTrack() error {
	active, err := s.engine.IsActive(s.cfg.IntroCue)
	if err != nil {
		return err
	}
	if active {
		if err := s.engine.End(s.cfg.IntroCue); err != nil {
			return err
		}
	}
	return s.engine.Begin(s.cfg.IntroCue)
}

func (s *Sequencer) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
