package vpsaudio

import (
	"fmt"

	intseq "github.com/cbegin/vpsaudio-go/internal/sequencer"
)

// EventKind identifies session events delivered by Watch.
type EventKind int

const (
	// EventSegmentEnded: a music segment finished a pass. SegmentID is set.
	EventSegmentEnded EventKind = iota
	// EventIntroCompleted: the intro finished for the first time and the bass
	// line started.
	EventIntroCompleted
	// EventBassAdvanced: BassPhase holds the variation just selected.
	EventBassAdvanced
	// EventDrumsAdvanced: Pattern holds the loops now playing.
	EventDrumsAdvanced
)

func (k EventKind) String() string {
	switch k {
	case EventSegmentEnded:
		return "segment-ended"
	case EventIntroCompleted:
		return "intro-completed"
	case EventBassAdvanced:
		return "bass-advanced"
	case EventDrumsAdvanced:
		return "drums-advanced"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind      EventKind
	SegmentID int
	BassPhase int
	Pattern   DrumPattern
}

func (e Event) String() string {
	switch e.Kind {
	case EventSegmentEnded:
		return fmt.Sprintf("%s id=%d", e.Kind, e.SegmentID)
	case EventBassAdvanced:
		return fmt.Sprintf("%s phase=%d", e.Kind, e.BassPhase)
	case EventDrumsAdvanced:
		return fmt.Sprintf("%s loops=%s", e.Kind, e.Pattern)
	}
	return e.Kind.String()
}

// DrumPattern is the set of drum loops (1 to 3) playing.
type DrumPattern = intseq.Pattern

// SessionState is a snapshot of the sequencer.
type SessionState struct {
	IntroPlayed bool
	BassPhase   int
	DrumCounter int
	DrumPattern DrumPattern
	Scores      int
}

// Watch returns a channel that receives session events. The channel is
// buffered (cap 16) and events are dropped while it is full. Only the most
// recent Watch channel receives events.
func (b *Bridge) Watch() <-chan Event {
	ch := make(chan Event, 16)
	b.eventChMu.Lock()
	b.eventCh = ch
	b.eventChMu.Unlock()
	return ch
}

func (b *Bridge) sendEvent(ev Event) {
	b.eventChMu.Lock()
	ch := b.eventCh
	b.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Bridge) onSequencerEvent(ev intseq.Event) {
	switch ev.Kind {
	case intseq.EventIntroCompleted:
		b.sendEvent(Event{Kind: EventIntroCompleted})
	case intseq.EventBassAdvanced:
		b.sendEvent(Event{Kind: EventBassAdvanced, BassPhase: ev.BassPhase})
	case intseq.EventDrumsAdvanced:
		b.sendEvent(Event{Kind: EventDrumsAdvanced, Pattern: ev.Pattern})
	}
}
