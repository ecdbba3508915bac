package vpsaudio

// AudioPlayer is the sound surface a game calls into. *Bridge implements it
// with the full music engine; NoOpPlayer is used when sound is off.
type AudioPlayer interface {
	PlayStart() error
	PlayBall() error
	PlayFlipper() error
	PlayScore() error
	PlayMessage(text string) error
	PlayRollover() error
}

var (
	_ AudioPlayer = (*Bridge)(nil)
	_ AudioPlayer = NoOpPlayer{}
)

// PlayStart is StartIntro.
func (b *Bridge) PlayStart() error { return b.StartIntro() }

func (b *Bridge) PlayBall() error { return b.TriggerBall() }

func (b *Bridge) PlayFlipper() error { return b.TriggerFlipper() }

func (b *Bridge) PlayRollover() error { return b.TriggerRollover() }

// NoOpPlayer ignores every call.
type NoOpPlayer struct{}

func (NoOpPlayer) PlayStart() error         { return nil }
func (NoOpPlayer) PlayBall() error          { return nil }
func (NoOpPlayer) PlayFlipper() error       { return nil }
func (NoOpPlayer) PlayScore() error         { return nil }
func (NoOpPlayer) PlayMessage(string) error { return nil }
func (NoOpPlayer) PlayRollover() error      { return nil }
