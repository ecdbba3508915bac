// Package vpsaudio is the audio bridge for the VPS2 pinball sound design.
// A host (game loop, UI, CLI) opens a session on a media path and calls the
// trigger entry points as game events happen; the bridge plays one-shot
// events and layers the android, bass and drum music cues on top of each
// other as the game progresses.
//
// Every entry point is safe for concurrent use and returns an
// *AudioEngineError when the engine rejects a call.
package vpsaudio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	intaudio "github.com/cbegin/vpsaudio-go/internal/audio"
	intbank "github.com/cbegin/vpsaudio-go/internal/bank"
	intengine "github.com/cbegin/vpsaudio-go/internal/engine"
	intseq "github.com/cbegin/vpsaudio-go/internal/sequencer"
)

type Bridge struct {
	mu     sync.Mutex
	cfg    bridgeConfig
	log    *slog.Logger
	rng    Rand
	engine *intengine.Engine
	seq    *intseq.Sequencer
	done   chan struct{}

	scores     int
	introEvery int

	eventCh   chan Event
	eventChMu sync.Mutex
}

func NewBridge(opts ...Option) (*Bridge, error) {
	cfg := defaultBridgeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if cfg.bufferLength <= 0 || cfg.numBuffers <= 0 {
		return nil, errors.New("buffer length and count must be positive")
	}
	if cfg.maxVoices <= 0 {
		return nil, errors.New("max voices must be positive")
	}
	if cfg.manifest == "" {
		cfg.manifest = intbank.DefaultManifestName
	}
	if cfg.volume < 0 {
		cfg.volume = 0
	}
	log := cfg.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rng := cfg.rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Bridge{cfg: cfg, log: log, rng: rng}, nil
}

// InitSession opens a session on the bank stored under mediaPath.
func (b *Bridge) InitSession(mediaPath string) error {
	return b.InitSessionFS(context.Background(), os.DirFS(mediaPath))
}

// InitSessionFS opens a session on the bank stored in fsys. The sequencer
// state and the score cadence start over.
func (b *Bridge) InitSessionFS(ctx context.Context, fsys fs.FS) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.engine != nil {
		return &AudioEngineError{Op: "init session", Status: StatusAlreadyInitialized}
	}
	manifest, err := b.loadManifest(fsys)
	if err != nil {
		return err
	}

	ecfg := intengine.Config{
		SampleRate:   b.cfg.sampleRate,
		BufferLength: b.cfg.bufferLength,
		NumBuffers:   b.cfg.numBuffers,
		MaxVoices:    b.cfg.maxVoices,
		Manifest:     manifest,
		Prefetch:     []string{intbank.EventDings},
		Logger:       b.log,
		Rand:         b.rng,
	}
	switch {
	case b.cfg.offline:
	case b.cfg.output != nil:
		ecfg.Output = engineOutput{out: b.cfg.output}
	default:
		ecfg.Output = intaudio.NewDevice(b.cfg.sampleRate, b.cfg.bufferLength*b.cfg.numBuffers)
	}
	eng := intengine.New(ecfg)

	scfg := intseq.DefaultConfig()
	if id, ok := manifest.SegmentID("android1"); ok {
		scfg.IntroSegment = id
	} else {
		b.log.Warn("intro segment missing from bank; bass will not start", "segment", "android1")
	}
	if p, ok := manifest.Parameters[scfg.BassParam]; ok && (p.Min > 0 || p.Max < intseq.BassPhases-1) {
		return &AudioEngineError{
			Op:     "init session",
			Status: StatusBadManifest,
			Msg:    fmt.Sprintf("parameter %s range [%v, %v] does not cover bass phases 0..%d", scfg.BassParam, p.Min, p.Max, intseq.BassPhases-1),
		}
	}
	seq := intseq.NewWithOptions(sequencerEngine{eng}, b.rng, scfg, intseq.Options{OnEvent: b.onSequencerEvent})
	eng.SetSegmentCallback(func(id int) error {
		b.sendEvent(Event{Kind: EventSegmentEnded, SegmentID: id})
		return seq.OnSegmentEnd(id)
	})

	if err := eng.Init(ctx, fsys); err != nil {
		return err
	}
	eng.SetMasterVolume(b.cfg.volume)
	b.engine = eng
	b.seq = seq
	b.scores = 0
	b.introEvery = b.cfg.cadence.IntroEvery
	b.done = make(chan struct{})
	b.log.Info("session started", "bank", manifest.Name, "sample_rate", b.cfg.sampleRate, "offline", ecfg.Output == nil)
	return nil
}

func (b *Bridge) loadManifest(fsys fs.FS) (*intbank.Manifest, error) {
	m, err := intbank.Load(fsys, b.cfg.manifest)
	if errors.Is(err, fs.ErrNotExist) {
		b.log.Info("no bank manifest; using built-in VPS2 layout", "manifest", b.cfg.manifest)
		return intbank.Default(), nil
	}
	if err != nil {
		return nil, &AudioEngineError{Op: "load manifest", Status: StatusBadManifest, Msg: b.cfg.manifest, Err: err}
	}
	return m, nil
}

// EndSession stops all sound, releases the engine and ends Run.
func (b *Bridge) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.engine == nil {
		return nil
	}
	err := b.engine.Release()
	b.engine = nil
	b.seq = nil
	close(b.done)
	b.log.Info("session ended")
	return err
}

// Active reports whether a session is open.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.engine != nil
}

func (b *Bridge) sessionLocked(op string) (*intengine.Engine, error) {
	if b.engine == nil {
		return nil, &AudioEngineError{Op: op, Status: StatusNotInitialized}
	}
	return b.engine, nil
}

// Tick runs one engine update: segment ends queued by the audio thread are
// delivered and may start the bass line.
func (b *Bridge) Tick() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	eng, err := b.sessionLocked("tick")
	if err != nil {
		return err
	}
	return eng.Update()
}

// Run calls Tick at the update interval until ctx is done or the session
// ends. A failing Tick stops the loop and its error is returned.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.engine == nil {
		b.mu.Unlock()
		return &AudioEngineError{Op: "run", Status: StatusNotInitialized}
	}
	done := b.done
	interval := b.cfg.updateInterval
	b.mu.Unlock()
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C:
			if err := b.Tick(); err != nil {
				if IsStatus(err, StatusNotInitialized) {
					return nil
				}
				return err
			}
		}
	}
}

func (b *Bridge) playEvent(op, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	eng, err := b.sessionLocked(op)
	if err != nil {
		return err
	}
	ev, err := eng.Event(name)
	if err != nil {
		return err
	}
	return ev.Start()
}

// StartIntro plays the startup sound.
func (b *Bridge) StartIntro() error {
	return b.playEvent("start intro", intbank.EventStartup)
}

// TriggerScore plays a bumper ding.
func (b *Bridge) TriggerScore() error {
	return b.playEvent("trigger score", intbank.EventDings)
}

func (b *Bridge) TriggerBall() error {
	return b.playEvent("trigger ball", intbank.EventBall)
}

func (b *Bridge) TriggerFlipper() error {
	return b.playEvent("trigger flipper", intbank.EventFlipper)
}

func (b *Bridge) TriggerMessage() error {
	return b.playEvent("trigger message", intbank.EventMessage)
}

func (b *Bridge) withSequencer(op string, fn func(*intseq.Sequencer) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.sessionLocked(op); err != nil {
		return err
	}
	return fn(b.seq)
}

// TriggerRollover plays up to three rollover dings on distinct notes.
func (b *Bridge) TriggerRollover() error {
	return b.withSequencer("trigger rollover", (*intseq.Sequencer).PlayRollover)
}

// AdvanceBass keeps the bass running and moves to the next variation. It
// does nothing before the intro has finished once.
func (b *Bridge) AdvanceBass() error {
	return b.withSequencer("advance bass", (*intseq.Sequencer).AdvanceBass)
}

// AdvanceDrums swaps the drum loops for the next pattern. It does nothing
// before the intro has finished once.
func (b *Bridge) AdvanceDrums() error {
	return b.withSequencer("advance drums", (*intseq.Sequencer).AdvanceDrums)
}

// AdvanceAndroidTrack restarts the android theme.
func (b *Bridge) AdvanceAndroidTrack() error {
	return b.withSequencer("advance android track", (*intseq.Sequencer).AdvanceAndroidTrack)
}

// State returns a snapshot of the session. It is the zero value when no
// session is open.
func (b *Bridge) State() SessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seq == nil {
		return SessionState{}
	}
	st := b.seq.State()
	return SessionState{
		IntroPlayed: st.IntroPlayed,
		BassPhase:   st.BassPhase,
		DrumCounter: st.DrumCounter,
		DrumPattern: st.DrumPattern,
		Scores:      b.scores,
	}
}

// SetMasterVolume sets the output volume scalar. 1.0 is unity; negative
// values clamp to 0.
func (b *Bridge) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.volume = volume
	if b.engine != nil {
		b.engine.SetMasterVolume(volume)
	}
}

func (b *Bridge) MasterVolume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.volume
}

// ActiveVoices returns the number of sounding voices, or 0 with no session.
func (b *Bridge) ActiveVoices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.engine == nil {
		return 0
	}
	return b.engine.ActiveVoices()
}

func (b *Bridge) SampleRate() int { return b.cfg.sampleRate }

// sequencerEngine narrows the engine's concrete event type to the
// sequencer's interface.
type sequencerEngine struct {
	*intengine.Engine
}

func (e sequencerEngine) Event(name string) (intseq.EventInstance, error) {
	ev, err := e.Engine.Event(name)
	if err != nil {
		return nil, err
	}
	return ev, nil
}
