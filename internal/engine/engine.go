// Package engine is the audio engine behind a session: it loads a sound bank,
// plays one-shot events and interactive music cues through the mixer, and
// reports finished segments to the host on Update.
//
// Host-side methods are not safe for concurrent use; callers serialize them.
// Audio is pulled from the mixer on the output's own goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/cbegin/vpsaudio-go/internal/audio"
	"github.com/cbegin/vpsaudio-go/internal/bank"
	"github.com/cbegin/vpsaudio-go/internal/decode"
	"github.com/cbegin/vpsaudio-go/internal/effects"
	"github.com/cbegin/vpsaudio-go/internal/mixer"
)

// Output receives the mixed stream once the bank is loaded.
type Output interface {
	Start(source audio.SampleSource) error
	Close() error
}

// Rand picks among an event's files.
type Rand interface {
	IntN(n int) int
}

type Config struct {
	SampleRate   int
	BufferLength int // frames per DSP buffer
	NumBuffers   int
	MaxVoices    int
	Manifest     *bank.Manifest // nil uses bank.Default
	// Prefetch names events checked during Init so a missing one fails the
	// session up front instead of on first use.
	Prefetch []string
	Logger   *slog.Logger
	Rand     Rand
	// Output plays the mix. Nil leaves the engine offline; pull audio with
	// Render.
	Output Output
}

func DefaultConfig() Config {
	return Config{
		SampleRate:   44100,
		BufferLength: 256,
		NumBuffers:   8,
		MaxVoices:    64,
		Prefetch:     []string{bank.EventDings},
	}
}

type Engine struct {
	cfg  Config
	log  *slog.Logger
	rng  Rand
	mix  *mixer.Mixer
	trim *effects.Gain

	manifest    *bank.Manifest
	clips       map[string]*decode.Clip
	tracks      map[string]*mixer.Track
	initialized bool
	outputOn    bool
	onSegment   func(segmentID int) error
}

func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.BufferLength <= 0 {
		cfg.BufferLength = def.BufferLength
	}
	if cfg.NumBuffers <= 0 {
		cfg.NumBuffers = def.NumBuffers
	}
	if cfg.MaxVoices <= 0 {
		cfg.MaxVoices = def.MaxVoices
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	trim := &effects.Gain{Level: 1}
	master := effects.NewChain(trim, effects.NewLimiter(cfg.SampleRate, -0.5, 0, 60))
	return &Engine{
		cfg:  cfg,
		log:  log,
		rng:  rng,
		trim: trim,
		mix:  mixer.New(cfg.SampleRate, cfg.MaxVoices, master),
	}
}

// Init loads the bank from fsys and starts the output, if any.
func (e *Engine) Init(ctx context.Context, fsys fs.FS) error {
	const op = "init"
	if e.initialized {
		return newError(op, StatusAlreadyInitialized, "")
	}
	e.log.Debug("create event system", "sample_rate", e.cfg.SampleRate)
	e.log.Debug("set dsp buffer size", "length", e.cfg.BufferLength, "buffers", e.cfg.NumBuffers)
	e.log.Debug("init event system", "max_voices", e.cfg.MaxVoices)

	m := e.cfg.Manifest
	if m == nil {
		m = bank.Default()
	}
	if err := m.Validate(); err != nil {
		return wrapError(op, StatusBadManifest, err)
	}
	for _, name := range e.cfg.Prefetch {
		if _, ok := m.Events[name]; !ok {
			return newError(op, StatusEventNotFound, name)
		}
		e.log.Debug("prefetch event", "event", name)
	}

	e.log.Debug("load bank", "bank", m.Name)
	clips, err := bank.LoadClips(ctx, fsys, m.Files(), e.cfg.SampleRate)
	if err != nil {
		return wrapError(op, loadStatus(err), err)
	}

	e.log.Debug("prepare cues", "cues", len(m.Cues))
	tracks := make(map[string]*mixer.Track, len(m.Cues))
	for name, cue := range m.Cues {
		t := &mixer.Track{Name: name, Loop: cue.Loop, Param: cue.Parameter, Gain: float32(cue.Volume)}
		for _, seg := range cue.Segments {
			clip := clips[seg.File]
			if clip == nil || clip.Frames() == 0 {
				return newError(op, StatusFormat, fmt.Sprintf("cue %q segment %d: %s has no audio", name, seg.ID, seg.File))
			}
			t.Segments = append(t.Segments, mixer.Segment{ID: seg.ID, Clip: clip})
		}
		tracks[name] = t
	}
	for name, p := range m.Parameters {
		e.mix.SetParam(name, p.Default)
	}

	e.trim.Level = 1
	if m.Gain > 0 {
		e.trim.Level = float32(m.Gain)
	}
	e.manifest = m
	e.clips = clips
	e.tracks = tracks
	if e.cfg.Output != nil {
		if err := e.cfg.Output.Start(e.mix); err != nil {
			return wrapError(op, StatusOutput, err)
		}
		e.outputOn = true
	}
	e.initialized = true
	e.log.Debug("engine ready", "files", len(clips))
	return nil
}

func loadStatus(err error) Status {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return StatusFileNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusFormat
	}
}

// SetSegmentCallback registers the function Update calls for every finished
// segment.
func (e *Engine) SetSegmentCallback(fn func(segmentID int) error) {
	e.onSegment = fn
}

// Update delivers the segment ends queued since the previous call. Errors
// from the callback are joined; delivery continues past a failure.
func (e *Engine) Update() error {
	if !e.initialized {
		return newError("update", StatusNotInitialized, "")
	}
	ends := e.mix.DrainSegmentEnds()
	if e.onSegment == nil {
		return nil
	}
	var errs []error
	for _, end := range ends {
		if err := e.onSegment(end.SegmentID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release stops all sound and closes the output. The engine may be
// initialized again afterwards.
func (e *Engine) Release() error {
	if !e.initialized {
		return nil
	}
	e.initialized = false
	e.mix.StopAll()
	e.clips = nil
	e.tracks = nil
	e.manifest = nil
	if e.outputOn {
		e.outputOn = false
		if err := e.cfg.Output.Close(); err != nil {
			return wrapError("release", StatusOutput, err)
		}
	}
	e.log.Debug("engine released")
	return nil
}

func (e *Engine) Initialized() bool { return e.initialized }

func (e *Engine) Manifest() *bank.Manifest { return e.manifest }

func (e *Engine) track(op, cue string) (*mixer.Track, error) {
	if !e.initialized {
		return nil, newError(op, StatusNotInitialized, cue)
	}
	t, ok := e.tracks[cue]
	if !ok {
		return nil, newError(op, StatusCueNotFound, cue)
	}
	return t, nil
}

func (e *Engine) IsActive(cue string) (bool, error) {
	if _, err := e.track("is active", cue); err != nil {
		return false, err
	}
	return e.mix.TrackActive(cue), nil
}

// Begin starts a cue. A cue that is already playing is left alone.
func (e *Engine) Begin(cue string) error {
	t, err := e.track("begin", cue)
	if err != nil {
		return err
	}
	if _, err := e.mix.StartTrack(t); err != nil {
		if errors.Is(err, mixer.ErrVoiceLimit) {
			return wrapError("begin", StatusVoiceLimit, err)
		}
		return wrapError("begin", StatusFormat, err)
	}
	return nil
}

// End stops a cue immediately.
func (e *Engine) End(cue string) error {
	if _, err := e.track("end", cue); err != nil {
		return err
	}
	e.mix.StopTrack(cue)
	return nil
}

// EventInstance is a prepared one-shot. It may be started more than once.
type EventInstance struct {
	e         *Engine
	name      string
	def       bank.Event
	semitones float64
}

// Event looks up a one-shot event by path.
func (e *Engine) Event(name string) (*EventInstance, error) {
	if !e.initialized {
		return nil, newError("get event", StatusNotInitialized, name)
	}
	def, ok := e.manifest.Events[name]
	if !ok {
		return nil, newError("get event", StatusEventNotFound, name)
	}
	return &EventInstance{e: e, name: name, def: def}, nil
}

func (ev *EventInstance) Name() string { return ev.name }

// SetPitch sets the playback pitch in semitones relative to the recording.
func (ev *EventInstance) SetPitch(semitones float64) error {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return newError("set pitch", StatusInvalidParam, fmt.Sprintf("%s: %v", ev.name, semitones))
	}
	ev.semitones = semitones
	return nil
}

func (ev *EventInstance) Pitch() float64 { return ev.semitones }

// Start plays one of the event's files, chosen at random when there are
// several.
func (ev *EventInstance) Start() error {
	e := ev.e
	if !e.initialized {
		return newError("start event", StatusNotInitialized, ev.name)
	}
	file := ev.def.Files[0]
	if n := len(ev.def.Files); n > 1 {
		file = ev.def.Files[e.rng.IntN(n)]
	}
	gain := float32(1)
	if ev.def.Volume != 0 {
		gain = float32(ev.def.Volume)
	}
	if _, err := e.mix.PlayOneShot(e.clips[file], ev.semitones, gain); err != nil {
		if errors.Is(err, mixer.ErrVoiceLimit) {
			return wrapError("start event", StatusVoiceLimit, err)
		}
		return wrapError("start event", StatusFormat, fmt.Errorf("%s: %w", file, err))
	}
	return nil
}

// SetParameter sets a named parameter. Values outside the declared range are
// rejected.
func (e *Engine) SetParameter(name string, value float64) error {
	const op = "set parameter"
	if !e.initialized {
		return newError(op, StatusNotInitialized, name)
	}
	p, ok := e.manifest.Parameters[name]
	if !ok {
		return newError(op, StatusParamNotFound, name)
	}
	if math.IsNaN(value) || value < p.Min || value > p.Max {
		return newError(op, StatusInvalidParam, fmt.Sprintf("%s=%v outside [%v, %v]", name, value, p.Min, p.Max))
	}
	e.mix.SetParam(name, value)
	return nil
}

func (e *Engine) Parameter(name string) (float64, error) {
	if !e.initialized {
		return 0, newError("get parameter", StatusNotInitialized, name)
	}
	if _, ok := e.manifest.Parameters[name]; !ok {
		return 0, newError("get parameter", StatusParamNotFound, name)
	}
	v, _ := e.mix.Param(name)
	return v, nil
}

// Render mixes the next len(dst)/2 stereo frames. It is only valid when the
// engine has no output attached.
func (e *Engine) Render(dst []float32) error {
	if !e.initialized {
		return newError("render", StatusNotInitialized, "")
	}
	if e.outputOn {
		return newError("render", StatusOutput, "output device attached")
	}
	e.mix.Process(dst)
	return nil
}

func (e *Engine) SampleRate() int { return e.cfg.SampleRate }

// SetMasterVolume scales the mix before the master limiter.
func (e *Engine) SetMasterVolume(v float64) { e.mix.SetMasterVolume(v) }

func (e *Engine) MasterVolume() float64 { return e.mix.MasterVolume() }

func (e *Engine) ActiveVoices() int { return e.mix.ActiveVoices() }
