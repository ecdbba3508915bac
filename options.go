package vpsaudio

import (
	"log/slog"
	"time"

	intaudio "github.com/cbegin/vpsaudio-go/internal/audio"
	intbank "github.com/cbegin/vpsaudio-go/internal/bank"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// Output plays the mixed session audio. The default output is the system
// audio device.
type Output interface {
	Start(source SampleSource) error
	Close() error
}

// Rand is the random source used for drum combinations, rollover notes and
// multi-file events.
type Rand interface {
	IntN(n int) int
}

type Option func(*bridgeConfig)

// Cadence controls how PlayScore paces the music layers.
type Cadence struct {
	BassEvery  int // advance the bass every N scores
	DrumsEvery int // advance the drums every N scores
	// IntroEvery is the first interval for restarting the android track.
	// It grows by IntroGrowth after each restart.
	IntroEvery  int
	IntroGrowth int
}

func DefaultCadence() Cadence {
	return Cadence{BassEvery: 10, DrumsEvery: 12, IntroEvery: 10, IntroGrowth: 42}
}

type bridgeConfig struct {
	sampleRate     int
	bufferLength   int
	numBuffers     int
	maxVoices      int
	manifest       string
	rng            Rand
	logger         *slog.Logger
	output         Output
	offline        bool
	cadence        Cadence
	updateInterval time.Duration
	volume         float64
}

func defaultBridgeConfig() bridgeConfig {
	return bridgeConfig{
		sampleRate:     44100,
		bufferLength:   256,
		numBuffers:     8,
		maxVoices:      64,
		manifest:       intbank.DefaultManifestName,
		cadence:        DefaultCadence(),
		updateInterval: 50 * time.Millisecond,
		volume:         1,
	}
}

func WithSampleRate(rate int) Option {
	return func(cfg *bridgeConfig) {
		cfg.sampleRate = rate
	}
}

// WithBufferFrames sets the DSP buffer as length frames times count
// buffers. The device latency is length*count frames.
func WithBufferFrames(length, count int) Option {
	return func(cfg *bridgeConfig) {
		cfg.bufferLength = length
		cfg.numBuffers = count
	}
}

func WithMaxVoices(n int) Option {
	return func(cfg *bridgeConfig) {
		cfg.maxVoices = n
	}
}

// WithManifest names the bank manifest inside the media path. When the file
// is missing the built-in VPS2 layout is used.
func WithManifest(name string) Option {
	return func(cfg *bridgeConfig) {
		cfg.manifest = name
	}
}

func WithRand(r Rand) Option {
	return func(cfg *bridgeConfig) {
		cfg.rng = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *bridgeConfig) {
		cfg.logger = l
	}
}

// WithOutput replaces the system audio device.
func WithOutput(out Output) Option {
	return func(cfg *bridgeConfig) {
		cfg.output = out
		cfg.offline = false
	}
}

// WithOffline runs sessions without any output. Audio is pulled with Render.
func WithOffline() Option {
	return func(cfg *bridgeConfig) {
		cfg.output = nil
		cfg.offline = true
	}
}

func WithCadence(c Cadence) Option {
	return func(cfg *bridgeConfig) {
		cfg.cadence = c
	}
}

// WithUpdateInterval sets the period Run ticks the engine at.
func WithUpdateInterval(d time.Duration) Option {
	return func(cfg *bridgeConfig) {
		cfg.updateInterval = d
	}
}

// WithMasterVolume sets the initial volume scalar. 1.0 is unity.
func WithMasterVolume(v float64) Option {
	return func(cfg *bridgeConfig) {
		cfg.volume = v
	}
}

// engineOutput adapts an Output to the engine's output interface.
type engineOutput struct {
	out Output
}

func (o engineOutput) Start(source intaudio.SampleSource) error {
	return o.out.Start(source)
}

func (o engineOutput) Close() error {
	return o.out.Close()
}
