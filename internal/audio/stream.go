// Package audio connects a SampleSource to the system audio device through
// ebiten's audio context.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream that ebiten's NewPlayerF32 reads.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	closed bool
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.EOF
	}

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// The ebiten audio context is process-wide and its rate cannot change once
// created, so every session shares it.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Device plays a SampleSource on the default output device.
type Device struct {
	sampleRate int
	bufferSize time.Duration

	mu     sync.Mutex
	player *ebitaudio.Player
	reader *StreamReader
}

// NewDevice prepares a device output. bufferFrames is the total device
// buffer in frames; zero keeps ebiten's default.
func NewDevice(sampleRate, bufferFrames int) *Device {
	d := &Device{sampleRate: sampleRate}
	if bufferFrames > 0 {
		d.bufferSize = time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate)
	}
	return d
}

// Start begins pulling from source. Calling Start again replaces the source.
func (d *Device) Start(source SampleSource) error {
	ctx, err := sharedAudioContext(d.sampleRate)
	if err != nil {
		return err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return err
	}
	if d.bufferSize > 0 {
		pl.SetBufferSize(d.bufferSize)
	}
	d.mu.Lock()
	old := d.player
	oldReader := d.reader
	d.player = pl
	d.reader = reader
	d.mu.Unlock()
	if old != nil {
		old.Pause()
		old.Close()
		oldReader.Close()
	}
	pl.Play()
	return nil
}

// Position returns the current playback position (what the listener hears).
func (d *Device) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return 0
	}
	return d.player.Position()
}

func (d *Device) Close() error {
	d.mu.Lock()
	pl, reader := d.player, d.reader
	d.player, d.reader = nil, nil
	d.mu.Unlock()
	if pl == nil {
		return nil
	}
	pl.Pause()
	if err := pl.Close(); err != nil {
		return err
	}
	return reader.Close()
}
