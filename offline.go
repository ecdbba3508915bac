package vpsaudio

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	intdecode "github.com/cbegin/vpsaudio-go/internal/decode"
)

// Render mixes the next len(dst)/2 stereo frames of an offline session.
func (b *Bridge) Render(dst []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	eng, err := b.sessionLocked("render")
	if err != nil {
		return err
	}
	return eng.Render(dst)
}

// RenderSession renders seconds of an offline session, ticking the engine
// once per update interval the way Run does in real time. onTick, if set,
// runs before each interval with the elapsed render time so a caller can
// fire triggers on a timeline.
func (b *Bridge) RenderSession(seconds float64, onTick func(elapsed time.Duration) error) ([]float32, error) {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, &AudioEngineError{Op: "render session", Status: StatusInvalidParam, Msg: fmt.Sprintf("duration %v", seconds)}
	}
	interval := b.cfg.updateInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	rate := b.cfg.sampleRate
	total := int(math.Round(seconds * float64(rate)))
	chunk := int(int64(rate) * int64(interval) / int64(time.Second))
	if chunk <= 0 {
		chunk = 1
	}
	out := make([]float32, total*2)
	for frame := 0; frame < total; frame += chunk {
		if onTick != nil {
			elapsed := time.Duration(int64(frame) * int64(time.Second) / int64(rate))
			if err := onTick(elapsed); err != nil {
				return out[:frame*2], err
			}
		}
		end := min(frame+chunk, total)
		if err := b.Render(out[frame*2 : end*2]); err != nil {
			return out[:frame*2], err
		}
		if err := b.Tick(); err != nil {
			return out[:end*2], err
		}
	}
	return out, nil
}

// EncodeWAV writes interleaved stereo samples as 16-bit PCM.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	return intdecode.EncodeWAV(w, samples, sampleRate)
}

// WriteWAV writes samples to a new WAV file at path.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
