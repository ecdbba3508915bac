// Package decode turns bank asset files into stereo float32 clips at the
// engine sample rate.
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cbegin/vpsaudio-go/internal/dsp"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNotWAV            = errors.New("not a valid WAV file")
	ErrNotPCM            = errors.New("only integer PCM WAV is supported")
	ErrNoChannels        = errors.New("audio has no channels")
)

// Clip is a decoded sound held fully in memory as interleaved stereo samples.
type Clip struct {
	Name       string
	SampleRate int
	Samples    []float32
}

// Frames returns the clip length in stereo frames.
func (c *Clip) Frames() int {
	return len(c.Samples) / 2
}

// Decode picks a decoder from the file extension (.wav, .mp3, .ogg) and
// converts the result to stereo at sampleRate.
func Decode(name string, data []byte, sampleRate int) (*Clip, error) {
	var (
		pcm      []float32
		channels int
		rate     int
		err      error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		pcm, channels, rate, err = decodeWAV(data)
	case ".mp3":
		pcm, channels, rate, err = decodeMP3(data)
	case ".ogg", ".oga":
		pcm, channels, rate, err = decodeOgg(data)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	stereo, err := toStereo(pcm, channels)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if sampleRate > 0 && rate != sampleRate {
		stereo = dsp.Resample(stereo, 2, rate, sampleRate)
		rate = sampleRate
	}
	return &Clip{Name: name, SampleRate: rate, Samples: stereo}, nil
}

func decodeWAV(data []byte) ([]float32, int, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, 0, ErrNotWAV
	}
	if dec.WavAudioFormat != 1 {
		return nil, 0, 0, ErrNotPCM
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	scale := float32(int64(1) << (dec.BitDepth - 1))
	if dec.BitDepth == 8 {
		// 8-bit WAV is unsigned.
		out := make([]float32, len(buf.Data))
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
		return out, int(dec.NumChans), int(dec.SampleRate), nil
	}
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out, int(dec.NumChans), int(dec.SampleRate), nil
}

func decodeMP3(data []byte) ([]float32, int, int, error) {
	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, err
	}
	// go-mp3 always emits 16-bit little-endian stereo.
	out := make([]float32, len(raw)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return out, 2, dec.SampleRate(), nil
}

func decodeOgg(data []byte) ([]float32, int, int, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	return pcm, format.Channels, format.SampleRate, nil
}

func toStereo(pcm []float32, channels int) ([]float32, error) {
	switch {
	case channels <= 0:
		return nil, ErrNoChannels
	case channels == 2:
		return pcm, nil
	case channels == 1:
		out := make([]float32, len(pcm)*2)
		for i, s := range pcm {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out, nil
	}
	// Keep the first two channels of surround material.
	frames := len(pcm) / channels
	out := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		out[2*f] = pcm[f*channels]
		out[2*f+1] = pcm[f*channels+1]
	}
	return out, nil
}

// EncodeWAV writes interleaved stereo samples as 16-bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}
