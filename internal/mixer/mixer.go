// Package mixer sums one-shot and music voices into an interleaved stereo
// stream. It is pulled from the audio thread through Process and driven from
// the host thread through the Start/Stop/Set methods; a single mutex guards
// both sides.
package mixer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cbegin/vpsaudio-go/internal/decode"
	"github.com/cbegin/vpsaudio-go/internal/dsp"
	"github.com/cbegin/vpsaudio-go/internal/effects"
)

var (
	ErrVoiceLimit = errors.New("no free voice")
	ErrEmptyClip  = errors.New("empty clip")
)

// Segment is one region of a music track.
type Segment struct {
	ID   int
	Clip *decode.Clip
}

// Track is a music cue: a list of segments played back to back.
type Track struct {
	Name     string
	Segments []Segment
	// Loop keeps the track running after its last segment.
	Loop bool
	// Param names a mixer parameter whose integer value selects the segment
	// for each pass. Empty plays the segments in order.
	Param string
	Gain  float32
}

// SegmentEnd reports one completed pass through a segment.
type SegmentEnd struct {
	Track     string
	SegmentID int
}

type voiceKind int

const (
	kindOneShot voiceKind = iota
	kindMusic
)

type voice struct {
	id     uint64
	kind   voiceKind
	clip   *decode.Clip
	pos    float64
	rate   float64
	gain   float32
	track  *Track
	segIdx int
	done   bool
}

type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	maxVoices  int
	voices     []*voice
	music      map[string]*voice
	params     map[string]float64
	pending    []SegmentEnd
	volume     float32
	master     *effects.Chain
	nextID     uint64
}

// New creates a mixer. maxVoices bounds concurrent voices of both kinds.
func New(sampleRate, maxVoices int, master *effects.Chain) *Mixer {
	if maxVoices <= 0 {
		maxVoices = 64
	}
	return &Mixer{
		sampleRate: sampleRate,
		maxVoices:  maxVoices,
		music:      make(map[string]*voice),
		params:     make(map[string]float64),
		volume:     1,
		master:     master,
	}
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

// StartTrack begins a music track. It reports false when the track is
// already playing.
func (m *Mixer) StartTrack(t *Track) (bool, error) {
	if t == nil || len(t.Segments) == 0 {
		return false, errors.New("track has no segments")
	}
	for _, seg := range t.Segments {
		if seg.Clip == nil || seg.Clip.Frames() == 0 {
			return false, fmt.Errorf("track %s: segment %d: %w", t.Name, seg.ID, ErrEmptyClip)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.music[t.Name]; ok && !v.done {
		return false, nil
	}
	if len(m.voices) >= m.maxVoices && !m.stealOneShotLocked() {
		return false, ErrVoiceLimit
	}
	idx := m.selectSegmentLocked(t, -1)
	v := &voice{
		id:     m.allocID(),
		kind:   kindMusic,
		clip:   t.Segments[idx].Clip,
		rate:   1,
		gain:   trackGain(t),
		track:  t,
		segIdx: idx,
	}
	m.voices = append(m.voices, v)
	m.music[t.Name] = v
	return true, nil
}

// StopTrack stops a music track immediately. It reports whether the track
// was playing.
func (m *Mixer) StopTrack(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.music[name]
	if !ok {
		return false
	}
	wasPlaying := !v.done
	v.done = true
	delete(m.music, name)
	m.removeDoneLocked()
	return wasPlaying
}

// TrackActive reports whether the named track is still sounding.
func (m *Mixer) TrackActive(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.music[name]
	return ok && !v.done
}

// PlayOneShot starts a clip once, pitched by semitones. When every voice is
// busy the oldest one-shot is stolen.
func (m *Mixer) PlayOneShot(clip *decode.Clip, semitones float64, gain float32) (uint64, error) {
	if clip == nil || clip.Frames() == 0 {
		return 0, ErrEmptyClip
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.voices) >= m.maxVoices && !m.stealOneShotLocked() {
		return 0, ErrVoiceLimit
	}
	v := &voice{
		id:   m.allocID(),
		kind: kindOneShot,
		clip: clip,
		rate: dsp.SemitoneRatio(semitones),
		gain: gain,
	}
	m.voices = append(m.voices, v)
	return v.id, nil
}

// SetParam stores a parameter read by tracks at their segment boundaries.
func (m *Mixer) SetParam(name string, value float64) {
	m.mu.Lock()
	m.params[name] = value
	m.mu.Unlock()
}

func (m *Mixer) Param(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.params[name]
	return v, ok
}

// SetMasterVolume sets the output scalar. Negative values clamp to 0.
func (m *Mixer) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	m.mu.Lock()
	m.volume = float32(volume)
	m.mu.Unlock()
}

func (m *Mixer) MasterVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.volume)
}

// ActiveVoices returns the number of voices still sounding.
func (m *Mixer) ActiveVoices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// DrainSegmentEnds returns and clears the segment completions recorded by
// Process since the previous call.
func (m *Mixer) DrainSegmentEnds() []SegmentEnd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil
	}
	out := m.pending
	m.pending = nil
	return out
}

// StopAll silences every voice and forgets pending notices.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = nil
	m.music = make(map[string]*voice)
	m.pending = nil
	if m.master != nil {
		m.master.Reset()
	}
}

// Process renders interleaved stereo frames into dst.
func (m *Mixer) Process(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	frames := len(dst) / 2
	for _, v := range m.voices {
		m.renderVoiceLocked(v, dst, frames)
	}
	m.removeDoneLocked()
	if m.volume != 1 {
		for i := range dst {
			dst[i] *= m.volume
		}
	}
	m.master.ProcessBuffer(dst)
}

func (m *Mixer) renderVoiceLocked(v *voice, dst []float32, frames int) {
	for f := 0; f < frames && !v.done; f++ {
		if v.pos >= float64(v.clip.Frames()) && !m.advanceLocked(v) {
			break
		}
		l := dsp.SampleAt(v.clip.Samples, 2, v.pos, 0)
		r := dsp.SampleAt(v.clip.Samples, 2, v.pos, 1)
		dst[2*f] += l * v.gain
		dst[2*f+1] += r * v.gain
		v.pos += v.rate
	}
}

// advanceLocked handles the end of the voice's current clip. It reports
// whether the voice keeps playing.
func (m *Mixer) advanceLocked(v *voice) bool {
	if v.kind == kindOneShot {
		v.done = true
		return false
	}
	t := v.track
	m.pending = append(m.pending, SegmentEnd{Track: t.Name, SegmentID: t.Segments[v.segIdx].ID})
	last := v.segIdx == len(t.Segments)-1
	if t.Param == "" && last && !t.Loop {
		v.done = true
		return false
	}
	if t.Param != "" && !t.Loop {
		v.done = true
		return false
	}
	v.pos -= float64(v.clip.Frames())
	if v.pos < 0 {
		v.pos = 0
	}
	v.segIdx = m.selectSegmentLocked(t, v.segIdx)
	v.clip = t.Segments[v.segIdx].Clip
	return true
}

func (m *Mixer) selectSegmentLocked(t *Track, current int) int {
	if t.Param != "" {
		idx := int(m.params[t.Param])
		if idx < 0 {
			idx = 0
		}
		if idx >= len(t.Segments) {
			idx = len(t.Segments) - 1
		}
		return idx
	}
	return (current + 1) % len(t.Segments)
}

func (m *Mixer) stealOneShotLocked() bool {
	for i, v := range m.voices {
		if v.kind == kindOneShot {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Mixer) removeDoneLocked() {
	kept := m.voices[:0]
	for _, v := range m.voices {
		if v.done {
			if v.kind == kindMusic && m.music[v.track.Name] == v {
				delete(m.music, v.track.Name)
			}
			continue
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = kept
}

func (m *Mixer) allocID() uint64 {
	m.nextID++
	return m.nextID
}

func trackGain(t *Track) float32 {
	if t.Gain == 0 {
		return 1
	}
	return t.Gain
}
