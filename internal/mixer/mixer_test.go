package mixer

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/vpsaudio-go/internal/decode"
	"github.com/cbegin/vpsaudio-go/internal/effects"
)

func constClip(name string, frames int, value float32) *decode.Clip {
	s := make([]float32, frames*2)
	for i := range s {
		s[i] = value
	}
	return &decode.Clip{Name: name, SampleRate: 44100, Samples: s}
}

func TestOneShotPlaysOnceAndFrees(t *testing.T) {
	m := New(44100, 8, nil)
	if _, err := m.PlayOneShot(constClip("ding", 100, 0.5), 0, 1); err != nil {
		t.Fatalf("PlayOneShot: %v", err)
	}
	buf := make([]float32, 256*2)
	m.Process(buf)
	if math.Abs(float64(buf[2*50])-0.5) > 1e-6 {
		t.Fatalf("mid-clip sample = %v, want 0.5", buf[2*50])
	}
	if buf[2*150] != 0 {
		t.Fatalf("sample after clip end = %v, want 0", buf[2*150])
	}
	if got := m.ActiveVoices(); got != 0 {
		t.Fatalf("ActiveVoices = %d, want 0", got)
	}
}

func TestOneShotPitchShortensPlayback(t *testing.T) {
	m := New(44100, 8, nil)
	if _, err := m.PlayOneShot(constClip("ding", 100, 0.5), 12, 1); err != nil {
		t.Fatalf("PlayOneShot: %v", err)
	}
	buf := make([]float32, 100*2)
	m.Process(buf)
	if buf[2*45] == 0 {
		t.Fatal("expected sound before the octave-up clip ends")
	}
	if buf[2*60] != 0 {
		t.Fatalf("octave-up clip should end near frame 50, got %v at 60", buf[2*60])
	}
}

func TestNonLoopingTrackReportsSegmentEndOnce(t *testing.T) {
	m := New(44100, 8, nil)
	track := &Track{Name: "android", Segments: []Segment{{ID: 7, Clip: constClip("android1", 64, 0.1)}}}
	started, err := m.StartTrack(track)
	if err != nil || !started {
		t.Fatalf("StartTrack = %v, %v", started, err)
	}
	buf := make([]float32, 128*2)
	m.Process(buf)
	m.Process(buf)
	ends := m.DrainSegmentEnds()
	if len(ends) != 1 || ends[0] != (SegmentEnd{Track: "android", SegmentID: 7}) {
		t.Fatalf("segment ends = %+v", ends)
	}
	if m.TrackActive("android") {
		t.Fatal("non-looping track should be inactive after its last segment")
	}
	if ends := m.DrainSegmentEnds(); ends != nil {
		t.Fatalf("drain should clear notices, got %+v", ends)
	}
}

func TestLoopingTrackKeepsPlaying(t *testing.T) {
	m := New(44100, 8, nil)
	track := &Track{Name: "drloop1", Loop: true, Segments: []Segment{{ID: 20, Clip: constClip("d1", 50, 0.2)}}}
	if _, err := m.StartTrack(track); err != nil {
		t.Fatalf("StartTrack: %v", err)
	}
	buf := make([]float32, 200*2)
	m.Process(buf)
	if !m.TrackActive("drloop1") {
		t.Fatal("looping track should stay active")
	}
	if got := len(m.DrainSegmentEnds()); got != 3 {
		t.Fatalf("segment ends = %d, want 3", got)
	}
	if buf[2*199] == 0 {
		t.Fatal("looping track should still be sounding at buffer end")
	}
}

func TestStartTrackIsIdempotentWhileActive(t *testing.T) {
	m := New(44100, 8, nil)
	track := &Track{Name: "bass", Loop: true, Segments: []Segment{{ID: 1, Clip: constClip("b", 10, 0)}}}
	if ok, _ := m.StartTrack(track); !ok {
		t.Fatal("first StartTrack should start")
	}
	if ok, _ := m.StartTrack(track); ok {
		t.Fatal("second StartTrack should report already playing")
	}
	if got := m.ActiveVoices(); got != 1 {
		t.Fatalf("ActiveVoices = %d, want 1", got)
	}
}

func TestParamSelectsSegmentAtBoundary(t *testing.T) {
	m := New(44100, 8, nil)
	track := &Track{
		Name:  "bass",
		Loop:  true,
		Param: "bassSequence",
		Segments: []Segment{
			{ID: 10, Clip: constClip("bass1", 40, 0.1)},
			{ID: 11, Clip: constClip("bass2", 40, 0.2)},
			{ID: 12, Clip: constClip("bass3", 40, 0.3)},
		},
	}
	m.SetParam("bassSequence", 0)
	if _, err := m.StartTrack(track); err != nil {
		t.Fatalf("StartTrack: %v", err)
	}
	buf := make([]float32, 40*2)
	m.Process(buf)
	m.SetParam("bassSequence", 2)
	m.Process(buf)
	m.SetParam("bassSequence", 9) // clamps to the last segment
	m.Process(buf)
	m.Process(buf)
	ends := m.DrainSegmentEnds()
	want := []int{10, 12, 12}
	if len(ends) != len(want) {
		t.Fatalf("segment ends = %+v, want ids %v", ends, want)
	}
	for i, id := range want {
		if ends[i].SegmentID != id {
			t.Fatalf("end %d id = %d, want %d", i, ends[i].SegmentID, id)
		}
	}
	if v, ok := m.Param("bassSequence"); !ok || v != 9 {
		t.Fatalf("Param = %v, %v", v, ok)
	}
}

func TestStopTrack(t *testing.T) {
	m := New(44100, 8, nil)
	track := &Track{Name: "drloop2", Loop: true, Segments: []Segment{{ID: 21, Clip: constClip("d2", 10, 0.5)}}}
	m.StartTrack(track)
	if !m.StopTrack("drloop2") {
		t.Fatal("StopTrack should report the track was playing")
	}
	if m.TrackActive("drloop2") {
		t.Fatal("track still active after StopTrack")
	}
	if m.StopTrack("drloop2") {
		t.Fatal("stopping an idle track should report false")
	}
	buf := make([]float32, 16)
	m.Process(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d = %v after stop", i, s)
		}
	}
}

func TestVoiceStealing(t *testing.T) {
	m := New(44100, 2, nil)
	for i := 0; i < 3; i++ {
		if _, err := m.PlayOneShot(constClip("ding", 1000, 0.1), 0, 1); err != nil {
			t.Fatalf("one-shot %d: %v", i, err)
		}
	}
	if got := m.ActiveVoices(); got != 2 {
		t.Fatalf("ActiveVoices = %d, want 2", got)
	}

	full := New(44100, 1, nil)
	full.StartTrack(&Track{Name: "a", Loop: true, Segments: []Segment{{Clip: constClip("a", 10, 0)}}})
	if _, err := full.PlayOneShot(constClip("ding", 10, 0.1), 0, 1); !errors.Is(err, ErrVoiceLimit) {
		t.Fatalf("expected ErrVoiceLimit, got %v", err)
	}
}

func TestMasterVolumeAndChain(t *testing.T) {
	m := New(44100, 4, effects.NewChain(effects.NewLimiter(44100, 0, 0, 10)))
	m.PlayOneShot(constClip("loud", 64, 0.8), 0, 1)
	m.PlayOneShot(constClip("loud", 64, 0.8), 0, 1)
	buf := make([]float32, 32*2)
	m.Process(buf)
	if buf[10] > 1 {
		t.Fatalf("limiter should hold the sum at 1, got %v", buf[10])
	}
	m.SetMasterVolume(-1)
	if m.MasterVolume() != 0 {
		t.Fatalf("volume should clamp to 0, got %v", m.MasterVolume())
	}
	m.Process(buf)
	if buf[10] != 0 {
		t.Fatalf("muted output = %v, want 0", buf[10])
	}
}

func TestStartTrackRejectsEmptySegment(t *testing.T) {
	m := New(44100, 8, nil)
	track := &Track{
		Name: "bass",
		Loop: true,
		Segments: []Segment{
			{ID: 10, Clip: constClip("bass1", 40, 0.1)},
			{ID: 11, Clip: &decode.Clip{Name: "bass2", SampleRate: 44100}},
		},
	}
	started, err := m.StartTrack(track)
	if started || !errors.Is(err, ErrEmptyClip) {
		t.Fatalf("StartTrack = %v, %v; want ErrEmptyClip", started, err)
	}
	m.Process(make([]float32, 256*2))
	if ends := m.DrainSegmentEnds(); len(ends) != 0 {
		t.Fatalf("segment ends = %d, want 0", len(ends))
	}
	if m.TrackActive("bass") || m.ActiveVoices() != 0 {
		t.Fatal("rejected track must not hold a voice")
	}
	if _, err := m.PlayOneShot(&decode.Clip{Name: "ding"}, 0, 1); !errors.Is(err, ErrEmptyClip) {
		t.Fatalf("PlayOneShot error = %v, want ErrEmptyClip", err)
	}
}
