package bank

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func wavBytes(sampleRate, frames int) []byte {
	buf := new(bytes.Buffer)
	dataSize := uint32(frames * 2)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	for i := 0; i < frames; i++ {
		binary.Write(buf, binary.LittleEndian, int16(8192))
	}
	return buf.Bytes()
}

func TestDefaultManifestIsValid(t *testing.T) {
	m := Default()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := len(m.Events[EventDings].Files); got != 6 {
		t.Fatalf("dings files = %d, want 6", got)
	}
	id, ok := m.SegmentID("android1")
	if !ok || id != SegmentAndroid1 {
		t.Fatalf("SegmentID(android1) = %d, %v", id, ok)
	}
	bass := m.Cues[CueBass]
	if !bass.Loop || bass.Parameter != ParamBassSequence || len(bass.Segments) != 3 {
		t.Fatalf("bass cue = %+v", bass)
	}
}

func TestManifestRoundTripThroughLoad(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	fsys := fstest.MapFS{DefaultManifestName: {Data: data}}
	m, err := Load(fsys, DefaultManifestName)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Name != "VPS2" || len(m.Cues) != 5 || len(m.Events) != 6 {
		t.Fatalf("loaded manifest = %+v", m)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(fstest.MapFS{}, DefaultManifestName)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"syntax", `{`, "invalid bank manifest"},
		{"empty", `{"name":"x"}`, "no events or cues"},
		{"event without files", `{"events":{"e":{"files":[]}}}`, `event "e" has no files`},
		{"cue without segments", `{"cues":{"c":{"segments":[]}}}`, `cue "c" has no segments`},
		{"undefined parameter", `{"cues":{"c":{"parameter":"p","segments":[{"id":1,"file":"a.wav"}]}}}`, `undefined parameter "p"`},
		{"segment without file", `{"cues":{"c":{"segments":[{"id":1}]}}}`, "has no file"},
		{"duplicate id", `{"cues":{"a":{"segments":[{"id":1,"file":"a.wav"},{"id":1,"file":"b.wav"}]}}}`, "segment id 1"},
		{"negative gain", `{"gain":-1,"events":{"e":{"files":["a.wav"]}}}`, "negative gain"},
		{"inverted range", `{"events":{"e":{"files":["a.wav"]}},"parameters":{"p":{"min":2,"max":1}}}`, "max < min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Fatalf("Parse() error = %v, want ErrInvalidManifest", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFilesAreSortedAndUnique(t *testing.T) {
	m := &Manifest{
		Events: map[string]Event{
			"a": {Files: []string{"z.wav", "b.wav"}},
			"b": {Files: []string{"b.wav"}},
		},
		Cues: map[string]Cue{
			"c": {Segments: []Segment{{ID: 1, File: "a.wav"}, {ID: 2, File: "z.wav"}}},
		},
	}
	got := m.Files()
	want := []string{"a.wav", "b.wav", "z.wav"}
	if len(got) != len(want) {
		t.Fatalf("Files() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Files() = %v, want %v", got, want)
		}
	}
}

func TestLoadClips(t *testing.T) {
	fsys := fstest.MapFS{
		"misc/a.wav": {Data: wavBytes(22050, 100)},
		"misc/b.wav": {Data: wavBytes(44100, 100)},
	}
	clips, err := LoadClips(context.Background(), fsys, []string{"misc/a.wav", "misc/b.wav"}, 44100)
	if err != nil {
		t.Fatalf("LoadClips() error = %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	if got := clips["misc/a.wav"].Frames(); got != 200 {
		t.Fatalf("resampled frames = %d, want 200", got)
	}
	if got := clips["misc/b.wav"].SampleRate; got != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", got)
	}
}

func TestLoadClipsMissingFile(t *testing.T) {
	fsys := fstest.MapFS{"misc/a.wav": {Data: wavBytes(44100, 10)}}
	_, err := LoadClips(context.Background(), fsys, []string{"misc/a.wav", "misc/gone.ogg"}, 44100)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("LoadClips() error = %v, want fs.ErrNotExist", err)
	}
	if !strings.Contains(err.Error(), "misc/gone.ogg") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestLoadClipsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fsys := fstest.MapFS{"a.wav": {Data: wavBytes(44100, 10)}}
	if _, err := LoadClips(ctx, fsys, []string{"a.wav"}, 44100); !errors.Is(err, context.Canceled) {
		t.Fatalf("LoadClips() error = %v, want context.Canceled", err)
	}
}
