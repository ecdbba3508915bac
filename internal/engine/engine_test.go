package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/cbegin/vpsaudio-go/internal/audio"
	"github.com/cbegin/vpsaudio-go/internal/bank"
)

const testRate = 8000

func wavBytes(frames int, value int16) []byte {
	buf := new(bytes.Buffer)
	dataSize := uint32(frames * 2)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(testRate))
	binary.Write(buf, binary.LittleEndian, uint32(testRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	for i := 0; i < frames; i++ {
		binary.Write(buf, binary.LittleEndian, value)
	}
	return buf.Bytes()
}

// wavManifest is the default bank with every asset swapped to .wav.
func wavManifest() *bank.Manifest {
	m := bank.Default()
	for name, ev := range m.Events {
		files := make([]string, len(ev.Files))
		for i, f := range ev.Files {
			files[i] = strings.TrimSuffix(f, ".ogg") + ".wav"
		}
		ev.Files = files
		m.Events[name] = ev
	}
	for name, cue := range m.Cues {
		segs := make([]bank.Segment, len(cue.Segments))
		for i, s := range cue.Segments {
			s.File = strings.TrimSuffix(s.File, ".ogg") + ".wav"
			segs[i] = s
		}
		cue.Segments = segs
		m.Cues[name] = cue
	}
	return m
}

// mediaFS holds a 100-frame clip for every file. Each file gets its own
// amplitude so tests can tell them apart.
func mediaFS(m *bank.Manifest) fstest.MapFS {
	fsys := fstest.MapFS{}
	for i, f := range m.Files() {
		fsys[f] = &fstest.MapFile{Data: wavBytes(100, int16(1000*(i+1)))}
	}
	return fsys
}

type fixedRand struct{ n int }

func (r fixedRand) IntN(n int) int { return r.n % n }

type fakeOutput struct {
	source   audio.SampleSource
	closed   bool
	startErr error
}

func (o *fakeOutput) Start(source audio.SampleSource) error {
	if o.startErr != nil {
		return o.startErr
	}
	o.source = source
	return nil
}

func (o *fakeOutput) Close() error {
	o.closed = true
	return nil
}

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SampleRate = testRate
	cfg.Manifest = wavManifest()
	cfg.Rand = fixedRand{}
	if mutate != nil {
		mutate(&cfg)
	}
	e := New(cfg)
	if err := e.Init(context.Background(), mediaFS(cfg.Manifest)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return e
}

func TestInitTwice(t *testing.T) {
	e := newTestEngine(t, nil)
	err := e.Init(context.Background(), mediaFS(wavManifest()))
	if !IsStatus(err, StatusAlreadyInitialized) {
		t.Fatalf("second Init() error = %v", err)
	}
}

func TestInitFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config, fstest.MapFS)
		want   Status
	}{
		{"missing file", func(c *Config, fsys fstest.MapFS) { delete(fsys, "music/bass2.wav") }, StatusFileNotFound},
		{"corrupt file", func(c *Config, fsys fstest.MapFS) { fsys["misc/flipper1.wav"] = &fstest.MapFile{Data: []byte("nope")} }, StatusFormat},
		{"silent segment", func(c *Config, fsys fstest.MapFS) { fsys["music/bass2.wav"] = &fstest.MapFile{Data: wavBytes(0, 0)} }, StatusFormat},
		{"bad manifest", func(c *Config, fsys fstest.MapFS) { c.Manifest = &bank.Manifest{} }, StatusBadManifest},
		{"missing prefetch", func(c *Config, fsys fstest.MapFS) { c.Prefetch = []string{"VPS2/VPS2/nothing"} }, StatusEventNotFound},
		{"output", func(c *Config, fsys fstest.MapFS) { c.Output = &fakeOutput{startErr: errors.New("no device")} }, StatusOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SampleRate = testRate
			cfg.Manifest = wavManifest()
			fsys := mediaFS(cfg.Manifest)
			tt.mutate(&cfg, fsys)
			e := New(cfg)
			err := e.Init(context.Background(), fsys)
			if !IsStatus(err, tt.want) {
				t.Fatalf("Init() error = %v, want status %v", err, tt.want)
			}
			if e.Initialized() {
				t.Fatal("engine should not be initialized after a failed Init")
			}
		})
	}
}

func TestCallsBeforeInit(t *testing.T) {
	e := New(Config{})
	checks := map[string]error{
		"update": e.Update(),
		"begin":  e.Begin(bank.CueBass),
		"end":    e.End(bank.CueBass),
		"param":  e.SetParameter(bank.ParamBassSequence, 0),
		"render": e.Render(make([]float32, 4)),
	}
	_, checks["active"] = e.IsActive(bank.CueBass)
	_, checks["event"] = e.Event(bank.EventDings)
	for name, err := range checks {
		if !IsStatus(err, StatusNotInitialized) {
			t.Errorf("%s: error = %v, want not initialized", name, err)
		}
	}
	if err := e.Release(); err != nil {
		t.Fatalf("Release() on idle engine = %v", err)
	}
}

func TestUnknownNames(t *testing.T) {
	e := newTestEngine(t, nil)
	if err := e.Begin("trumpet"); !IsStatus(err, StatusCueNotFound) {
		t.Errorf("Begin() error = %v", err)
	}
	if _, err := e.Event("VPS2/VPS2/tilt"); !IsStatus(err, StatusEventNotFound) {
		t.Errorf("Event() error = %v", err)
	}
	if err := e.SetParameter("tempo", 1); !IsStatus(err, StatusParamNotFound) {
		t.Errorf("SetParameter() error = %v", err)
	}
}

func TestSetParameterRange(t *testing.T) {
	e := newTestEngine(t, nil)
	if err := e.SetParameter(bank.ParamBassSequence, 2); err != nil {
		t.Fatalf("SetParameter(2) error = %v", err)
	}
	if v, err := e.Parameter(bank.ParamBassSequence); err != nil || v != 2 {
		t.Fatalf("Parameter() = %v, %v", v, err)
	}
	for _, v := range []float64{-1, 3, math.NaN()} {
		if err := e.SetParameter(bank.ParamBassSequence, v); !IsStatus(err, StatusInvalidParam) {
			t.Errorf("SetParameter(%v) error = %v", v, err)
		}
	}
}

func TestBeginEndIsActive(t *testing.T) {
	e := newTestEngine(t, nil)
	if active, err := e.IsActive(bank.CueDrLoop1); err != nil || active {
		t.Fatalf("IsActive() before Begin = %v, %v", active, err)
	}
	if err := e.Begin(bank.CueDrLoop1); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := e.Begin(bank.CueDrLoop1); err != nil {
		t.Fatalf("Begin() on active cue error = %v", err)
	}
	if e.ActiveVoices() != 1 {
		t.Fatalf("ActiveVoices() = %d, want 1", e.ActiveVoices())
	}
	if active, _ := e.IsActive(bank.CueDrLoop1); !active {
		t.Fatal("cue should be active after Begin")
	}
	if err := e.End(bank.CueDrLoop1); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if active, _ := e.IsActive(bank.CueDrLoop1); active {
		t.Fatal("cue should be inactive after End")
	}
}

func TestUpdateDeliversSegmentEnds(t *testing.T) {
	e := newTestEngine(t, nil)
	var got []int
	e.SetSegmentCallback(func(id int) error {
		got = append(got, id)
		return nil
	})
	if err := e.Begin(bank.CueAndroid); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := e.Render(make([]float32, 2*256)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatal("segment ends must wait for Update")
	}
	if err := e.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got) != 1 || got[0] != bank.SegmentAndroid1 {
		t.Fatalf("segment ends = %v, want [%d]", got, bank.SegmentAndroid1)
	}
	if active, _ := e.IsActive(bank.CueAndroid); active {
		t.Fatal("android cue does not loop")
	}
}

func TestUpdateJoinsCallbackErrors(t *testing.T) {
	e := newTestEngine(t, nil)
	boom := errors.New("boom")
	calls := 0
	e.SetSegmentCallback(func(id int) error {
		calls++
		return boom
	})
	e.Begin(bank.CueDrLoop1)
	e.Render(make([]float32, 2*250)) // 100-frame loop: two complete passes
	err := e.Update()
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}
	if calls != 2 {
		t.Fatalf("callback calls = %d, want 2", calls)
	}
}

func TestEventStartPicksFileWithRand(t *testing.T) {
	m := wavManifest()
	files := m.Files()
	dings := m.Events[bank.EventDings].Files
	e := newTestEngine(t, func(c *Config) { c.Rand = fixedRand{n: 3} })
	ev, err := e.Event(bank.EventDings)
	if err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if err := ev.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	idx := -1
	for i, f := range files {
		if f == dings[3] {
			idx = i
		}
	}
	want := float32(1000*(idx+1)) / 32768
	buf := make([]float32, 2*10)
	e.Render(buf)
	if math.Abs(float64(buf[0]-want)) > 1e-4 {
		t.Fatalf("rendered sample = %v, want %v from %s", buf[0], want, dings[3])
	}
}

func TestEventPitch(t *testing.T) {
	e := newTestEngine(t, nil)
	ev, _ := e.Event(bank.EventRollover)
	if err := ev.SetPitch(math.Inf(1)); !IsStatus(err, StatusInvalidParam) {
		t.Fatalf("SetPitch(Inf) error = %v", err)
	}
	if err := ev.SetPitch(12); err != nil || ev.Pitch() != 12 {
		t.Fatalf("SetPitch(12) = %v, pitch %v", err, ev.Pitch())
	}
	ev.Start()
	buf := make([]float32, 2*80)
	e.Render(buf)
	if buf[2*40] == 0 || buf[2*60] != 0 {
		t.Fatalf("octave-up 100-frame clip should end near frame 50: %v %v", buf[2*40], buf[2*60])
	}
}

func TestOutputLifecycle(t *testing.T) {
	out := &fakeOutput{}
	e := newTestEngine(t, func(c *Config) { c.Output = out })
	if out.source == nil {
		t.Fatal("output was not started")
	}
	if err := e.Render(make([]float32, 4)); !IsStatus(err, StatusOutput) {
		t.Fatalf("Render() with output error = %v", err)
	}
	if err := e.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if !out.closed {
		t.Fatal("output not closed on Release")
	}
	if e.Initialized() {
		t.Fatal("engine still initialized after Release")
	}
	if err := e.Init(context.Background(), mediaFS(wavManifest())); err != nil {
		t.Fatalf("Init() after Release error = %v", err)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := wrapError("begin", StatusVoiceLimit, errors.New("no free voice"))
	if got := err.Error(); got != "engine: begin: voice limit reached: no free voice" {
		t.Fatalf("Error() = %q", got)
	}
	if StatusOf(nil) != StatusOK || StatusOf(errors.New("x")) != -1 || StatusOf(err) != StatusVoiceLimit {
		t.Fatal("StatusOf mismatch")
	}
	if Status(99).String() != "status(99)" {
		t.Fatalf("String() = %q", Status(99).String())
	}
}

func TestManifestGainTrimsMix(t *testing.T) {
	full := newTestEngine(t, nil)
	half := newTestEngine(t, func(c *Config) { c.Manifest.Gain = 0.5 })
	var got [2]float32
	for i, e := range []*Engine{full, half} {
		ev, _ := e.Event(bank.EventFlipper)
		if err := ev.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		buf := make([]float32, 2*4)
		e.Render(buf)
		got[i] = buf[0]
	}
	if got[0] == 0 || math.Abs(float64(got[1]-got[0]/2)) > 1e-6 {
		t.Fatalf("gain 0.5 sample = %v, unity sample = %v", got[1], got[0])
	}
}
