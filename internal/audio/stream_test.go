package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

type rampSource struct {
	calls int
}

func (s *rampSource) Process(dst []float32) {
	s.calls++
	for i := range dst {
		dst[i] = float32(i) * 0.25
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	p := make([]byte, 4*8+3) // trailing partial frame is ignored
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 4*8 {
		t.Fatalf("Read() n = %d, want %d", n, 4*8)
	}
	for i := 0; i < 8; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if want := float32(i) * 0.25; got != want {
			t.Fatalf("sample %d = %v, want %v", i, got, want)
		}
	}
}

func TestStreamReaderShortBufferDoesNotPull(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	n, err := r.Read(make([]byte, 7))
	if n != 0 || err != nil {
		t.Fatalf("Read() = %d, %v; want 0, nil", n, err)
	}
	if src.calls != 0 {
		t.Fatalf("source pulled %d times for a sub-frame read", src.calls)
	}
}

func TestStreamReaderEOFAfterClose(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.Read(make([]byte, 64)); err != io.EOF {
		t.Fatalf("Read() after Close error = %v, want io.EOF", err)
	}
}

func TestNewDeviceBufferSize(t *testing.T) {
	d := NewDevice(44100, 256*8)
	want := 2048 * 1000000000 / 44100
	if got := int(d.bufferSize); got != want {
		t.Fatalf("bufferSize = %d ns, want %d ns", got, want)
	}
	if NewDevice(44100, 0).bufferSize != 0 {
		t.Fatal("zero frames should keep the default buffer size")
	}
}
