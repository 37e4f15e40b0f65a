package pcm

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = rng.Float32()*2 - 1
	}
	samples[0] = 1
	samples[1] = -1
	samples[2] = 0

	frame, err := Decode(Encode(samples), InputSampleRate)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Len() != len(samples) {
		t.Fatalf("got %d samples, want %d", frame.Len(), len(samples))
	}

	const tolerance = 1.0 / 32767
	for i, want := range samples {
		if diff := math.Abs(float64(frame.Samples[i] - want)); diff > tolerance+1e-7 {
			t.Fatalf("sample %d: got %v want %v (diff %v)", i, frame.Samples[i], want, diff)
		}
	}
}

func TestEncodeClamps(t *testing.T) {
	data := Encode([]float32{2, -3, 0.5})
	frame, err := Decode(data, OutputSampleRate)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Samples[0] != 1 || frame.Samples[1] != -1 {
		t.Errorf("expected clamped extremes, got %v", frame.Samples[:2])
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	data := Encode([]float32{1, -1})
	want := []byte{0xff, 0x7f, 0x01, 0x80}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, data[i], want[i])
		}
	}
}

func TestDecodeOddLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, OutputSampleRate)
	if !errors.Is(err, ErrOddLength) {
		t.Fatalf("expected ErrOddLength, got %v", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	frame, err := Decode(nil, OutputSampleRate)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Len() != 0 || frame.Duration() != 0 {
		t.Errorf("expected empty frame, got %d samples", frame.Len())
	}
}

func TestDuration(t *testing.T) {
	frame := Frame{Samples: make([]float32, 24000), SampleRate: OutputSampleRate}
	if frame.Duration() != time.Second {
		t.Errorf("Duration() = %v", frame.Duration())
	}
	frame = Frame{Samples: make([]float32, FrameSize), SampleRate: InputSampleRate}
	if frame.Duration() != 256*time.Millisecond {
		t.Errorf("Duration() = %v", frame.Duration())
	}
}

func TestLevel(t *testing.T) {
	if got := Level(make([]float32, 100)); got != 0 {
		t.Errorf("silence level = %v", got)
	}

	loud := make([]float32, 100)
	for i := range loud {
		loud[i] = 0.5
	}
	if got := Level(loud); got != 100 {
		t.Errorf("loud level = %v, want 100", got)
	}

	quiet := make([]float32, 100)
	for i := range quiet {
		quiet[i] = 0.01
	}
	if got := Level(quiet); math.Abs(got-10) > 1e-3 {
		t.Errorf("quiet level = %v, want 10", got)
	}
}

func TestMimeType(t *testing.T) {
	if got := MimeType(InputSampleRate); got != "audio/pcm;rate=16000" {
		t.Errorf("MimeType = %q", got)
	}
}
