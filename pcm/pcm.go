// Package pcm converts between float audio frames and the 16-bit
// little-endian PCM the remote engine speaks.
package pcm

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000

	// FrameSize is the number of mono samples pulled from the microphone
	// per capture callback.
	FrameSize = 4096
)

var ErrOddLength = errors.New("pcm: odd byte length")

type Frame struct {
	Samples    []float32
	SampleRate int
}

func (f Frame) Len() int {
	return len(f.Samples)
}

func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Encode maps samples in [-1, 1] to signed 16-bit little-endian PCM.
// Out-of-range samples are clamped.
func Encode(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Round(float64(clamp(s)) * 32767))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// Decode is the inverse of Encode.
func Decode(data []byte, sampleRate int) (Frame, error) {
	if len(data)%2 != 0 {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrOddLength, len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		samples[i] = clamp(float32(v) / 32767)
	}

	return Frame{Samples: samples, SampleRate: sampleRate}, nil
}

func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Level is a 0-100 loudness indicator for a frame.
func Level(samples []float32) float64 {
	return math.Min(100, RMS(samples)*1000)
}

func MimeType(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	if s != s {
		return 0
	}
	return s
}
