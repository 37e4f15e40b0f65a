package playback

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"node.town/autolingo/pcm"
)

// SpeakerSink plays segments on the default output device. Every segment
// passes through one gain stage so volume changes reach audio already
// queued.
type SpeakerSink struct {
	rate  beep.SampleRate
	clock Clock
	queue *segmentQueue
	gain  *effects.Gain
}

func NewSpeakerSink(sampleRate int, buffer time.Duration) (*SpeakerSink, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(buffer)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	q := &segmentQueue{}
	g := &effects.Gain{Streamer: q, Gain: 0}
	speaker.Play(g)

	return &SpeakerSink{
		rate:  sr,
		clock: SystemClock{},
		queue: q,
		gain:  g,
	}, nil
}

func (s *SpeakerSink) Play(seg pcm.Frame, at time.Time, done func()) (Voice, error) {
	if seg.SampleRate != int(s.rate) {
		return nil, fmt.Errorf("segment rate %d, speaker runs at %d", seg.SampleRate, s.rate)
	}

	v := &segment{samples: seg.Samples, done: done}

	speaker.Lock()
	if s.queue.empty() {
		if lead := at.Sub(s.clock.Now()); lead > 0 {
			s.queue.add(&segment{samples: make([]float32, s.rate.N(lead)), done: func() {}})
		}
	}
	s.queue.add(v)
	speaker.Unlock()

	return v, nil
}

// SetGain maps g in [0, 1] onto the gain stage, whose output is
// sample * (1 + Gain).
func (s *SpeakerSink) SetGain(g float64) {
	speaker.Lock()
	s.gain.Gain = g - 1
	speaker.Unlock()
}

func (s *SpeakerSink) Close() {
	speaker.Clear()
}

type segmentQueue struct {
	segments []beep.Streamer
}

func (q *segmentQueue) add(s beep.Streamer) {
	q.segments = append(q.segments, s)
}

func (q *segmentQueue) empty() bool {
	return len(q.segments) == 0
}

// Stream plays queued segments back to back and fills with silence when
// there is nothing to play, so the speaker never drops it.
func (q *segmentQueue) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(q.segments) == 0 {
			for i := range samples[filled:] {
				samples[filled+i] = [2]float64{}
			}
			break
		}

		n, ok := q.segments[0].Stream(samples[filled:])
		if !ok {
			q.segments = q.segments[1:]
		}
		filled += n
	}
	return len(samples), true
}

func (q *segmentQueue) Err() error {
	return nil
}

type segment struct {
	samples []float32
	pos     int
	stopped atomic.Bool
	done    func()
	once    sync.Once
}

func (s *segment) Stream(samples [][2]float64) (int, bool) {
	if s.stopped.Load() || s.pos >= len(s.samples) {
		s.finish()
		return 0, false
	}

	n := 0
	for n < len(samples) && s.pos < len(s.samples) {
		v := float64(s.samples[s.pos])
		samples[n] = [2]float64{v, v}
		n++
		s.pos++
	}
	return n, true
}

func (s *segment) Err() error {
	return nil
}

func (s *segment) Stop() {
	s.stopped.Store(true)
}

func (s *segment) finish() {
	s.once.Do(func() { go s.done() })
}
