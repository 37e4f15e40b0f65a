// Package playback schedules decoded speech segments back to back on an
// output sink behind a single shared gain stage.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"node.town/autolingo/etc"
	"node.town/autolingo/model"
	"node.town/autolingo/pcm"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sink renders segments. Play must return promptly and call done from
// another goroutine once the segment has finished or been stopped.
type Sink interface {
	Play(seg pcm.Frame, at time.Time, done func()) (Voice, error)
	SetGain(g float64)
}

type Voice interface {
	Stop()
}

type Scheduler struct {
	sink   Sink
	clock  Clock
	logger *log.Logger

	mu     sync.Mutex
	cursor time.Time
	gain   float64
	active map[uint64]Voice
	nextID uint64
}

func NewScheduler(sink Sink, clock Clock, logger *log.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		sink:   sink,
		clock:  clock,
		logger: logger,
		gain:   1,
		active: make(map[uint64]Voice),
	}
}

// Enqueue schedules seg at max(cursor, now) and advances the cursor by
// the segment's duration. Empty segments are ignored.
func (s *Scheduler) Enqueue(seg pcm.Frame) (time.Time, bool) {
	if seg.Len() == 0 || seg.Duration() == 0 {
		return time.Time{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.cursor.IsZero() {
		s.cursor = now
	}
	start := etc.MaxTime(s.cursor, now)

	id := s.nextID
	s.nextID++

	voice, err := s.sink.Play(seg, start, func() { s.finish(id) })
	if err != nil {
		s.logger.Error("play segment", "error", err)
		return time.Time{}, false
	}

	s.active[id] = voice
	s.cursor = start.Add(seg.Duration())

	s.logger.Debug("segment scheduled",
		"id", id,
		"lead", start.Sub(now).Round(time.Millisecond),
		"duration", seg.Duration())

	return start, true
}

func (s *Scheduler) finish(id uint64) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// SetGain clamps g to [0, 1]. It applies to segments already playing.
func (s *Scheduler) SetGain(g float64) {
	g = model.ClampUnit(g)

	s.mu.Lock()
	s.gain = g
	s.mu.Unlock()

	s.sink.SetGain(g)
}

func (s *Scheduler) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Teardown stops everything in flight and resets the cursor.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	voices := s.active
	s.active = make(map[uint64]Voice)
	s.cursor = time.Time{}
	s.mu.Unlock()

	for _, v := range voices {
		v.Stop()
	}

	if len(voices) > 0 {
		s.logger.Info("playback stopped", "segments", len(voices))
	}
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("scheduler(active=%d gain=%.2f)", s.Active(), s.Gain())
}
