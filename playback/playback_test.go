package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"node.town/autolingo/pcm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeVoice struct {
	sink    *fakeSink
	done    func()
	stopped bool
}

func (v *fakeVoice) Stop() {
	v.sink.mu.Lock()
	v.stopped = true
	v.sink.mu.Unlock()
}

type fakeSink struct {
	mu     sync.Mutex
	starts []time.Time
	voices []*fakeVoice
	gains  []float64
	err    error
}

func (s *fakeSink) Play(seg pcm.Frame, at time.Time, done func()) (Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v := &fakeVoice{sink: s, done: done}
	s.starts = append(s.starts, at)
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *fakeSink) SetGain(g float64) {
	s.mu.Lock()
	s.gains = append(s.gains, g)
	s.mu.Unlock()
}

func seconds(d float64) pcm.Frame {
	return pcm.Frame{
		Samples:    make([]float32, int(d*pcm.OutputSampleRate)),
		SampleRate: pcm.OutputSampleRate,
	}
}

func TestEnqueueIsGapless(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(sink, clock, nil)
	t0 := clock.Now()

	for _, d := range []float64{0.5, 0.3, 0.2} {
		if _, ok := s.Enqueue(seconds(d)); !ok {
			t.Fatalf("Enqueue(%v) rejected", d)
		}
	}

	want := []time.Time{
		t0,
		t0.Add(500 * time.Millisecond),
		t0.Add(800 * time.Millisecond),
	}
	for i, w := range want {
		if !sink.starts[i].Equal(w) {
			t.Errorf("segment %d starts at %v, want %v", i, sink.starts[i].Sub(t0), w.Sub(t0))
		}
	}
	if !s.Cursor().Equal(t0.Add(time.Second)) {
		t.Errorf("cursor = %v", s.Cursor().Sub(t0))
	}
	if s.Active() != 3 {
		t.Errorf("Active() = %d", s.Active())
	}
}

func TestEnqueueAfterIdleStartsNow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(sink, clock, nil)

	s.Enqueue(seconds(0.5))
	clock.Advance(2 * time.Second)
	start, _ := s.Enqueue(seconds(0.5))

	if !start.Equal(clock.Now()) {
		t.Errorf("segment after idle scheduled at %v, want now", start)
	}
}

func TestEnqueueEmptySegment(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(sink, clock, nil)

	if _, ok := s.Enqueue(pcm.Frame{SampleRate: pcm.OutputSampleRate}); ok {
		t.Error("empty segment was scheduled")
	}
	if !s.Cursor().IsZero() {
		t.Error("cursor moved for an empty segment")
	}
	if len(sink.starts) != 0 {
		t.Error("sink received an empty segment")
	}
}

func TestEnqueueSinkError(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{err: errors.New("no device")}
	s := NewScheduler(sink, clock, nil)

	if _, ok := s.Enqueue(seconds(0.1)); ok {
		t.Error("segment reported scheduled despite sink error")
	}
	if s.Active() != 0 {
		t.Errorf("Active() = %d", s.Active())
	}
}

func TestDoneRemovesSegment(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(sink, clock, nil)

	s.Enqueue(seconds(0.1))
	s.Enqueue(seconds(0.1))
	sink.voices[0].done()

	if s.Active() != 1 {
		t.Errorf("Active() = %d after one segment finished", s.Active())
	}
}

func TestSetGainClamps(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(sink, &fakeClock{}, nil)

	tests := []struct {
		in, want float64
	}{
		{0.4, 0.4},
		{1.5, 1},
		{-0.2, 0},
	}
	for _, tt := range tests {
		s.SetGain(tt.in)
		if s.Gain() != tt.want {
			t.Errorf("SetGain(%v): Gain() = %v, want %v", tt.in, s.Gain(), tt.want)
		}
		if last := sink.gains[len(sink.gains)-1]; last != tt.want {
			t.Errorf("SetGain(%v): sink got %v", tt.in, last)
		}
	}
}

func TestTeardown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(sink, clock, nil)

	s.Teardown()

	s.Enqueue(seconds(0.2))
	s.Enqueue(seconds(0.2))
	s.Teardown()
	s.Teardown()

	for i, v := range sink.voices {
		if !v.stopped {
			t.Errorf("voice %d not stopped", i)
		}
	}
	if s.Active() != 0 {
		t.Errorf("Active() = %d after teardown", s.Active())
	}
	if !s.Cursor().IsZero() {
		t.Error("cursor not reset")
	}

	// A late completion from a stopped voice is harmless.
	sink.voices[0].done()

	start, _ := s.Enqueue(seconds(0.2))
	if !start.Equal(clock.Now()) {
		t.Errorf("segment after teardown starts at %v", start)
	}
}

func TestDiscardSinkCompletes(t *testing.T) {
	s := NewScheduler(&DiscardSink{}, nil, nil)
	s.Enqueue(pcm.Frame{Samples: make([]float32, 240), SampleRate: pcm.OutputSampleRate})

	deadline := time.Now().Add(2 * time.Second)
	for s.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("segment never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDiscardSinkStop(t *testing.T) {
	s := NewScheduler(&DiscardSink{}, nil, nil)
	s.Enqueue(seconds(10))
	s.Teardown()
	if s.Active() != 0 {
		t.Errorf("Active() = %d", s.Active())
	}
}

func TestSegmentQueueGapless(t *testing.T) {
	done := make(chan int, 2)
	q := &segmentQueue{}
	q.add(&segment{samples: []float32{0.1, 0.2}, done: func() { done <- 1 }})
	q.add(&segment{samples: []float32{0.3}, done: func() { done <- 2 }})

	out := make([][2]float64, 5)
	n, ok := q.Stream(out)
	if n != 5 || !ok {
		t.Fatalf("Stream() = %d, %v", n, ok)
	}

	want := []float64{0.1, 0.2, 0.3, 0, 0}
	for i, w := range want {
		if d := out[i][0] - w; d > 1e-6 || d < -1e-6 {
			t.Errorf("sample %d = %v, want %v", i, out[i][0], w)
		}
		if out[i][0] != out[i][1] {
			t.Errorf("sample %d not duplicated across channels", i)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("segment completion not reported")
		}
	}
	if !q.empty() {
		t.Error("queue not drained")
	}
}

func TestStoppedSegmentIsSkipped(t *testing.T) {
	done := make(chan struct{}, 1)
	seg := &segment{samples: []float32{0.5, 0.5}, done: func() { done <- struct{}{} }}
	seg.Stop()

	q := &segmentQueue{}
	q.add(seg)

	out := make([][2]float64, 2)
	q.Stream(out)
	if out[0][0] != 0 {
		t.Errorf("stopped segment produced audio: %v", out[0])
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stopped segment never reported done")
	}
}
