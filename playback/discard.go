package playback

import (
	"sync"
	"time"

	"node.town/autolingo/pcm"
)

// DiscardSink pretends to play each segment for its duration. It is used
// when no output device is wanted.
type DiscardSink struct {
	mu   sync.Mutex
	gain float64
}

func (d *DiscardSink) Play(seg pcm.Frame, at time.Time, done func()) (Voice, error) {
	v := &timerVoice{done: done}
	v.timer = time.AfterFunc(time.Until(at)+seg.Duration(), v.finish)
	return v, nil
}

func (d *DiscardSink) SetGain(g float64) {
	d.mu.Lock()
	d.gain = g
	d.mu.Unlock()
}

func (d *DiscardSink) Gain() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain
}

type timerVoice struct {
	timer *time.Timer
	done  func()
	once  sync.Once
}

func (v *timerVoice) finish() {
	v.once.Do(v.done)
}

func (v *timerVoice) Stop() {
	if v.timer.Stop() {
		go v.finish()
	}
}
