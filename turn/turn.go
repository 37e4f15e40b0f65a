// Package turn folds the engine's transcript fragments into committed
// transcript entries, one pair per conversational turn.
package turn

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"node.town/autolingo/etc"
	"node.town/autolingo/live"
	"node.town/autolingo/model"
	"node.town/autolingo/pcm"
)

// AudioSink receives decoded speech segments in arrival order and reports
// when each will start playing.
type AudioSink interface {
	Enqueue(seg pcm.Frame) (time.Time, bool)
}

type draft struct {
	entry model.TranscriptEntry
	text  strings.Builder
}

func (d *draft) append(origin model.Origin, s string, now func() int64) {
	if s == "" {
		return
	}
	if d.text.Len() == 0 && d.entry.ID == "" {
		d.entry = model.TranscriptEntry{
			ID:        etc.NewFreshID(),
			Origin:    origin,
			CreatedAt: now(),
		}
	}
	d.text.WriteString(s)
}

func (d *draft) reset() {
	d.entry = model.TranscriptEntry{}
	d.text.Reset()
}

func (d *draft) snapshot() (model.TranscriptEntry, bool) {
	if d.entry.ID == "" {
		return model.TranscriptEntry{}, false
	}
	e := d.entry
	e.Text = d.text.String()
	return e, true
}

// commit returns the finalized entry, or false when nothing but
// whitespace was heard.
func (d *draft) commit() (model.TranscriptEntry, bool) {
	e, ok := d.snapshot()
	if !ok {
		return e, false
	}
	e.Text = strings.TrimSpace(e.Text)
	if e.Text == "" {
		return e, false
	}
	e.Finalized = true
	return e, true
}

type Reconstructor struct {
	audio      AudioSink
	outputRate int
	logger     *log.Logger
	now        func() int64

	mu     sync.Mutex
	source draft
	target draft
}

func New(audio AudioSink, outputRate int, logger *log.Logger) *Reconstructor {
	if outputRate == 0 {
		outputRate = pcm.OutputSampleRate
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Reconstructor{
		audio:      audio,
		outputRate: outputRate,
		logger:     logger,
		now:        etc.NowMillis,
	}
}

// Handle applies one event. On a turn boundary it returns the committed
// entries, source before target. A non-nil error means an audio segment
// could not be decoded and was skipped; transcript state is unaffected.
func (r *Reconstructor) Handle(ev live.Event) ([]model.TranscriptEntry, error) {
	switch ev.Kind {
	case live.InputTranscriptDelta:
		r.mu.Lock()
		r.source.append(model.Source, ev.Text, r.now)
		r.mu.Unlock()

	case live.OutputTranscriptDelta:
		r.mu.Lock()
		r.target.append(model.Target, ev.Text, r.now)
		r.mu.Unlock()

	case live.AudioDelta:
		seg, err := pcm.Decode(ev.Audio, r.outputRate)
		if err != nil {
			return nil, fmt.Errorf("audio segment: %w", err)
		}
		if r.audio != nil && seg.Len() > 0 {
			r.audio.Enqueue(seg)
		}

	case live.TurnComplete:
		return r.commit(), nil
	}

	return nil, nil
}

func (r *Reconstructor) commit() []model.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.TranscriptEntry
	for _, d := range []*draft{&r.source, &r.target} {
		if e, ok := d.commit(); ok {
			out = append(out, e)
		}
		d.reset()
	}

	if len(out) > 0 {
		r.logger.Debug("turn committed", "entries", len(out))
	}
	return out
}

// Live returns the uncommitted text of both buffers.
func (r *Reconstructor) Live() (source, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source.text.String(), r.target.text.String()
}

// Drafts returns the open, unfinalized entries, source first.
func (r *Reconstructor) Drafts() []model.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.TranscriptEntry
	for _, d := range []*draft{&r.source, &r.target} {
		if e, ok := d.snapshot(); ok {
			out = append(out, e)
		}
	}
	return out
}

// Fold replays a whole event stream and returns every committed entry.
func Fold(events []live.Event) []model.TranscriptEntry {
	r := New(nil, 0, nil)
	var out []model.TranscriptEntry
	for _, ev := range events {
		entries, _ := r.Handle(ev)
		out = append(out, entries...)
	}
	return out
}
