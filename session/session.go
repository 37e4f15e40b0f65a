// Package session owns everything a live translation session holds: the
// microphone, the engine connection, playback and the transcript. All of
// it is acquired in Start and released together.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"node.town/autolingo/capture"
	"node.town/autolingo/etc"
	"node.town/autolingo/live"
	"node.town/autolingo/model"
	"node.town/autolingo/pcm"
	"node.town/autolingo/playback"
	"node.town/autolingo/store"
	"node.town/autolingo/turn"
)

var ErrStartFailed = errors.New("session: start failed")

// Transport is the engine connection. *live.Client satisfies it.
type Transport interface {
	Open(ctx context.Context) error
	Send(frame []byte)
	Events() <-chan live.Event
	Close() error
}

type Deps struct {
	Device capture.Device
	Sink   playback.Sink
	Clock  playback.Clock
	// Dial builds an unopened transport for the given system instruction.
	Dial     func(systemInstruction string) Transport
	Store    *store.Store
	Observer Observer
}

type Config struct {
	Speakers         [2]model.Speaker
	Settings         model.Settings
	InputSampleRate  int
	OutputSampleRate int
	FrameSize        int
}

type Live struct {
	id        string
	startedAt int64
	speakers  [2]model.Speaker
	logger    *log.Logger

	capture   *capture.Pipeline
	transport Transport
	scheduler *playback.Scheduler
	turns     *turn.Reconstructor
	store     *store.Store
	observer  Observer

	group  *errgroup.Group
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	settings   model.Settings
	transcript []model.TranscriptEntry

	releaseOnce sync.Once
	releaseErr  error
	released    atomic.Bool
	endOnce     sync.Once
	saved       *model.SavedSession
	endErr      error
}

// Start acquires the microphone, then connects. If either step fails,
// whatever was acquired is released and an error wrapping ErrStartFailed
// is returned.
func Start(ctx context.Context, cfg Config, deps Deps, logger *log.Logger) (*Live, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := model.ValidateSpeakers(cfg.Speakers); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	if cfg.OutputSampleRate == 0 {
		cfg.OutputSampleRate = pcm.OutputSampleRate
	}

	observer := deps.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	id := etc.NewFreshID()
	l := &Live{
		id:        id,
		startedAt: etc.NowMillis(),
		speakers:  cfg.Speakers,
		logger:    logger.With("session", id),
		store:     deps.Store,
		observer:  observer,
		settings:  cfg.Settings,
		state:     Connecting,
	}

	l.transport = deps.Dial(live.SystemInstruction(cfg.Speakers))

	l.scheduler = playback.NewScheduler(deps.Sink, deps.Clock, l.logger.WithPrefix("talk"))
	l.scheduler.SetGain(cfg.Settings.Gain())

	l.turns = turn.New(l.scheduler, cfg.OutputSampleRate, l.logger)

	l.capture = capture.New(deps.Device, l.transport, capture.Options{
		SampleRate: cfg.InputSampleRate,
		FrameSize:  cfg.FrameSize,
		OnLevel:    observer.Level,
	}, l.logger.WithPrefix("hear"))

	observer.StateChanged(Connecting)

	if err := l.capture.Start(ctx); err != nil {
		l.release()
		return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	if err := l.transport.Open(ctx); err != nil {
		l.release()
		return nil, fmt.Errorf("%w: connect: %w", ErrStartFailed, err)
	}

	l.setState(Connected)
	l.logger.Info("session started",
		"agent", cfg.Speakers[0].Language, "customer", cfg.Speakers[1].Language)

	loopCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.group, loopCtx = errgroup.WithContext(loopCtx)
	l.group.Go(l.inbound)
	l.group.Go(func() error { return l.watchCapture(loopCtx) })

	return l, nil
}

func (l *Live) inbound() error {
	for ev := range l.transport.Events() {
		switch ev.Kind {
		case live.Opened:
			continue

		case live.Closed, live.Errored:
			if ev.Err != nil {
				l.logger.Error("connection lost", "error", ev.Err)
			}
			l.setState(Disconnected)
			l.release()
			continue

		case live.AudioDelta:
			// Events still buffered after release must not restart playback.
			if l.released.Load() {
				continue
			}
		}

		entries, err := l.turns.Handle(ev)
		if err != nil {
			l.logger.Warn("skipping audio segment", "error", err)
			continue
		}

		if len(entries) > 0 {
			l.mu.Lock()
			if l.state == Connected {
				l.transcript = append(l.transcript, entries...)
			}
			l.mu.Unlock()
			l.observer.Committed(entries)
		}

		if ev.Kind != live.AudioDelta {
			l.observer.Caption(l.turns.Live())
		}
	}
	return nil
}

func (l *Live) watchCapture(ctx context.Context) error {
	select {
	case <-l.capture.Done():
		if err := l.capture.Err(); err != nil {
			l.logger.Warn("microphone stopped", "error", err)
		}
	case <-ctx.Done():
	}
	return nil
}

func (l *Live) setState(s State) {
	l.mu.Lock()
	if l.state == s || l.state == Ended {
		l.mu.Unlock()
		return
	}
	l.state = s
	l.mu.Unlock()

	l.logger.Info("session state", "state", s)
	l.observer.StateChanged(s)
}

// release frees the microphone, the connection and playback. Safe to call
// repeatedly and from any goroutine.
func (l *Live) release() error {
	l.releaseOnce.Do(func() {
		l.released.Store(true)

		var errs []error
		if err := l.capture.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop capture: %w", err))
		}
		if err := l.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
		l.scheduler.Teardown()
		if l.cancel != nil {
			l.cancel()
		}
		l.releaseErr = errors.Join(errs...)
	})
	return l.releaseErr
}

// End stops the session and, if anything was said, saves it. The saved
// session is returned, or nil when there was nothing to keep.
func (l *Live) End(ctx context.Context) (*model.SavedSession, error) {
	l.endOnce.Do(func() {
		l.endErr = l.release()
		if l.group != nil {
			l.group.Wait()
		}
		l.scheduler.Teardown()

		l.setState(Ended)

		saved := l.Snapshot()
		saved.Transcript = saved.Finalized()
		if len(saved.Transcript) == 0 {
			l.logger.Info("nothing to save")
			return
		}

		if l.store != nil {
			l.store.Save(ctx, saved)
		}
		l.saved = &saved
	})
	return l.saved, l.endErr
}

// Snapshot is the session as it would be saved right now.
func (l *Live) Snapshot() model.SavedSession {
	l.mu.Lock()
	defer l.mu.Unlock()

	transcript := make([]model.TranscriptEntry, len(l.transcript))
	copy(transcript, l.transcript)

	return model.SavedSession{
		ID:         l.id,
		Date:       l.startedAt,
		Speakers:   l.speakers,
		Transcript: transcript,
	}
}

func (l *Live) ID() string {
	return l.id
}

func (l *Live) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Caption is what the display shows for one side: the words still being
// heard, or else the last line committed for it.
func (l *Live) Caption(origin model.Origin) string {
	source, target := l.turns.Live()
	buffer := source
	if origin == model.Target {
		buffer = target
	}
	return DisplayText(buffer, l.Snapshot().Transcript, origin)
}

func DisplayText(buffer string, transcript []model.TranscriptEntry, origin model.Origin) string {
	if buffer != "" {
		return buffer
	}
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Origin == origin {
			return transcript[i].Text
		}
	}
	return ""
}

func (l *Live) Settings() model.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

func (l *Live) updateSettings(fn func(s *model.Settings)) model.Settings {
	l.mu.Lock()
	fn(&l.settings)
	s := l.settings
	l.mu.Unlock()

	l.scheduler.SetGain(s.Gain())
	return s
}

func (l *Live) SetMuted(muted bool) {
	l.capture.SetMuted(muted)
	l.logger.Info("microphone", "muted", muted)
}

func (l *Live) Muted() bool {
	return l.capture.Muted()
}

func (l *Live) SetTTSEnabled(enabled bool) model.Settings {
	return l.updateSettings(func(s *model.Settings) { s.TTSEnabled = enabled })
}

func (l *Live) SetVolume(volume float64) model.Settings {
	return l.updateSettings(func(s *model.Settings) { s.Volume = model.ClampUnit(volume) })
}

func (l *Live) SetTextSize(size model.TextSize) model.Settings {
	return l.updateSettings(func(s *model.Settings) { s.TextSize = size })
}

func (l *Live) Gain() float64 {
	return l.scheduler.Gain()
}

func (l *Live) Stats() capture.Stats {
	return l.capture.Stats()
}
