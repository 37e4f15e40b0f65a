// Package capture pulls fixed-size frames from a microphone, reports their
// loudness and forwards them, PCM encoded, to the session transport.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"node.town/autolingo/pcm"
)

var ErrDeviceUnavailable = errors.New("capture: device unavailable")

// Device opens a mono input stream at the requested rate.
type Device interface {
	Open(ctx context.Context, sampleRate int) (Stream, error)
}

// Stream fills whole frames. Any error means the device is gone.
type Stream interface {
	Read(frame []float32) error
	Close() error
}

// Sender is the outbound half of the transport. Send must not block.
type Sender interface {
	Send(frame []byte)
}

type Options struct {
	SampleRate int
	FrameSize  int
	OnLevel    func(level float64)
}

type Stats struct {
	Frames     int64
	Sent       int64
	Suppressed int64
}

type Pipeline struct {
	device Device
	sender Sender
	opts   Options
	logger *log.Logger

	muted      atomic.Bool
	stopping   atomic.Bool
	frames     atomic.Int64
	sent       atomic.Int64
	suppressed atomic.Int64

	mu        sync.Mutex
	stream    Stream
	cancel    context.CancelFunc
	err       error
	done      chan struct{}
	closeDone func()
	started   bool
	stopOnce  sync.Once
	stopErr   error
}

func New(device Device, sender Sender, opts Options, logger *log.Logger) *Pipeline {
	if opts.SampleRate == 0 {
		opts.SampleRate = pcm.InputSampleRate
	}
	if opts.FrameSize == 0 {
		opts.FrameSize = pcm.FrameSize
	}
	if logger == nil {
		logger = log.Default()
	}

	done := make(chan struct{})
	return &Pipeline{
		device:    device,
		sender:    sender,
		opts:      opts,
		logger:    logger,
		done:      done,
		closeDone: sync.OnceFunc(func() { close(done) }),
	}
}

// Start opens the device and pulls the first frame before returning, so
// a refused or missing microphone fails here rather than mid-session.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("capture: already started")
	}
	if p.stopping.Load() {
		return errors.New("capture: stopped")
	}

	ctx, cancel := context.WithCancel(ctx)

	stream, err := p.device.Open(ctx, p.opts.SampleRate)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	frame := make([]float32, p.opts.FrameSize)
	if err := stream.Read(frame); err != nil {
		cancel()
		stream.Close()
		return fmt.Errorf("%w: first frame: %w", ErrDeviceUnavailable, err)
	}

	p.stream = stream
	p.cancel = cancel
	p.started = true

	p.logger.Info("microphone open",
		"rate", p.opts.SampleRate, "frame", p.opts.FrameSize)

	p.handle(frame)
	go p.loop(ctx, stream, frame)

	return nil
}

func (p *Pipeline) loop(ctx context.Context, stream Stream, frame []float32) {
	defer p.closeDone()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := stream.Read(frame); err != nil {
			if p.stopping.Load() || ctx.Err() != nil {
				return
			}
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			p.logger.Warn("microphone lost", "error", err)
			return
		}

		p.handle(frame)
	}
}

func (p *Pipeline) handle(frame []float32) {
	p.frames.Add(1)

	if p.opts.OnLevel != nil {
		p.opts.OnLevel(pcm.Level(frame))
	}

	if p.muted.Load() {
		p.suppressed.Add(1)
		return
	}

	p.sender.Send(pcm.Encode(frame))
	p.sent.Add(1)
}

// SetMuted takes effect from the next frame on. Muted frames are still
// read from the device and metered but never sent.
func (p *Pipeline) SetMuted(muted bool) {
	p.muted.Store(muted)
}

func (p *Pipeline) Muted() bool {
	return p.muted.Load()
}

// Stop releases the device and waits for the capture loop. It is safe to
// call more than once and before Start.
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)

		p.mu.Lock()
		started := p.started
		stream := p.stream
		cancel := p.cancel
		p.mu.Unlock()

		if !started {
			p.closeDone()
			return
		}

		cancel()
		p.stopErr = stream.Close()
		<-p.done

		p.logger.Info("microphone closed",
			"frames", p.frames.Load(), "sent", p.sent.Load())
	})
	return p.stopErr
}

// Done is closed once capture has ended for any reason.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err reports why capture ended on its own, if it did.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:     p.frames.Load(),
		Sent:       p.sent.Load(),
		Suppressed: p.suppressed.Load(),
	}
}
