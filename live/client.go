// Package live streams microphone audio to the Gemini Live engine over a
// websocket and turns its replies into an ordered event stream.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"node.town/autolingo/pcm"
)

const (
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultModel    = "models/gemini-2.5-flash-native-audio-preview-12-2025"

	PingInterval = 30 * time.Second
	PongTimeout  = 60 * time.Second
	SetupTimeout = 15 * time.Second
)

var (
	ErrClosed        = errors.New("live: client closed")
	ErrSetupRejected = errors.New("live: setup rejected")
)

type Config struct {
	APIKey            string
	Endpoint          string
	Model             string
	SystemInstruction string
	InputSampleRate   int

	// SendBuffer bounds the outbound frame queue. Frames submitted while
	// it is full are dropped.
	SendBuffer int
	// EventBuffer bounds the inbound event queue.
	EventBuffer int

	SetupTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.InputSampleRate == 0 {
		c.InputSampleRate = pcm.InputSampleRate
	}
	if c.SendBuffer == 0 {
		c.SendBuffer = 64
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = 256
	}
	if c.SetupTimeout == 0 {
		c.SetupTimeout = SetupTimeout
	}
	return c
}

type Client struct {
	cfg    Config
	logger *log.Logger

	outbound chan []byte
	events   chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *websocket.Conn
	opening bool
	running bool

	closing   atomic.Bool
	closeOnce sync.Once
	finalOnce sync.Once
	wg        sync.WaitGroup

	sent     atomic.Int64
	dropped  atomic.Int64
	dropWarn rate.Sometimes
}

func New(cfg Config, logger *log.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:      cfg,
		logger:   logger,
		outbound: make(chan []byte, cfg.SendBuffer),
		events:   make(chan Event, cfg.EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
		dropWarn: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

func (c *Client) url() (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Open connects, performs the setup handshake and starts streaming. Frames
// sent before Open are delivered once the connection is up.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closing.Load() {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opening || c.running {
		c.mu.Unlock()
		return errors.New("live: already opened")
	}
	c.opening = true
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.opening = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.opening = false
	if c.closing.Load() {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.running = true
	c.wg.Add(3)
	c.mu.Unlock()

	c.logger.Info("session open", "model", c.cfg.Model)
	c.emit(Event{Kind: Opened})

	go c.readLoop(conn)
	go c.writeLoop(conn)
	go c.keepAlive(conn)

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := c.url()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.SetupTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	if err := conn.WriteJSON(newSetupMessage(c.cfg)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send setup message: %w", err)
	}

	deadline, _ := dialCtx.Deadline()
	conn.SetReadDeadline(deadline)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation, websocket.CloseInvalidFramePayloadData, websocket.CloseInternalServerErr) {
				return nil, fmt.Errorf("%w: %w", ErrSetupRejected, err)
			}
			return nil, fmt.Errorf("waiting for setup: %w", err)
		}

		msg, err := decodeServerMessage(data)
		if err != nil {
			c.logger.Warn("skipping message before setup", "error", err)
			continue
		}
		if msg.SetupComplete != nil {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})

	return conn, nil
}

// Send queues one encoded frame. It never blocks: a full queue drops the
// frame and an occasional warning is logged.
func (c *Client) Send(frame []byte) {
	if c.closing.Load() {
		return
	}

	select {
	case c.outbound <- frame:
	default:
		n := c.dropped.Add(1)
		c.dropWarn.Do(func() {
			c.logger.Warn("audio buffer full, dropping frames", "dropped", n)
		})
	}
}

// Events delivers the inbound stream in arrival order. The channel is
// closed after the final Closed or Errored event.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// finish sends the final lifecycle event and closes the event stream.
func (c *Client) finish(ev Event) {
	c.finalOnce.Do(func() {
		select {
		case c.events <- ev:
		case <-c.ctx.Done():
			select {
			case c.events <- ev:
			default:
			}
		}
		close(c.events)
	})
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	defer c.cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Info("session closed")
				c.finish(Event{Kind: Closed})
				return
			}
			c.logger.Error("connection lost", "error", err)
			c.finish(Event{Kind: Errored, Err: fmt.Errorf("read: %w", err)})
			return
		}

		msg, err := decodeServerMessage(data)
		if err != nil {
			c.logger.Warn("skipping message", "error", err)
			continue
		}

		if msg.GoAway != nil {
			c.logger.Warn("server going away", "timeLeft", msg.GoAway.TimeLeft)
		}
		if msg.ServerContent != nil && msg.ServerContent.Interrupted {
			c.logger.Debug("model turn interrupted")
		}

		events, err := msg.events()
		if err != nil {
			c.logger.Warn("skipping bad audio", "error", err)
		}
		for _, ev := range events {
			if !c.emit(ev) {
				c.finish(Event{Kind: Closed})
				return
			}
		}
	}
}

func (c *Client) writeLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	mime := pcm.MimeType(c.cfg.InputSampleRate)
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.outbound:
			msg := realtimeInputMessage{
				RealtimeInput: realtimeInput{
					MediaChunks: []blob{{MimeType: mime, Data: frame}},
				},
			}
			if err := conn.WriteJSON(msg); err != nil {
				if !c.closing.Load() {
					c.logger.Error("failed to send audio", "error", err)
				}
				return
			}
			c.sent.Add(1)
		}
	}
}

func (c *Client) keepAlive(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(PongTimeout)); err != nil {
				c.logger.Error("failed to send ping", "error", err)
				return
			}
		}
	}
}

// Close ends the session. It is safe to call more than once, before Open,
// and while Open is still in flight.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		c.mu.Lock()
		conn := c.conn
		running := c.running
		c.mu.Unlock()

		if conn != nil {
			werr := conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
				c.logger.Debug("close frame not sent", "error", werr)
			}
			if cerr := conn.Close(); cerr != nil {
				err = fmt.Errorf("failed to close WebSocket connection: %w", cerr)
			}
		}

		c.cancel()
		c.wg.Wait()

		if !running {
			c.finish(Event{Kind: Closed})
		}

		c.logger.Info("transport released",
			"sent", c.sent.Load(), "dropped", c.dropped.Load())
	})
	return err
}

func (c *Client) Stats() (sent, dropped int64) {
	return c.sent.Load(), c.dropped.Load()
}
