// Package broadcast mirrors live captions onto a Redis channel so a second
// screen, such as one facing the customer, can follow the conversation.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"node.town/autolingo/etc"
	"node.town/autolingo/model"
	"node.town/autolingo/session"
)

const DefaultChannel = "autolingo:captions"

type Kind string

const (
	KindCaption   Kind = "caption"
	KindCommitted Kind = "committed"
	KindState     Kind = "state"
)

type Message struct {
	Kind    Kind                    `json:"kind"`
	Session string                  `json:"session,omitempty"`
	Source  string                  `json:"source,omitempty"`
	Target  string                  `json:"target,omitempty"`
	Entries []model.TranscriptEntry `json:"entries,omitempty"`
	State   string                  `json:"state,omitempty"`
	At      int64                   `json:"at"`
}

func DecodeMessage(payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, fmt.Errorf("decode caption message: %w", err)
	}
	return msg, nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Publisher is a session.Observer. Messages are queued and published from
// a single goroutine so the session never waits on Redis.
type Publisher struct {
	client  publisher
	closer  func() error
	channel string
	logger  *log.Logger

	mu      sync.Mutex
	session string
	closed  bool

	queue    chan Message
	done     chan struct{}
	once     sync.Once
	dropWarn rate.Sometimes
}

func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func New(ctx context.Context, addr, channel string, logger *log.Logger) (*Publisher, error) {
	rdb, err := Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return newPublisher(rdb, rdb.Close, channel, logger), nil
}

func newPublisher(client publisher, closer func() error, channel string, logger *log.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}

	p := &Publisher{
		client:   client,
		closer:   closer,
		channel:  channel,
		logger:   logger,
		queue:    make(chan Message, 64),
		done:     make(chan struct{}),
		dropWarn: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	go p.run()
	return p
}

// SetSession tags subsequent messages with a session id.
func (p *Publisher) SetSession(id string) {
	p.mu.Lock()
	p.session = id
	p.mu.Unlock()
}

func (p *Publisher) run() {
	defer close(p.done)

	for msg := range p.queue {
		raw, err := json.Marshal(msg)
		if err != nil {
			p.logger.Error("encode caption message", "error", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = p.client.Publish(ctx, p.channel, raw).Err()
		cancel()
		if err != nil {
			p.logger.Warn("publish caption", "error", err)
		}
	}
}

func (p *Publisher) enqueue(msg Message) {
	msg.At = etc.NowMillis()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	msg.Session = p.session

	select {
	case p.queue <- msg:
	default:
		p.dropWarn.Do(func() {
			p.logger.Warn("caption queue full, dropping", "kind", msg.Kind)
		})
	}
}

// Level is not broadcast; it changes far too often to be useful remotely.
func (p *Publisher) Level(float64) {}

func (p *Publisher) Caption(source, target string) {
	p.enqueue(Message{Kind: KindCaption, Source: source, Target: target})
}

func (p *Publisher) Committed(entries []model.TranscriptEntry) {
	p.enqueue(Message{Kind: KindCommitted, Entries: entries})
}

func (p *Publisher) StateChanged(state session.State) {
	p.enqueue(Message{Kind: KindState, State: state.String()})
}

// Close flushes queued messages and disconnects.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		if p.closer != nil {
			err = p.closer()
		}
	})
	return err
}

// Subscribe calls fn for every message on channel until ctx is done.
func Subscribe(ctx context.Context, addr, channel string, logger *log.Logger, fn func(Message)) error {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}

	rdb, err := Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	logger.Info("listening for captions", "channel", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok || m == nil {
				return nil
			}
			msg, err := DecodeMessage(m.Payload)
			if err != nil {
				logger.Warn("bad caption payload", "error", err)
				continue
			}
			fn(msg)
		}
	}
}
