// Package memory is an in-process ports.EventBus.
//
// Every consumer group gets its own set of lanes. A message goes to the lane
// picked by hashing its key, and each lane is drained by one goroutine, so
// messages with the same key reach a group in publish order while different
// keys are handled in parallel. A failing handler is retried with exponential
// backoff; after MaxAttempts the message is logged and dropped.
package memory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ordersaga/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBusClosed         = errors.New("event bus is closed")
	ErrGroupSubscribed   = errors.New("consumer group is already subscribed")
	ErrNoTopics          = errors.New("at least one topic is required")
	ErrHandlerIsRequired = errors.New("handler is required")
)

type Config struct {
	// Partitions is the number of lanes per consumer group.
	Partitions int
	// MaxAttempts bounds deliveries of one message to one group.
	MaxAttempts  int
	InitialDelay time.Duration
}

func DefaultConfig() Config {
	return Config{Partitions: 8, MaxAttempts: 5, InitialDelay: 50 * time.Millisecond}
}

type Bus struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	groups map[string]*group
	closed bool

	done    chan struct{}
	workers errgroup.Group
}

func New(cfg Config, logger *slog.Logger) *Bus {
	if cfg.Partitions < 1 {
		cfg.Partitions = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Bus{
		cfg:    cfg,
		logger: logger.With("component", "memory_bus"),
		groups: make(map[string]*group),
		done:   make(chan struct{}),
	}
}

type group struct {
	name    string
	topics  []string
	handler ports.MessageHandler
	lanes   []*lane
}

type lane struct {
	mu     sync.Mutex
	queue  []ports.Message
	notify chan struct{}
}

func (l *lane) push(msg ports.Message) {
	l.mu.Lock()
	l.queue = append(l.queue, msg)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *lane) pop() (ports.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return ports.Message{}, false
	}
	msg := l.queue[0]
	l.queue[0] = ports.Message{}
	l.queue = l.queue[1:]
	return msg, true
}

// Publish enqueues msgs for every subscribed group and never blocks on
// consumers.
func (b *Bus) Publish(_ context.Context, msgs ...ports.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	for _, msg := range msgs {
		for _, g := range b.groups {
			if !slices.Contains(g.topics, msg.Topic) {
				continue
			}
			g.lanes[b.laneOf(msg.Key)].push(msg)
		}
	}
	return nil
}

// Subscribe registers the group and returns. Delivery runs until ctx is done
// or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, name string, topics []string, handler ports.MessageHandler) error {
	if len(topics) == 0 {
		return ErrNoTopics
	}
	if handler == nil {
		return ErrHandlerIsRequired
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.groups[name]; ok {
		return fmt.Errorf("%w: %s", ErrGroupSubscribed, name)
	}

	g := &group{name: name, topics: slices.Clone(topics), handler: handler, lanes: make([]*lane, b.cfg.Partitions)}
	for i := range g.lanes {
		g.lanes[i] = &lane{notify: make(chan struct{}, 1)}
	}
	b.groups[name] = g

	for _, l := range g.lanes {
		b.workers.Go(func() error {
			b.drain(ctx, g, l)
			return nil
		})
	}
	b.logger.Info("consumer group subscribed", "group", name, "topics", topics)
	return nil
}

// Close stops accepting messages and waits for the lane workers to stop.
// Messages still queued are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	return b.workers.Wait()
}

func (b *Bus) drain(ctx context.Context, g *group, l *lane) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-l.notify:
		}
		for {
			msg, ok := l.pop()
			if !ok {
				break
			}
			b.deliver(ctx, g, msg)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (b *Bus) deliver(ctx context.Context, g *group, msg ports.Message) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.cfg.InitialDelay
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := g.handler(ctx, msg)
		if err != nil {
			b.logger.WarnContext(ctx, "handler failed", "group", g.name, "topic", msg.Topic,
				"message_id", msg.ID, "attempt", attempt, "error", err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(b.cfg.MaxAttempts-1)), ctx))
	if err != nil && ctx.Err() == nil {
		b.logger.ErrorContext(ctx, "message dropped after retries", "group", g.name, "topic", msg.Topic,
			"message_id", msg.ID, "key", msg.Key, "attempts", attempt, "error", err)
	}
}

func (b *Bus) laneOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(b.cfg.Partitions))
}
