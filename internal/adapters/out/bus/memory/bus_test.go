package memory_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/bus/memory"
	"ordersaga/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *memory.Bus {
	t.Helper()
	bus := memory.New(memory.Config{Partitions: 4, MaxAttempts: 3, InitialDelay: time.Millisecond}, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

type recorder struct {
	mu   sync.Mutex
	msgs []ports.Message
}

func (r *recorder) handle(_ context.Context, msg ports.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) ids(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, m := range r.msgs {
		if key == "" || m.Key == key {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func TestBus_DeliversToEveryGroupInKeyOrder(t *testing.T) {
	ctx := t.Context()
	bus := newBus(t)
	saga, tracker := &recorder{}, &recorder{}
	require.NoError(t, bus.Subscribe(ctx, "saga", []string{"order.created", "order.paid"}, saga.handle))
	require.NoError(t, bus.Subscribe(ctx, "tracker", []string{"order.paid"}, tracker.handle))

	var want []string
	for i := range 20 {
		id := fmt.Sprintf("m%d", i)
		want = append(want, id)
		require.NoError(t, bus.Publish(ctx, ports.Message{ID: id, Topic: "order.paid", Key: "order-1"}))
	}
	require.NoError(t, bus.Publish(ctx, ports.Message{ID: "c1", Topic: "order.created", Key: "order-2"}))
	require.NoError(t, bus.Publish(ctx, ports.Message{ID: "x1", Topic: "order.unknown", Key: "order-2"}))

	require.Eventually(t, func() bool { return len(saga.ids("")) == 21 && len(tracker.ids("")) == 20 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, want, saga.ids("order-1"))
	assert.Equal(t, want, tracker.ids("order-1"))
	assert.Equal(t, []string{"c1"}, saga.ids("order-2"))
}

func TestBus_RetriesThenDrops(t *testing.T) {
	ctx := t.Context()
	bus := newBus(t)
	var calls atomic.Int32
	next := &recorder{}
	require.NoError(t, bus.Subscribe(ctx, "saga", []string{"t"}, func(ctx context.Context, msg ports.Message) error {
		if msg.ID == "poison" {
			calls.Add(1)
			return errors.New("boom")
		}
		return next.handle(ctx, msg)
	}))

	require.NoError(t, bus.Publish(ctx,
		ports.Message{ID: "poison", Topic: "t", Key: "k"},
		ports.Message{ID: "ok", Topic: "t", Key: "k"},
	))

	require.Eventually(t, func() bool { return len(next.ids("")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBus_Redelivery(t *testing.T) {
	ctx := t.Context()
	bus := newBus(t)
	var calls atomic.Int32
	require.NoError(t, bus.Subscribe(ctx, "saga", []string{"t"}, func(context.Context, ports.Message) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, ports.Message{ID: "m", Topic: "t", Key: "k"}))

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestBus_SubscribeErrors(t *testing.T) {
	ctx := t.Context()
	bus := newBus(t)
	noop := func(context.Context, ports.Message) error { return nil }

	require.ErrorIs(t, bus.Subscribe(ctx, "g", nil, noop), memory.ErrNoTopics)
	require.ErrorIs(t, bus.Subscribe(ctx, "g", []string{"t"}, nil), memory.ErrHandlerIsRequired)
	require.NoError(t, bus.Subscribe(ctx, "g", []string{"t"}, noop))
	require.ErrorIs(t, bus.Subscribe(ctx, "g", []string{"t"}, noop), memory.ErrGroupSubscribed)

	require.NoError(t, bus.Close())
	require.ErrorIs(t, bus.Publish(ctx, ports.Message{ID: "m", Topic: "t"}), memory.ErrBusClosed)
}
