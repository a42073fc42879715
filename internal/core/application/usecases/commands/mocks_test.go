package commands_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	switch v := args.Get(0).(type) {
	case *order.Order:
		return v, args.Error(1)
	case func() *order.Order:
		return v(), args.Error(1)
	default:
		return nil, args.Error(1)
	}
}

func (m *MockOrderRepository) Events(ctx context.Context, id kernel.UUID) ([]*order.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]*order.Event), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindStalled(
	ctx context.Context, now time.Time, grace time.Duration, limit int,
) ([]kernel.UUID, error) {
	args := m.Called(ctx, now, grace, limit)
	return args.Get(0).([]kernel.UUID), args.Error(1)
}

type MockOutboxRepository struct{ mock.Mock }

func (m *MockOutboxRepository) Add(ctx context.Context, msgs ...ports.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockOutboxRepository) HasPending(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockOutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]ports.OutboxEntry, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]ports.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	args := m.Called(ctx, id, nextAttemptAt, lastError)
	return args.Error(0)
}

type MockInboxRepository struct{ mock.Mock }

func (m *MockInboxRepository) MarkProcessed(ctx context.Context, consumer, messageID string, at time.Time) (bool, error) {
	args := m.Called(ctx, consumer, messageID, at)
	return args.Bool(0), args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockOrderUoW) OutboxRepository() ports.OutboxRepository {
	args := m.Called()
	return args.Get(0).(ports.OutboxRepository)
}

func (m *MockOrderUoW) InboxRepository() ports.InboxRepository {
	args := m.Called()
	return args.Get(0).(ports.InboxRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, msgs ...ports.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
