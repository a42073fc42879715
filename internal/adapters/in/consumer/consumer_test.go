package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ordersaga/internal/adapters/in/consumer"
	"ordersaga/internal/adapters/out/memory"
	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/order/ordertest"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// captureBus records subscriptions so tests can call the handlers directly.
type captureBus struct {
	topics   map[string][]string
	handlers map[string]ports.MessageHandler
}

func newCaptureBus() *captureBus {
	return &captureBus{topics: map[string][]string{}, handlers: map[string]ports.MessageHandler{}}
}

func (b *captureBus) Publish(context.Context, ...ports.Message) error { return nil }
func (b *captureBus) Close() error                                    { return nil }

func (b *captureBus) Subscribe(_ context.Context, group string, topics []string, h ports.MessageHandler) error {
	b.topics[group] = topics
	b.handlers[group] = h
	return nil
}

type brokenUoW struct{}

func (brokenUoW) Begin(context.Context) error              { return errors.New("database is down") }
func (brokenUoW) Commit(context.Context) error             { return nil }
func (brokenUoW) Rollback(context.Context) error           { return nil }
func (brokenUoW) OrderRepository() ports.OrderRepository   { return nil }
func (brokenUoW) OutboxRepository() ports.OutboxRepository { return nil }
func (brokenUoW) InboxRepository() ports.InboxRepository   { return nil }

type fixture struct {
	store *memory.Store
	bus   *captureBus
	uow   *memory.UnitOfWorkFactory
}

func newFixture(t *testing.T, orderFactory commands.OrderUoWFactory) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	factory := memory.NewUnitOfWorkFactory(store)
	orders, tracks, _ := commands.FromUnitOfWork(factory)
	if orderFactory == nil {
		orderFactory = orders
	}
	clk := clock.NewManual(now)
	writer := commands.NewOrderWriter(orderFactory, newCaptureBus(), clk, logger)

	c := consumer.New(consumer.Handlers{
		RestaurantSignal: commands.NewRestaurantSignalCommandHandler(writer),
		ProjectDelivery:  commands.NewProjectDeliveryCommandHandler(tracks, clk),
	}, logger)
	bus := newCaptureBus()
	require.NoError(t, c.Subscribe(context.Background(), bus))

	return &fixture{store: store, bus: bus, uow: factory}
}

func (f *fixture) seed(t *testing.T, o *order.Order) {
	t.Helper()
	require.NoError(t, f.uow.Create().OrderRepository().Save(context.Background(), o))
}

func (f *fixture) status(t *testing.T, id kernel.UUID) order.Status {
	t.Helper()
	o, err := f.uow.Create().OrderRepository().Get(context.Background(), id)
	require.NoError(t, err)
	return o.Status()
}

func restaurantMessage(t *testing.T, id, topic string, orderID kernel.UUID) ports.Message {
	t.Helper()
	body, err := json.Marshal(consumer.RestaurantSignalMessage{OrderID: orderID})
	require.NoError(t, err)
	return ports.Message{ID: id, Topic: topic, Key: orderID.String(), Payload: body}
}

func TestConsumer_Subscribe(t *testing.T) {
	f := newFixture(t, nil)

	assert.ElementsMatch(t, []string{
		"order.payment_requested", "order.restaurant_rejected", "order.cancelled", "order.payment_completed",
		"order.ready_for_pickup", "order.assignment_rejected", "order.assignment_cancelled",
		"order.reassignment_started", "order.assignment_timed_out", "order.retry_requested",
		"driver.offer_expired", "restaurant.confirmed", "restaurant.rejected", "restaurant.preparing",
		"restaurant.ready",
	}, f.bus.topics[consumer.GroupSaga])
	assert.ElementsMatch(t, []string{
		"order.driver_assigned", "order.delivered", "order.cancelled", "order.assignment_cancelled",
		"order.assignment_rejected", "order.assignment_timed_out",
	}, f.bus.topics[consumer.GroupRegistry])
	assert.ElementsMatch(t, []string{
		"order.driver_assigned", "order.picked_up", "order.delivered", "order.cancelled",
		"order.assignment_cancelled",
	}, f.bus.topics[consumer.GroupTracker])
}

func TestConsumer_RestaurantSignal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	o := ordertest.Paid(t, now)
	f.seed(t, o)
	saga := f.bus.handlers[consumer.GroupSaga]

	t.Run("applies the signal", func(t *testing.T) {
		require.NoError(t, saga(ctx, restaurantMessage(t, "m-1", consumer.TopicRestaurantConfirmed, o.ID())))
		assert.Equal(t, order.RestaurantConfirmed, f.status(t, o.ID()))
	})

	t.Run("drops a redelivered message", func(t *testing.T) {
		require.NoError(t, saga(ctx, restaurantMessage(t, "m-1", consumer.TopicRestaurantConfirmed, o.ID())))
		assert.Equal(t, order.RestaurantConfirmed, f.status(t, o.ID()))
	})

	t.Run("drops an out of order signal", func(t *testing.T) {
		require.NoError(t, saga(ctx, restaurantMessage(t, "m-2", consumer.TopicRestaurantReady, o.ID())))
		assert.Equal(t, order.RestaurantConfirmed, f.status(t, o.ID()))
	})

	t.Run("drops a malformed message", func(t *testing.T) {
		msg := ports.Message{ID: "m-3", Topic: consumer.TopicRestaurantPreparing, Payload: []byte("{")}
		require.NoError(t, saga(ctx, msg))
	})

	t.Run("drops signals for unknown orders", func(t *testing.T) {
		require.NoError(t, saga(ctx, restaurantMessage(t, "m-4", consumer.TopicRestaurantPreparing, kernel.NewUUID())))
	})

	t.Run("ignores unrouted topics", func(t *testing.T) {
		require.NoError(t, saga(ctx, ports.Message{ID: "m-5", Topic: "order.picked_up"}))
	})
}

func TestConsumer_ReturnsInfrastructureErrors(t *testing.T) {
	f := newFixture(t, commands.OrderUoWFactoryFunc(func() commands.OrderUoW { return brokenUoW{} }))
	saga := f.bus.handlers[consumer.GroupSaga]

	err := saga(context.Background(), restaurantMessage(t, "m-1", consumer.TopicRestaurantConfirmed, kernel.NewUUID()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is down")
}

func TestConsumer_ProjectsDeliveries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	driverID := kernel.NewUUID()
	o := ordertest.Assigned(t, driverID, now)
	events := o.Changes()
	f.seed(t, o)

	var assigned *order.Event
	for _, e := range events {
		if e.Type() == order.EventDriverAssigned {
			assigned = e
		}
	}
	require.NotNil(t, assigned)
	body, err := json.Marshal(assigned)
	require.NoError(t, err)

	tracker := f.bus.handlers[consumer.GroupTracker]
	msg := ports.Message{ID: assigned.ID().String(), Topic: assigned.Type().Topic(), Key: o.ID().String(), Payload: body}
	require.NoError(t, tracker(ctx, msg))
	require.NoError(t, tracker(ctx, msg))

	delivery, err := f.uow.Create().TrackingRepository().GetDelivery(ctx, o.ID())
	require.NoError(t, err)
	require.NotNil(t, delivery.DriverID)
	assert.Equal(t, driverID, *delivery.DriverID)
	assert.Equal(t, order.DriverAssigned, delivery.Status)
}
