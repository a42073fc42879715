package commands_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/memory"
	"ordersaga/internal/adapters/out/payment"
	"ordersaga/internal/adapters/out/registry"
	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/clock"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []ports.Message
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, msgs ...ports.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *recordingPublisher) setFail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		topics[i] = m.Topic
	}
	return topics
}

func (p *recordingPublisher) all() []ports.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.msgs)
}

func (p *recordingPublisher) published(topic string) []ports.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.DeleteFunc(slices.Clone(p.msgs), func(m ports.Message) bool { return m.Topic != topic })
}

// harness wires command handlers to the in-memory adapters.
type harness struct {
	store      *memory.Store
	uow        *memory.UnitOfWorkFactory
	orders     commands.OrderUoWFactoryFunc
	tracks     commands.TrackingUoWFactoryFunc
	outbox     commands.OutboxUoWFactoryFunc
	clock      *clock.Manual
	publisher  *recordingPublisher
	gateway    *payment.SimulatedGateway
	registry   *registry.Registry
	writer     *commands.OrderWriter
	retry      services.RetryPolicy
	assignment services.AssignmentPolicy
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	factory := memory.NewUnitOfWorkFactory(store)
	orders, tracks, outbox := commands.FromUnitOfWork(factory)
	clk := clock.NewManual(testNow)

	matcher, err := services.NewDriverMatcher(services.DefaultMatchingPolicy())
	require.NoError(t, err)
	reg := registry.New(registry.Config{Partitions: 4}, matcher, clk, discardLogger())
	t.Cleanup(reg.Stop)

	publisher := &recordingPublisher{}
	return &harness{
		store:      store,
		uow:        factory,
		orders:     orders,
		tracks:     tracks,
		outbox:     outbox,
		clock:      clk,
		publisher:  publisher,
		gateway:    payment.NewSimulatedGateway(),
		registry:   reg,
		writer:     commands.NewOrderWriter(orders, publisher, clk, discardLogger()),
		retry:      services.DefaultRetryPolicy(),
		assignment: services.DefaultAssignmentPolicy(),
	}
}

func (h *harness) seed(t *testing.T, o *order.Order) kernel.UUID {
	t.Helper()
	require.NoError(t, h.uow.Create().OrderRepository().Save(context.Background(), o))
	return o.ID()
}

func (h *harness) get(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	o, err := h.uow.Create().OrderRepository().Get(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (h *harness) driverOnline(t *testing.T, lat, lng float64) kernel.UUID {
	t.Helper()
	id := kernel.NewUUID()
	rating := 4.5
	require.NoError(t, h.registry.Heartbeat(context.Background(), ports.DriverHeartbeat{
		DriverID:    id,
		Location:    kernel.MustNewLocation(lat, lng),
		IsAvailable: true,
		AvgRating:   &rating,
		At:          h.clock.Now(),
	}))
	return id
}

func (h *harness) processPayment() commands.ProcessPaymentCommandHandler {
	return commands.NewProcessPaymentCommandHandler(h.orders, h.writer, h.gateway, h.retry, discardLogger())
}

func (h *harness) requestRefund() commands.RequestRefundCommandHandler {
	return commands.NewRequestRefundCommandHandler(h.orders, h.writer, h.gateway, h.retry, discardLogger())
}

func (h *harness) requestDriver() commands.RequestDriverCommandHandler {
	return commands.NewRequestDriverCommandHandler(h.orders, h.writer, h.registry, h.clock,
		h.assignment, h.retry, discardLogger())
}

func (h *harness) acceptAssignment() commands.AcceptAssignmentCommandHandler {
	return commands.NewAcceptAssignmentCommandHandler(h.writer, h.registry,
		services.DefaultDeliveryEstimator(), discardLogger())
}

func (h *harness) sweep() commands.SweepStalledOrdersCommandHandler {
	return commands.NewSweepStalledOrdersCommandHandler(h.orders, h.writer, h.clock, h.retry, discardLogger())
}

func (h *harness) relay() commands.RelayOutboxCommandHandler {
	return commands.NewRelayOutboxCommandHandler(h.outbox, h.publisher, h.clock, h.retry, discardLogger())
}

// offered returns a ready order holding a pending offer to a fresh driver.
func (h *harness) offered(t *testing.T, ready *order.Order) (kernel.UUID, kernel.UUID) {
	t.Helper()
	id := h.seed(t, ready)
	driverID := h.driverOnline(t, 52.521, 13.406)
	cmd, err := commands.NewRequestDriverCommand(id)
	require.NoError(t, err)
	require.NoError(t, h.requestDriver().Handle(context.Background(), cmd))
	return id, driverID
}

func (h *harness) advance(d time.Duration) time.Time {
	return h.clock.Advance(d)
}
