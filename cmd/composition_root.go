package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ordersaga/internal/adapters/in/consumer"
	httpapi "ordersaga/internal/adapters/in/http"
	membus "ordersaga/internal/adapters/out/bus/memory"
	"ordersaga/internal/adapters/out/bus/rabbitmq"
	"ordersaga/internal/adapters/out/memory"
	"ordersaga/internal/adapters/out/payment"
	"ordersaga/internal/adapters/out/postgres"
	"ordersaga/internal/adapters/out/registry"
	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/application/usecases/queries"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/jobs"
	"ordersaga/internal/pkg/clock"

	"github.com/labstack/echo/v4"
)

type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger
	clock  ports.Clock

	uowFactory ports.UnitOfWorkFactory
	orders     commands.OrderUoWFactory
	tracks     commands.TrackingUoWFactory
	outbox     commands.OutboxUoWFactory

	bus      ports.EventBus
	registry *registry.Registry
	gateway  ports.PaymentGateway
	writer   *commands.OrderWriter

	closers []func() error
}

// NewCompositionRoot opens the configured storage and bus and builds the
// shared collaborators. Close releases them.
func NewCompositionRoot(ctx context.Context, cfg Config, logger *slog.Logger) (*CompositionRoot, error) {
	return newCompositionRoot(ctx, cfg, logger, clock.System{})
}

func newCompositionRoot(ctx context.Context, cfg Config, logger *slog.Logger, clk ports.Clock) (*CompositionRoot, error) {
	c := &CompositionRoot{cfg: cfg, logger: logger, clock: clk}

	if err := c.openStorage(ctx); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	if err := c.openBus(); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	matcher, err := services.NewDriverMatcher(cfg.Matching)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}
	c.registry = registry.New(registry.Config{Partitions: cfg.RegistryPartitions}, matcher, c.clock, logger)
	c.closers = append(c.closers, func() error {
		c.registry.Stop()
		return nil
	})

	switch cfg.Payment.Mode {
	case PaymentHTTP:
		c.gateway = payment.NewHTTPGateway(payment.HTTPConfig{
			BaseURL:    cfg.Payment.BaseURL,
			Timeout:    cfg.Payment.Timeout,
			MaxElapsed: cfg.Payment.MaxElapsed,
		})
	default:
		c.gateway = payment.NewSimulatedGateway(cfg.Payment.DeclinedMethods...)
	}

	c.orders, c.tracks, c.outbox = commands.FromUnitOfWork(c.uowFactory)
	c.writer = commands.NewOrderWriter(c.orders, c.bus, c.clock, logger)
	return c, nil
}

func (c *CompositionRoot) openStorage(ctx context.Context) error {
	if c.cfg.Storage == BackendMemory {
		c.uowFactory = memory.NewUnitOfWorkFactory(memory.NewStore())
		return nil
	}

	db, err := postgres.Open(ctx, postgres.Config{
		DSN:             c.cfg.Postgres.DSN(),
		MaxOpenConns:    c.cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    c.cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: c.cfg.Postgres.ConnMaxLifetime,
		Migrate:         c.cfg.Postgres.Migrate,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	c.closers = append(c.closers, func() error { return postgres.Close(db) })
	c.uowFactory = postgres.NewGormUnitOfWorkFactory(db)
	return nil
}

func (c *CompositionRoot) openBus() error {
	if c.cfg.Bus == BackendMemory {
		cfg := membus.DefaultConfig()
		cfg.Partitions = c.cfg.BusPartitions
		c.bus = membus.New(cfg, c.logger)
		c.closers = append(c.closers, c.bus.Close)
		return nil
	}

	cfg := rabbitmq.DefaultConfig(c.cfg.RabbitMQ.URL)
	cfg.Exchange = c.cfg.RabbitMQ.Exchange
	cfg.QueuePrefix = c.cfg.RabbitMQ.QueuePrefix
	cfg.Prefetch = c.cfg.RabbitMQ.Prefetch
	cfg.DeliveryLimit = c.cfg.RabbitMQ.DeliveryLimit
	bus, err := rabbitmq.Dial(cfg, c.logger)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	c.bus = bus
	c.closers = append(c.closers, bus.Close)
	return nil
}

// Close releases the collaborators in reverse order of creation.
func (c *CompositionRoot) Close() error {
	var errList []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errList = append(errList, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errList...)
}

func (c *CompositionRoot) Bus() ports.EventBus { return c.bus }

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.writer, c.clock, c.cfg.Estimator, c.cfg.TaxRate)
}

func (c *CompositionRoot) CreateCancelOrderCommandHandler() commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateRestaurantSignalCommandHandler() commands.RestaurantSignalCommandHandler {
	return commands.NewRestaurantSignalCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateProcessPaymentCommandHandler() commands.ProcessPaymentCommandHandler {
	return commands.NewProcessPaymentCommandHandler(c.orders, c.writer, c.gateway, c.cfg.Retry, c.logger)
}

func (c *CompositionRoot) CreateRequestRefundCommandHandler() commands.RequestRefundCommandHandler {
	return commands.NewRequestRefundCommandHandler(c.orders, c.writer, c.gateway, c.cfg.Retry, c.logger)
}

func (c *CompositionRoot) CreateRequestDriverCommandHandler() commands.RequestDriverCommandHandler {
	return commands.NewRequestDriverCommandHandler(c.orders, c.writer, c.registry, c.clock,
		c.cfg.Assignment, c.cfg.Retry, c.logger)
}

func (c *CompositionRoot) CreateAcceptAssignmentCommandHandler() commands.AcceptAssignmentCommandHandler {
	return commands.NewAcceptAssignmentCommandHandler(c.writer, c.registry, c.cfg.Estimator, c.logger)
}

func (c *CompositionRoot) CreateRejectAssignmentCommandHandler() commands.RejectAssignmentCommandHandler {
	return commands.NewRejectAssignmentCommandHandler(c.writer, c.registry, c.logger)
}

func (c *CompositionRoot) CreateCancelAssignmentCommandHandler() commands.CancelAssignmentCommandHandler {
	return commands.NewCancelAssignmentCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateStartReassignmentCommandHandler() commands.StartReassignmentCommandHandler {
	return commands.NewStartReassignmentCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateExpireAssignmentCommandHandler() commands.ExpireAssignmentCommandHandler {
	return commands.NewExpireAssignmentCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateConfirmPickupCommandHandler() commands.ConfirmPickupCommandHandler {
	return commands.NewConfirmPickupCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateConfirmDeliveryCommandHandler() commands.ConfirmDeliveryCommandHandler {
	return commands.NewConfirmDeliveryCommandHandler(c.writer)
}

func (c *CompositionRoot) CreateRecordDriverHeartbeatCommandHandler() commands.RecordDriverHeartbeatCommandHandler {
	return commands.NewRecordDriverHeartbeatCommandHandler(c.registry, c.clock)
}

func (c *CompositionRoot) CreateSubmitDriverLocationCommandHandler() commands.SubmitDriverLocationCommandHandler {
	return commands.NewSubmitDriverLocationCommandHandler(c.tracks, c.logger)
}

func (c *CompositionRoot) CreateSyncDriverLoadCommandHandler() commands.SyncDriverLoadCommandHandler {
	return commands.NewSyncDriverLoadCommandHandler(c.registry)
}

func (c *CompositionRoot) CreateProjectDeliveryCommandHandler() commands.ProjectDeliveryCommandHandler {
	return commands.NewProjectDeliveryCommandHandler(c.tracks, c.clock)
}

func (c *CompositionRoot) CreateSweepStalledOrdersCommandHandler() commands.SweepStalledOrdersCommandHandler {
	return commands.NewSweepStalledOrdersCommandHandler(c.orders, c.writer, c.clock, c.cfg.Retry, c.logger)
}

func (c *CompositionRoot) CreateExpireDriverOffersCommandHandler() commands.ExpireDriverOffersCommandHandler {
	return commands.NewExpireDriverOffersCommandHandler(c.registry, c.bus, c.clock, c.logger)
}

func (c *CompositionRoot) CreatePurgeStaleDriversCommandHandler() commands.PurgeStaleDriversCommandHandler {
	return commands.NewPurgeStaleDriversCommandHandler(c.registry, c.clock)
}

func (c *CompositionRoot) CreateRelayOutboxCommandHandler() commands.RelayOutboxCommandHandler {
	return commands.NewRelayOutboxCommandHandler(c.outbox, c.bus, c.clock, c.cfg.Retry, c.logger)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateListOrdersQueryHandler() queries.ListOrdersQueryHandler {
	return queries.NewListOrdersQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateGetOrderEventsQueryHandler() queries.GetOrderEventsQueryHandler {
	return queries.NewGetOrderEventsQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateGetTrailQueryHandler() queries.GetTrailQueryHandler {
	return queries.NewGetTrailQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateGetCurrentLocationQueryHandler() queries.GetCurrentLocationQueryHandler {
	return queries.NewGetCurrentLocationQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateListAvailableDriversQueryHandler() queries.ListAvailableDriversQueryHandler {
	return queries.NewListAvailableDriversQueryHandler(c.registry, c.clock)
}

// NewConsumer routes bus messages to the saga, registry and tracker handlers.
func (c *CompositionRoot) NewConsumer() *consumer.Consumer {
	return consumer.New(consumer.Handlers{
		ProcessPayment:    c.CreateProcessPaymentCommandHandler(),
		RequestRefund:     c.CreateRequestRefundCommandHandler(),
		RequestDriver:     c.CreateRequestDriverCommandHandler(),
		StartReassignment: c.CreateStartReassignmentCommandHandler(),
		ExpireAssignment:  c.CreateExpireAssignmentCommandHandler(),
		RestaurantSignal:  c.CreateRestaurantSignalCommandHandler(),
		SyncDriverLoad:    c.CreateSyncDriverLoadCommandHandler(),
		ProjectDelivery:   c.CreateProjectDeliveryCommandHandler(),
	}, c.logger)
}

func (c *CompositionRoot) NewJobManager() (*jobs.JobManager, error) {
	return jobs.NewJobManager(c.cfg.Jobs, jobs.Handlers{
		SweepStalledOrders: c.CreateSweepStalledOrdersCommandHandler(),
		ExpireDriverOffers: c.CreateExpireDriverOffersCommandHandler(),
		PurgeStaleDrivers:  c.CreatePurgeStaleDriversCommandHandler(),
		RelayOutbox:        c.CreateRelayOutboxCommandHandler(),
	}, c.logger)
}

func (c *CompositionRoot) NewHTTPServer() *echo.Echo {
	server := httpapi.NewServer(httpapi.Handlers{
		CreateOrder:        c.CreateCreateOrderCommandHandler(),
		CancelOrder:        c.CreateCancelOrderCommandHandler(),
		RestaurantSignal:   c.CreateRestaurantSignalCommandHandler(),
		AcceptAssignment:   c.CreateAcceptAssignmentCommandHandler(),
		RejectAssignment:   c.CreateRejectAssignmentCommandHandler(),
		CancelAssignment:   c.CreateCancelAssignmentCommandHandler(),
		StartReassignment:  c.CreateStartReassignmentCommandHandler(),
		ConfirmPickup:      c.CreateConfirmPickupCommandHandler(),
		ConfirmDelivery:    c.CreateConfirmDeliveryCommandHandler(),
		RecordHeartbeat:    c.CreateRecordDriverHeartbeatCommandHandler(),
		SubmitLocation:     c.CreateSubmitDriverLocationCommandHandler(),
		GetOrder:           c.CreateGetOrderQueryHandler(),
		ListOrders:         c.CreateListOrdersQueryHandler(),
		GetOrderEvents:     c.CreateGetOrderEventsQueryHandler(),
		GetTrail:           c.CreateGetTrailQueryHandler(),
		GetCurrentLocation: c.CreateGetCurrentLocationQueryHandler(),
		ListDrivers:        c.CreateListAvailableDriversQueryHandler(),
	}, c.clock, c.logger)
	return httpapi.NewRouter(server)
}
