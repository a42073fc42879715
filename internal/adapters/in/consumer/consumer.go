// Package consumer routes bus messages to command handlers.
//
// Three consumer groups are subscribed: the saga, which drives the order's
// internal steps; the driver registry, which keeps driver load in step with
// assignments; and the location tracker, which keeps its delivery view. Stale
// and duplicate messages are dropped and counted. Malformed messages are
// dropped and logged. Any other error is returned so the bus redelivers.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/metrics"
	"ordersaga/internal/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	GroupSaga     = "saga"
	GroupRegistry = "driver-registry"
	GroupTracker  = "location-tracker"
)

// Restaurant signal topics published by the restaurant collaborator.
const (
	TopicRestaurantConfirmed = "restaurant.confirmed"
	TopicRestaurantRejected  = "restaurant.rejected"
	TopicRestaurantPreparing = "restaurant.preparing"
	TopicRestaurantReady     = "restaurant.ready"
)

// RestaurantSignalMessage is the body of a restaurant.* message.
type RestaurantSignalMessage struct {
	OrderID kernel.UUID `json:"order_id"`
	Reason  string      `json:"reason,omitempty"`
}

// Handlers are the command handlers messages are routed to.
type Handlers struct {
	ProcessPayment    commands.ProcessPaymentCommandHandler
	RequestRefund     commands.RequestRefundCommandHandler
	RequestDriver     commands.RequestDriverCommandHandler
	StartReassignment commands.StartReassignmentCommandHandler
	ExpireAssignment  commands.ExpireAssignmentCommandHandler
	RestaurantSignal  commands.RestaurantSignalCommandHandler
	SyncDriverLoad    commands.SyncDriverLoadCommandHandler
	ProjectDelivery   commands.ProjectDeliveryCommandHandler
}

type Consumer struct {
	handlers Handlers
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(handlers Handlers, logger *slog.Logger) *Consumer {
	return &Consumer{
		handlers: handlers,
		logger:   logger.With("component", "consumer"),
		tracer:   tracing.Tracer("consumer"),
	}
}

type route func(ctx context.Context, msg ports.Message) error

// Subscribe registers the three consumer groups on bus.
func (c *Consumer) Subscribe(ctx context.Context, bus ports.EventBus) error {
	groups := []struct {
		name   string
		routes map[string]route
	}{
		{GroupSaga, c.sagaRoutes()},
		{GroupRegistry, c.registryRoutes()},
		{GroupTracker, c.trackerRoutes()},
	}
	for _, g := range groups {
		topics := make([]string, 0, len(g.routes))
		for topic := range g.routes {
			topics = append(topics, topic)
		}
		if err := bus.Subscribe(ctx, g.name, topics, c.dispatch(g.name, g.routes)); err != nil {
			return fmt.Errorf("subscribe %s: %w", g.name, err)
		}
	}
	return nil
}

func (c *Consumer) sagaRoutes() map[string]route {
	restaurant := func(signal commands.RestaurantSignal) route {
		return func(ctx context.Context, msg ports.Message) error {
			return c.restaurantSignal(ctx, msg, signal)
		}
	}
	return map[string]route{
		order.EventPaymentRequested.Topic():    c.processPayment,
		order.EventRestaurantRejected.Topic():  c.requestRefund,
		order.EventOrderCancelled.Topic():      c.requestRefund,
		order.EventPaymentCompleted.Topic():    c.requestRefund,
		order.EventOrderReady.Topic():          c.requestDriver,
		order.EventAssignmentRejected.Topic():  c.requestDriver,
		order.EventAssignmentCancelled.Topic(): c.requestDriver,
		order.EventReassignmentStarted.Topic(): c.requestDriver,
		order.EventAssignmentTimedOut.Topic():  c.startReassignment,
		order.EventRetryRequested.Topic():      c.retry,
		commands.TopicDriverOfferExpired:       c.expireAssignment,
		TopicRestaurantConfirmed:               restaurant(commands.RestaurantConfirmed),
		TopicRestaurantRejected:                restaurant(commands.RestaurantRejected),
		TopicRestaurantPreparing:               restaurant(commands.RestaurantPreparing),
		TopicRestaurantReady:                   restaurant(commands.RestaurantReady),
	}
}

func (c *Consumer) registryRoutes() map[string]route {
	routes := make(map[string]route)
	for _, t := range []order.EventType{
		order.EventDriverAssigned, order.EventDelivered, order.EventOrderCancelled,
		order.EventAssignmentCancelled, order.EventAssignmentRejected, order.EventAssignmentTimedOut,
	} {
		routes[t.Topic()] = c.syncDriverLoad
	}
	return routes
}

func (c *Consumer) trackerRoutes() map[string]route {
	routes := make(map[string]route)
	for _, t := range []order.EventType{
		order.EventDriverAssigned, order.EventPickedUp, order.EventDelivered,
		order.EventAssignmentCancelled, order.EventOrderCancelled,
	} {
		routes[t.Topic()] = c.projectDelivery
	}
	return routes
}

func (c *Consumer) dispatch(group string, routes map[string]route) ports.MessageHandler {
	return func(ctx context.Context, msg ports.Message) error {
		ctx, span := c.tracer.Start(ctx, "consume "+msg.Topic, trace.WithAttributes(
			attribute.String("messaging.consumer.group", group),
			attribute.String("messaging.message.id", msg.ID),
			attribute.String("messaging.message.key", msg.Key),
		))
		defer span.End()

		handle, ok := routes[msg.Topic]
		if !ok {
			return nil
		}
		err := handle(ctx, msg)
		if err == nil {
			return nil
		}

		if reason, discarded := commands.DiscardReason(err); discarded {
			metrics.EventDiscarded(group, reason)
			c.logger.InfoContext(ctx, "message discarded", "group", group, "topic", msg.Topic,
				"message_id", msg.ID, "reason", reason, "error", err)
			return nil
		}
		if errs.IsValidation(err) || errors.Is(err, errs.ErrObjectNotFound) {
			metrics.EventDiscarded(group, "malformed")
			c.logger.WarnContext(ctx, "message dropped", "group", group, "topic", msg.Topic,
				"message_id", msg.ID, "error", err)
			return nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
}

func (c *Consumer) processPayment(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	cmd, err := commands.NewProcessPaymentCommand(env.OrderID)
	if err != nil {
		return err
	}
	return c.handlers.ProcessPayment.Handle(ctx, cmd)
}

func (c *Consumer) requestRefund(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	return c.refund(ctx, env.OrderID)
}

func (c *Consumer) refund(ctx context.Context, orderID kernel.UUID) error {
	cmd, err := commands.NewRequestRefundCommand(orderID)
	if err != nil {
		return err
	}
	return c.handlers.RequestRefund.Handle(ctx, cmd)
}

func (c *Consumer) requestDriver(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	return c.driverSearch(ctx, env.OrderID)
}

func (c *Consumer) driverSearch(ctx context.Context, orderID kernel.UUID) error {
	cmd, err := commands.NewRequestDriverCommand(orderID)
	if err != nil {
		return err
	}
	return c.handlers.RequestDriver.Handle(ctx, cmd)
}

func (c *Consumer) startReassignment(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	cmd, err := commands.NewStartReassignmentCommand(env.OrderID, "offer timed out", c.ref(GroupSaga, msg))
	if err != nil {
		return err
	}
	return c.handlers.StartReassignment.Handle(ctx, cmd)
}

// retry re-issues the transient step named by a retry_requested event.
func (c *Consumer) retry(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	switch env.Payload.Operation {
	case order.RetryPayment:
		cmd, cmdErr := commands.NewProcessPaymentCommand(env.OrderID)
		if cmdErr != nil {
			return cmdErr
		}
		return c.handlers.ProcessPayment.Handle(ctx, cmd)
	case order.RetryRefund:
		return c.refund(ctx, env.OrderID)
	case order.RetryDriverSearch:
		return c.driverSearch(ctx, env.OrderID)
	case order.RetryNone:
	}
	return errs.NewValueIsInvalidErrorWithCause("operation",
		fmt.Errorf("unknown retry operation %q", env.Payload.Operation))
}

func (c *Consumer) expireAssignment(ctx context.Context, msg ports.Message) error {
	var body commands.DriverOfferExpired
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("driver offer expired message", err)
	}
	cmd, err := commands.NewExpireAssignmentCommand(body.OrderID, body.DriverID, c.ref(GroupSaga, msg))
	if err != nil {
		return err
	}
	return c.handlers.ExpireAssignment.Handle(ctx, cmd)
}

func (c *Consumer) restaurantSignal(ctx context.Context, msg ports.Message, signal commands.RestaurantSignal) error {
	var body RestaurantSignalMessage
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("restaurant signal message", err)
	}
	cmd, err := commands.NewRestaurantSignalCommand(body.OrderID, signal, body.Reason, c.ref(GroupSaga, msg))
	if err != nil {
		return err
	}
	return c.handlers.RestaurantSignal.Handle(ctx, cmd)
}

func (c *Consumer) syncDriverLoad(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	cmd, err := commands.NewSyncDriverLoadCommand(env)
	if err != nil {
		return err
	}
	return c.handlers.SyncDriverLoad.Handle(ctx, cmd)
}

func (c *Consumer) projectDelivery(ctx context.Context, msg ports.Message) error {
	env, err := order.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	cmd, err := commands.NewProjectDeliveryCommand(env, c.ref(GroupTracker, msg))
	if err != nil {
		return err
	}
	return c.handlers.ProjectDelivery.Handle(ctx, cmd)
}

func (c *Consumer) ref(group string, msg ports.Message) *commands.MessageRef {
	return &commands.MessageRef{Consumer: group, MessageID: msg.ID}
}
