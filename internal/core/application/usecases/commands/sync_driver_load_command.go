package commands

import (
	"context"
	"errors"

	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/guard"
)

var ErrSyncDriverLoadCommandIsNotConstructed = errors.New(
	"SyncDriverLoadCommand must be created via NewSyncDriverLoadCommand constructor",
)

// SyncDriverLoadCommand keeps a driver's active delivery count in step with
// an order event.
type SyncDriverLoadCommand struct {
	event order.Envelope

	guard guard.ConstructorGuard
}

func NewSyncDriverLoadCommand(event order.Envelope) (SyncDriverLoadCommand, error) {
	if err := event.OrderID.Validate(); err != nil {
		return SyncDriverLoadCommand{}, err
	}
	return SyncDriverLoadCommand{event: event, guard: guard.NewConstructorGuard()}, nil
}

func (c SyncDriverLoadCommand) Validate() error {
	return c.guard.Validate(ErrSyncDriverLoadCommandIsNotConstructed)
}

func (c SyncDriverLoadCommand) Event() order.Envelope { return c.event }

// SyncDriverLoadCommandHandler applies order events to the registry. Both
// registry operations are idempotent, so redelivery needs no inbox.
type SyncDriverLoadCommandHandler struct {
	registry ports.DriverRegistry
}

func NewSyncDriverLoadCommandHandler(registry ports.DriverRegistry) SyncDriverLoadCommandHandler {
	return SyncDriverLoadCommandHandler{registry: registry}
}

func (h SyncDriverLoadCommandHandler) Handle(ctx context.Context, cmd SyncDriverLoadCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	event := cmd.Event()
	driverID := event.Payload.DriverID
	if driverID.IsZero() {
		return nil
	}

	switch event.EventType { //nolint:exhaustive // only events that bind or release a driver
	case order.EventDriverAssigned:
		return h.registry.TrackDelivery(ctx, driverID, event.OrderID)
	case order.EventDelivered, order.EventOrderCancelled, order.EventAssignmentCancelled,
		order.EventAssignmentRejected, order.EventAssignmentTimedOut:
		return h.registry.ReleaseDelivery(ctx, driverID, event.OrderID)
	default:
		return nil
	}
}
