package commands

import (
	"context"
	"errors"

	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

var ErrProjectDeliveryCommandIsNotConstructed = errors.New(
	"ProjectDeliveryCommand must be created via NewProjectDeliveryCommand constructor",
)

// ProjectDeliveryCommand folds an order event into the Location Tracker's
// delivery projection.
type ProjectDeliveryCommand struct {
	event order.Envelope
	ref   *MessageRef

	guard guard.ConstructorGuard
}

func NewProjectDeliveryCommand(event order.Envelope, ref *MessageRef) (ProjectDeliveryCommand, error) {
	if err := event.OrderID.Validate(); err != nil {
		return ProjectDeliveryCommand{}, err
	}
	return ProjectDeliveryCommand{event: event, ref: ref, guard: guard.NewConstructorGuard()}, nil
}

func (c ProjectDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrProjectDeliveryCommandIsNotConstructed)
}

func (c ProjectDeliveryCommand) Event() order.Envelope { return c.event }
func (c ProjectDeliveryCommand) Ref() *MessageRef      { return c.ref }

type ProjectDeliveryCommandHandler struct {
	uowFactory TrackingUoWFactory
	clock      ports.Clock
}

func NewProjectDeliveryCommandHandler(uowFactory TrackingUoWFactory, clock ports.Clock) ProjectDeliveryCommandHandler {
	return ProjectDeliveryCommandHandler{uowFactory: uowFactory, clock: clock}
}

// Handle applies the event. Events older than the projection's version are
// ignored, so redeliveries and reordering after a restart are harmless.
func (h ProjectDeliveryCommandHandler) Handle(ctx context.Context, cmd ProjectDeliveryCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	event := cmd.Event()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if ref := cmd.Ref(); ref != nil {
		fresh, err := uow.InboxRepository().MarkProcessed(ctx, ref.Consumer, ref.MessageID, h.clock.Now())
		if err != nil {
			return err
		}
		if !fresh {
			return ErrDuplicateMessage
		}
	}

	repo := uow.TrackingRepository()
	delivery, err := repo.GetDelivery(ctx, event.OrderID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		delivery = tracking.NewDelivery(event.OrderID)
	} else if err != nil {
		return err
	}

	if delivery.Apply(event) {
		if err = repo.SaveDelivery(ctx, delivery); err != nil {
			return err
		}
	}
	return uow.Commit(ctx)
}
