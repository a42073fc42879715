package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/guard"
)

var ErrExpireAssignmentCommandIsNotConstructed = errors.New(
	"ExpireAssignmentCommand must be created via NewExpireAssignmentCommand constructor",
)

// ExpireAssignmentCommand times out the offer a driver let lapse. It is
// issued when driver.offer_expired is consumed.
type ExpireAssignmentCommand struct {
	orderID  kernel.UUID
	driverID kernel.UUID
	ref      *MessageRef

	guard guard.ConstructorGuard
}

func NewExpireAssignmentCommand(orderID, driverID kernel.UUID, ref *MessageRef) (ExpireAssignmentCommand, error) {
	if err := errors.Join(orderID.Validate(), driverID.Validate()); err != nil {
		return ExpireAssignmentCommand{}, err
	}
	return ExpireAssignmentCommand{
		orderID:  orderID,
		driverID: driverID,
		ref:      ref,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (c ExpireAssignmentCommand) Validate() error {
	return c.guard.Validate(ErrExpireAssignmentCommandIsNotConstructed)
}

func (c ExpireAssignmentCommand) OrderID() kernel.UUID  { return c.orderID }
func (c ExpireAssignmentCommand) DriverID() kernel.UUID { return c.driverID }
func (c ExpireAssignmentCommand) Ref() *MessageRef      { return c.ref }

type ExpireAssignmentCommandHandler struct {
	writer *OrderWriter
}

func NewExpireAssignmentCommandHandler(writer *OrderWriter) ExpireAssignmentCommandHandler {
	return ExpireAssignmentCommandHandler{writer: writer}
}

// Handle expires the driver's offer if it is still the active one. An offer
// that was answered in the meantime makes the expiry stale.
func (h ExpireAssignmentCommandHandler) Handle(ctx context.Context, cmd ExpireAssignmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "expire_assignment", cmd.OrderID(), cmd.Ref(), func(o *order.Order, now time.Time) error {
		active, ok := o.ActiveAssignment()
		if !ok || !active.DriverID.IsEqual(cmd.DriverID()) || active.Status != order.AssignmentOffered {
			return fmt.Errorf("%w: offer of driver %s is no longer pending", order.ErrEventAlreadyApplied, cmd.DriverID())
		}
		return o.TimeOutAssignment(active.ID, now)
	})
	return err
}
