package commands

import (
	"context"
	"errors"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/guard"
)

var ErrStartReassignmentCommandIsNotConstructed = errors.New(
	"StartReassignmentCommand must be created via NewStartReassignmentCommand constructor",
)

// StartReassignmentCommand resumes the driver search after an offer timed out,
// or after an exhausted search when support retries it manually.
type StartReassignmentCommand struct {
	orderID kernel.UUID
	reason  string
	ref     *MessageRef

	guard guard.ConstructorGuard
}

func NewStartReassignmentCommand(orderID kernel.UUID, reason string, ref *MessageRef) (StartReassignmentCommand, error) {
	if err := orderID.Validate(); err != nil {
		return StartReassignmentCommand{}, err
	}
	return StartReassignmentCommand{
		orderID: orderID,
		reason:  reason,
		ref:     ref,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c StartReassignmentCommand) Validate() error {
	return c.guard.Validate(ErrStartReassignmentCommandIsNotConstructed)
}

func (c StartReassignmentCommand) OrderID() kernel.UUID { return c.orderID }
func (c StartReassignmentCommand) Reason() string       { return c.reason }
func (c StartReassignmentCommand) Ref() *MessageRef     { return c.ref }

type StartReassignmentCommandHandler struct {
	writer *OrderWriter
}

func NewStartReassignmentCommandHandler(writer *OrderWriter) StartReassignmentCommandHandler {
	return StartReassignmentCommandHandler{writer: writer}
}

func (h StartReassignmentCommandHandler) Handle(ctx context.Context, cmd StartReassignmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "start_reassignment", cmd.OrderID(), cmd.Ref(), func(o *order.Order, now time.Time) error {
		return o.StartReassignment(cmd.Reason(), now)
	})
	return err
}
