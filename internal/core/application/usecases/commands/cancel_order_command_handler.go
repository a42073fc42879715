package commands

import (
	"context"
	"time"

	"ordersaga/internal/core/domain/model/order"
)

// CancelOrderCommandHandler cancels an order if its state allows it. An order
// in a terminal state is rejected with order.ErrInvalidStateTransition. The
// refund of a paid order is triggered by the order.cancelled event.
type CancelOrderCommandHandler struct {
	writer *OrderWriter
}

func NewCancelOrderCommandHandler(writer *OrderWriter) CancelOrderCommandHandler {
	return CancelOrderCommandHandler{writer: writer}
}

func (h CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "cancel", cmd.OrderID(), nil, func(o *order.Order, now time.Time) error {
		return o.Cancel(cmd.RequestedBy(), cmd.Reason(), now)
	})
	return err
}
