package commands

import (
	"context"
	"time"

	"ordersaga/internal/core/domain/model/order"
)

type RestaurantSignalCommandHandler struct {
	writer *OrderWriter
}

func NewRestaurantSignalCommandHandler(writer *OrderWriter) RestaurantSignalCommandHandler {
	return RestaurantSignalCommandHandler{writer: writer}
}

func (h RestaurantSignalCommandHandler) Handle(ctx context.Context, cmd RestaurantSignalCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "restaurant_"+string(cmd.Signal()), cmd.OrderID(), cmd.Ref(),
		func(o *order.Order, now time.Time) error {
			switch cmd.Signal() {
			case RestaurantConfirmed:
				return o.ConfirmByRestaurant(now)
			case RestaurantRejected:
				return o.RejectByRestaurant(cmd.Reason(), now)
			case RestaurantPreparing:
				return o.StartPreparing(now)
			default:
				return o.MarkReady(now)
			}
		})
	return err
}
