package queries

import (
	"context"

	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
)

type GetOrderEventsQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
}

func NewGetOrderEventsQueryHandler(uowFactory ports.UnitOfWorkFactory) GetOrderEventsQueryHandler {
	return GetOrderEventsQueryHandler{uowFactory: uowFactory}
}

// Handle returns errs.ObjectNotFoundError when the order has no events.
func (h GetOrderEventsQueryHandler) Handle(ctx context.Context, query GetOrderEventsQuery) ([]EventView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	events, err := h.uowFactory.Create().OrderRepository().Events(ctx, query.OrderID())
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, errs.NewObjectNotFoundError("order", query.OrderID())
	}

	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = newEventView(e)
	}
	return views, nil
}
