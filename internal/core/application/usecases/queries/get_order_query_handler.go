package queries

import (
	"context"
	"errors"

	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
)

// GetOrderQueryHandler reads orders outside of any transaction.
type GetOrderQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
}

func NewGetOrderQueryHandler(uowFactory ports.UnitOfWorkFactory) GetOrderQueryHandler {
	return GetOrderQueryHandler{uowFactory: uowFactory}
}

// Handle returns errs.ObjectNotFoundError for unknown orders. The current
// location is the Location Tracker's mirrored position, if any.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (OrderView, error) {
	if err := query.Validate(); err != nil {
		return OrderView{}, err
	}

	uow := h.uowFactory.Create()
	o, err := uow.OrderRepository().Get(ctx, query.OrderID())
	if err != nil {
		return OrderView{}, err
	}
	view := newOrderView(o)

	delivery, err := uow.TrackingRepository().GetDelivery(ctx, query.OrderID())
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
	case err != nil:
		return OrderView{}, err
	case delivery.Position != nil:
		loc := delivery.Position.Location
		view.CurrentLocation = &loc
	}
	return view, nil
}
