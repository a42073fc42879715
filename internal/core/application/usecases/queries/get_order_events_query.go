package queries

import (
	"errors"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/guard"
)

var (
	ErrGetOrderEventsQueryIsNotConstructed = errors.New(
		"GetOrderEventsQuery must be created via NewGetOrderEventsQuery constructor",
	)
)

// GetOrderEventsQuery retrieves an order's event log in sequence order.
type GetOrderEventsQuery struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

func NewGetOrderEventsQuery(orderID kernel.UUID) (GetOrderEventsQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderEventsQuery{}, err
	}
	return GetOrderEventsQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrderEventsQuery) OrderID() kernel.UUID { return q.orderID }

func (q GetOrderEventsQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderEventsQueryIsNotConstructed)
}
