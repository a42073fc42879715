package queries

import (
	"errors"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var (
	ErrListOrdersQueryIsNotConstructed = errors.New(
		"ListOrdersQuery must be created via NewListOrdersQuery constructor",
	)
)

// ListOrdersParams holds the optional filters of ListOrdersQuery. Empty
// strings do not filter.
type ListOrdersParams struct {
	CustomerID   string
	RestaurantID string
	Status       string
	Limit        int
	Offset       int
}

// ListOrdersQuery pages through orders of a customer or a restaurant, newest
// first.
//
// Example:
//
//	query, err := NewListOrdersQuery(ListOrdersParams{
//	    RestaurantID: restaurantID,
//	    Status:       "ready_for_pickup",
//	})
//	if err != nil {
//	    return err
//	}
//
//	orders, err := handler.Handle(ctx, query)
type ListOrdersQuery struct {
	filter ports.OrderFilter
	guard  guard.ConstructorGuard
}

// NewListOrdersQuery parses the filters. A zero limit selects
// DefaultListLimit; limits above MaxListLimit are rejected.
func NewListOrdersQuery(p ListOrdersParams) (ListOrdersQuery, error) {
	filter := ports.OrderFilter{Limit: p.Limit, Offset: p.Offset}
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		return ListOrdersQuery{}, errs.NewValueIsOutOfRangeError("limit", p.Limit, 1, MaxListLimit)
	}
	if filter.Offset < 0 {
		return ListOrdersQuery{}, errs.NewValueIsOutOfRangeError("offset", p.Offset, 0, "inf")
	}

	if p.CustomerID != "" {
		id, err := kernel.ParseUUID("customer_id", p.CustomerID)
		if err != nil {
			return ListOrdersQuery{}, err
		}
		filter.CustomerID = &id
	}
	if p.RestaurantID != "" {
		id, err := kernel.ParseUUID("restaurant_id", p.RestaurantID)
		if err != nil {
			return ListOrdersQuery{}, err
		}
		filter.RestaurantID = &id
	}
	if p.Status != "" {
		status, err := order.ParseStatus(p.Status)
		if err != nil {
			return ListOrdersQuery{}, err
		}
		filter.Status = &status
	}

	return ListOrdersQuery{filter: filter, guard: guard.NewConstructorGuard()}, nil
}

func (q ListOrdersQuery) Filter() ports.OrderFilter { return q.filter }

func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}
