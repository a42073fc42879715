package queries

import (
	"errors"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/guard"
)

var (
	ErrGetTrailQueryIsNotConstructed = errors.New(
		"GetTrailQuery must be created via NewGetTrailQuery constructor",
	)
	ErrGetCurrentLocationQueryIsNotConstructed = errors.New(
		"GetCurrentLocationQuery must be created via NewGetCurrentLocationQuery constructor",
	)
)

// GetTrailQuery retrieves every location sample of a delivery in recorded
// order, with the distance covered.
//
// Example:
//
//	query, _ := NewGetTrailQuery(orderID)
//	trail, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%d samples, %.0f m\n", len(trail.Samples), trail.DistanceMeters)
type GetTrailQuery struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

func NewGetTrailQuery(orderID kernel.UUID) (GetTrailQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetTrailQuery{}, err
	}
	return GetTrailQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetTrailQuery) OrderID() kernel.UUID { return q.orderID }

func (q GetTrailQuery) Validate() error {
	return q.guard.Validate(ErrGetTrailQueryIsNotConstructed)
}

// GetCurrentLocationQuery retrieves the mirrored position of a delivery.
type GetCurrentLocationQuery struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

func NewGetCurrentLocationQuery(orderID kernel.UUID) (GetCurrentLocationQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetCurrentLocationQuery{}, err
	}
	return GetCurrentLocationQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetCurrentLocationQuery) OrderID() kernel.UUID { return q.orderID }

func (q GetCurrentLocationQuery) Validate() error {
	return q.guard.Validate(ErrGetCurrentLocationQueryIsNotConstructed)
}
