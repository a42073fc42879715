package queries

import (
	"errors"

	"ordersaga/internal/pkg/guard"
)

var (
	ErrListAvailableDriversQueryIsNotConstructed = errors.New(
		"ListAvailableDriversQuery must be created via NewListAvailableDriversQuery constructor",
	)
)

// ListAvailableDriversQuery lists drivers with a fresh heartbeat that are
// marked available, as the matcher currently sees them.
//
// Example:
//
//	query := NewListAvailableDriversQuery()
//	handler := NewListAvailableDriversQueryHandler(registry, clock)
//
//	drivers, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return fmt.Errorf("failed to list drivers: %w", err)
//	}
//	for _, d := range drivers {
//	    fmt.Printf("Driver %s at %s with %d deliveries\n",
//	        d.DriverID, d.Location, d.ActiveDeliveryCount)
//	}
type ListAvailableDriversQuery struct {
	guard guard.ConstructorGuard
}

func NewListAvailableDriversQuery() ListAvailableDriversQuery {
	return ListAvailableDriversQuery{guard: guard.NewConstructorGuard()}
}

func (q ListAvailableDriversQuery) Validate() error {
	return q.guard.Validate(ErrListAvailableDriversQueryIsNotConstructed)
}
