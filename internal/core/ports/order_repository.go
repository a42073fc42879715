package ports

import (
	"context"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
)

// OrderFilter narrows ListOrders. Nil fields do not filter.
type OrderFilter struct {
	CustomerID   *kernel.UUID
	RestaurantID *kernel.UUID
	Status       *order.Status
	Limit        int
	Offset       int
}

// OrderRepository defines the persistence contract for the event-sourced
// order aggregate. The event log is the source of truth; the snapshot row is
// kept in step with it for queries and optimistic concurrency.
type OrderRepository interface {
	// Save appends the aggregate's uncommitted events and updates its
	// snapshot. It fails with ErrConcurrencyConflict when the stored version
	// is not the aggregate's PersistedVersion. On success the changes are
	// cleared.
	Save(ctx context.Context, aggregate *order.Order) error

	// Get folds the order's event log. Returns errs.ObjectNotFoundError for
	// unknown IDs.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// Events returns the order's event log ordered by sequence number.
	Events(ctx context.Context, id kernel.UUID) ([]*order.Event, error)

	// List returns orders matching the filter, newest first.
	List(ctx context.Context, filter OrderFilter) ([]*order.Order, error)

	// FindStalled returns IDs of orders that may be stuck in a transient
	// state: a scheduled retry is due or nothing happened for grace.
	FindStalled(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]kernel.UUID, error)
}
