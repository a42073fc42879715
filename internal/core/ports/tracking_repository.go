package ports

import (
	"context"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/tracking"
)

// TrackingRepository persists the Location Tracker's data: its delivery
// projection with the mirrored position, and the append-only trail.
type TrackingRepository interface {
	// GetDelivery returns the projection for orderID, locking it for the
	// rest of the transaction. Returns errs.ObjectNotFoundError when the
	// tracker has not seen the order yet.
	GetDelivery(ctx context.Context, orderID kernel.UUID) (*tracking.Delivery, error)

	SaveDelivery(ctx context.Context, delivery *tracking.Delivery) error

	AppendSample(ctx context.Context, sample tracking.Sample) error

	// Trail returns the order's samples ordered by recorded time.
	Trail(ctx context.Context, orderID kernel.UUID) ([]tracking.Sample, error)
}
