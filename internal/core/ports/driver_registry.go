package ports

import (
	"context"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
)

// DriverHeartbeat is a location and availability update sent by a driver.
type DriverHeartbeat struct {
	DriverID    kernel.UUID
	Location    kernel.Location
	IsAvailable bool
	AvgRating   *float64
	At          time.Time
}

// DriverRegistry owns driver candidates. Every driver ID has a single writer.
type DriverRegistry interface {
	Heartbeat(ctx context.Context, hb DriverHeartbeat) error

	// FindCandidate returns the best eligible driver near restaurant, or
	// driver.ErrNoEligibleDriver.
	FindCandidate(ctx context.Context, restaurant kernel.Location, excluded []kernel.UUID) (driver.Snapshot, error)

	// Offer reserves driverID for orderID until expiresAt. It fails with
	// driver.ErrDriverBusy when the driver already holds an offer.
	Offer(ctx context.Context, orderID, driverID kernel.UUID, expiresAt time.Time) (driver.Offer, error)

	Accept(ctx context.Context, orderID, driverID kernel.UUID) error

	Reject(ctx context.Context, orderID, driverID kernel.UUID) error

	// ExpireOffers clears and returns offers past their expiry.
	ExpireOffers(ctx context.Context, now time.Time) ([]driver.Offer, error)

	// PurgeStale drops drivers without a heartbeat within the freshness
	// window and no active deliveries.
	PurgeStale(ctx context.Context, now time.Time) (int, error)

	// TrackDelivery and ReleaseDelivery keep the driver's load in step with
	// order events.
	TrackDelivery(ctx context.Context, driverID, orderID kernel.UUID) error
	ReleaseDelivery(ctx context.Context, driverID, orderID kernel.UUID) error

	// Driver returns the registry's view of one driver or
	// errs.ObjectNotFoundError.
	Driver(ctx context.Context, driverID kernel.UUID) (driver.Snapshot, error)

	// Available lists fresh, available drivers.
	Available(ctx context.Context, now time.Time) ([]driver.Snapshot, error)
}

// Clock abstracts time for the saga's timeouts and sweeps.
type Clock interface {
	Now() time.Time
}
