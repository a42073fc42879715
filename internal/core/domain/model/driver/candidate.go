package driver

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

var (
	// ErrNoEligibleDriver is returned by the matcher when no driver passes the
	// filters. The orchestrator treats it as retryable.
	ErrNoEligibleDriver = errors.New("no eligible driver")

	// ErrDriverBusy is returned when a driver already holds a pending offer.
	ErrDriverBusy = errors.New("driver already holds a pending offer")

	// ErrOfferNotFound is returned when accepting or rejecting an offer that
	// expired or was never made.
	ErrOfferNotFound = errors.New("offer not found")

	ErrCandidateIsNotConstructed = errors.New("Candidate must be created via NewCandidate constructor")
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Candidate is the matcher's view of one driver. It is mutated only by the
// registry partition that owns the driver's ID.
type Candidate struct {
	id               kernel.UUID
	location         kernel.Location
	isAvailable      bool
	avgRating        float64
	lastHeartbeatAt  time.Time
	activeDeliveries []kernel.UUID
	pendingOffer     *Offer
	guard            guard.ConstructorGuard
}

// NewCandidate registers a driver from its first heartbeat.
func NewCandidate(
	id kernel.UUID,
	location kernel.Location,
	isAvailable bool,
	avgRating float64,
	heartbeatAt time.Time,
) (*Candidate, error) {
	c := &Candidate{guard: guard.NewConstructorGuard()}
	if err := errors.Join(
		c.setID(id),
		c.setLocation(location),
		c.setRating(avgRating),
	); err != nil {
		return nil, err
	}
	c.isAvailable = isAvailable
	c.lastHeartbeatAt = heartbeatAt.UTC()
	return c, nil
}

func (c *Candidate) Validate() error {
	if c == nil {
		return ErrCandidateIsNotConstructed
	}
	return c.guard.Validate(ErrCandidateIsNotConstructed)
}

func (c *Candidate) ID() kernel.UUID            { return c.id }
func (c *Candidate) Location() kernel.Location  { return c.location }
func (c *Candidate) IsAvailable() bool          { return c.isAvailable }
func (c *Candidate) AvgRating() float64         { return c.avgRating }
func (c *Candidate) LastHeartbeatAt() time.Time { return c.lastHeartbeatAt }
func (c *Candidate) ActiveDeliveryCount() int   { return len(c.activeDeliveries) }

// PendingOffer returns the offer the driver has not answered yet.
func (c *Candidate) PendingOffer() (Offer, bool) {
	if c.pendingOffer == nil {
		return Offer{}, false
	}
	return *c.pendingOffer, true
}

// Heartbeat applies a location/availability update. Heartbeats older than the
// last one seen are ignored and reported as false.
func (c *Candidate) Heartbeat(location kernel.Location, isAvailable bool, avgRating *float64, at time.Time) (bool, error) {
	if err := location.Validate(); err != nil {
		return false, err
	}
	if at.Before(c.lastHeartbeatAt) {
		return false, nil
	}
	if avgRating != nil {
		if err := c.setRating(*avgRating); err != nil {
			return false, err
		}
	}
	c.location = location
	c.isAvailable = isAvailable
	c.lastHeartbeatAt = at.UTC()
	return true, nil
}

// IsFresh reports whether the last heartbeat falls inside the freshness window.
func (c *Candidate) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(c.lastHeartbeatAt) <= window
}

// CanTakeDelivery reports whether the driver is available, has no pending
// offer and is below the concurrency cap.
func (c *Candidate) CanTakeDelivery(maxActive int) bool {
	return c.isAvailable && c.pendingOffer == nil && len(c.activeDeliveries) < maxActive
}

// Offer reserves the driver for orderID until expiresAt.
func (c *Candidate) Offer(orderID kernel.UUID, offeredAt, expiresAt time.Time) (Offer, error) {
	if err := orderID.Validate(); err != nil {
		return Offer{}, err
	}
	if c.pendingOffer != nil {
		if c.pendingOffer.OrderID.IsEqual(orderID) {
			return *c.pendingOffer, nil
		}
		return Offer{}, fmt.Errorf("%w: driver %s is offered order %s", ErrDriverBusy, c.id, c.pendingOffer.OrderID)
	}
	offer, err := NewOffer(orderID, c.id, offeredAt, expiresAt)
	if err != nil {
		return Offer{}, err
	}
	c.pendingOffer = &offer
	return offer, nil
}

// ResolveOffer clears the pending offer for orderID on accept or reject.
func (c *Candidate) ResolveOffer(orderID kernel.UUID) (Offer, error) {
	if c.pendingOffer == nil || !c.pendingOffer.OrderID.IsEqual(orderID) {
		return Offer{}, fmt.Errorf("%w: driver %s, order %s", ErrOfferNotFound, c.id, orderID)
	}
	offer := *c.pendingOffer
	c.pendingOffer = nil
	return offer, nil
}

// ExpireOffer clears and returns the pending offer once it is past its expiry.
func (c *Candidate) ExpireOffer(now time.Time) (Offer, bool) {
	if c.pendingOffer == nil || !c.pendingOffer.IsExpired(now) {
		return Offer{}, false
	}
	offer := *c.pendingOffer
	c.pendingOffer = nil
	return offer, true
}

// TakeDelivery counts orderID against the driver's load. Repeated calls for
// the same order are no-ops.
func (c *Candidate) TakeDelivery(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	if c.pendingOffer != nil && c.pendingOffer.OrderID.IsEqual(orderID) {
		c.pendingOffer = nil
	}
	if !slices.ContainsFunc(c.activeDeliveries, orderID.IsEqual) {
		c.activeDeliveries = append(c.activeDeliveries, orderID)
	}
	return nil
}

// CompleteDelivery releases orderID from the driver's load, whether it was
// delivered, cancelled or handed to another driver.
func (c *Candidate) CompleteDelivery(orderID kernel.UUID) {
	c.activeDeliveries = slices.DeleteFunc(c.activeDeliveries, orderID.IsEqual)
	if c.pendingOffer != nil && c.pendingOffer.OrderID.IsEqual(orderID) {
		c.pendingOffer = nil
	}
}

// Snapshot returns an immutable copy safe to hand to other goroutines.
func (c *Candidate) Snapshot() Snapshot {
	return Snapshot{
		DriverID:            c.id,
		Location:            c.location,
		IsAvailable:         c.isAvailable,
		ActiveDeliveryCount: len(c.activeDeliveries),
		AvgRating:           c.avgRating,
		LastHeartbeatAt:     c.lastHeartbeatAt,
		HasPendingOffer:     c.pendingOffer != nil,
	}
}

func (c *Candidate) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *Candidate) setLocation(location kernel.Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	c.location = location
	return nil
}

func (c *Candidate) setRating(rating float64) error {
	if rating < MinRating || rating > MaxRating {
		return errs.NewValueIsOutOfRangeError("avg_rating", rating, MinRating, MaxRating)
	}
	c.avgRating = rating
	return nil
}

// Snapshot is a point-in-time copy of a Candidate.
type Snapshot struct {
	DriverID            kernel.UUID
	Location            kernel.Location
	IsAvailable         bool
	ActiveDeliveryCount int
	AvgRating           float64
	LastHeartbeatAt     time.Time
	HasPendingOffer     bool
}
