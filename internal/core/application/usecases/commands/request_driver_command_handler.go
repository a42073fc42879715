package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/metrics"
)

// maxBusyRetries bounds how many candidates are tried when the chosen driver
// got another offer between ranking and offering.
const maxBusyRetries = 3

// RequestDriverCommandHandler drives the assignment branch of the saga.
//
// The order is read without a transaction to decide what to do:
//   - an expired offer is timed out first; the search resumes on
//     order.assignment_timed_out
//   - an order that timed out starts reassignment
//   - an order at the attempt cap is escalated as assignment_exhausted
//   - otherwise the registry is asked for the best candidate outside the
//     excluded drivers and the driver is offered the order.
//
// A missing candidate is recorded as driver_search_failed with the next retry
// time; the retry sweep picks it up from there.
type RequestDriverCommandHandler struct {
	uowFactory  OrderUoWFactory
	writer      *OrderWriter
	registry    ports.DriverRegistry
	clock       ports.Clock
	assignment  services.AssignmentPolicy
	retryPolicy services.RetryPolicy
	logger      *slog.Logger
}

func NewRequestDriverCommandHandler(
	uowFactory OrderUoWFactory,
	writer *OrderWriter,
	registry ports.DriverRegistry,
	clock ports.Clock,
	assignment services.AssignmentPolicy,
	retryPolicy services.RetryPolicy,
	logger *slog.Logger,
) RequestDriverCommandHandler {
	return RequestDriverCommandHandler{
		uowFactory:  uowFactory,
		writer:      writer,
		registry:    registry,
		clock:       clock,
		assignment:  assignment,
		retryPolicy: retryPolicy,
		logger:      logger.With("component", "request_driver"),
	}
}

func (h RequestDriverCommandHandler) Handle(ctx context.Context, cmd RequestDriverCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	o, err := h.uowFactory.Create().OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}
	now := h.clock.Now()

	if active, ok := o.ActiveAssignment(); ok {
		if active.Status != order.AssignmentOffered || !now.After(active.ExpiresAt) {
			return fmt.Errorf("%w: order %s already has an active assignment", order.ErrEventAlreadyApplied, o.ID())
		}
		return h.update(ctx, "expire_assignment", o.ID(), func(o *order.Order, now time.Time) error {
			return o.TimeOutAssignment(active.ID, now)
		})
	}

	switch {
	case o.Status() == order.AssignmentTimedOut:
		return h.update(ctx, "start_reassignment", o.ID(), func(o *order.Order, now time.Time) error {
			return o.StartReassignment("offer timed out", now)
		})
	case !o.Status().SearchingDriver():
		return &order.TransitionError{From: o.Status(), Event: order.EventDriverOffered}
	case h.assignment.Exhausted(o.AssignmentAttempts()):
		metrics.DriverOffer("exhausted")
		reason := fmt.Sprintf("no driver accepted after %d offers", o.AssignmentAttempts())
		h.logger.ErrorContext(ctx, "driver assignment exhausted, escalating", "order_id", o.ID(), "reason", reason)
		return h.update(ctx, "exhaust_assignment", o.ID(), func(o *order.Order, now time.Time) error {
			return o.ExhaustAssignment(reason, now)
		})
	}

	offer, err := h.offer(ctx, o, now)
	if errors.Is(err, driver.ErrNoEligibleDriver) {
		metrics.DriverOffer("not_found")
		reason := err.Error()
		return h.update(ctx, "driver_search_failed", o.ID(), func(o *order.Order, now time.Time) error {
			return o.RecordDriverSearchFailure(reason, h.retryPolicy.FailureRetryAt(o, order.RetryDriverSearch, now), now)
		})
	}
	if err != nil {
		return err
	}

	err = h.update(ctx, "offer_driver", o.ID(), func(o *order.Order, now time.Time) error {
		_, offerErr := o.OfferDriver(offer.DriverID, offer.ExpiresAt, now)
		return offerErr
	})
	if err != nil && !errors.Is(err, order.ErrEventAlreadyApplied) {
		if rejectErr := h.registry.Reject(ctx, offer.OrderID, offer.DriverID); rejectErr != nil {
			h.logger.WarnContext(ctx, "failed to release registry offer", "order_id", o.ID(),
				"driver_id", offer.DriverID, "error", rejectErr)
		}
		return err
	}
	if err != nil {
		return err
	}
	metrics.DriverOffer("offered")
	return nil
}

// offer reserves the best candidate in the registry. A candidate that became
// busy is skipped and the next best one is tried.
func (h RequestDriverCommandHandler) offer(ctx context.Context, o *order.Order, now time.Time) (driver.Offer, error) {
	excluded := o.ExcludedDrivers()
	for range maxBusyRetries {
		candidate, err := h.registry.FindCandidate(ctx, o.RestaurantLocation(), excluded)
		if err != nil {
			return driver.Offer{}, err
		}
		offer, err := h.registry.Offer(ctx, o.ID(), candidate.DriverID, h.assignment.OfferExpiry(now))
		if errors.Is(err, driver.ErrDriverBusy) {
			metrics.DriverOffer("busy")
			excluded = append(slices.Clip(excluded), candidate.DriverID)
			continue
		}
		return offer, err
	}
	return driver.Offer{}, fmt.Errorf("%w: candidates kept getting busy", driver.ErrNoEligibleDriver)
}

func (h RequestDriverCommandHandler) update(ctx context.Context, name string, orderID kernel.UUID, mutate Mutation) error {
	_, err := h.writer.Update(ctx, name, orderID, nil, mutate)
	return err
}
