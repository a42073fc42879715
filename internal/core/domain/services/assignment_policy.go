package services

import (
	"errors"
	"time"

	"ordersaga/internal/pkg/errs"
)

// AssignmentPolicy bounds the driver search of a single order.
type AssignmentPolicy struct {
	// OfferTimeout is how long a driver has to answer an offer.
	OfferTimeout time.Duration
	// MaxAttempts caps the offers made before the order is escalated as
	// assignment_exhausted.
	MaxAttempts int
}

func DefaultAssignmentPolicy() AssignmentPolicy {
	return AssignmentPolicy{
		OfferTimeout: 30 * time.Second,
		MaxAttempts:  5,
	}
}

func (p AssignmentPolicy) Validate() error {
	var errList []error
	if p.OfferTimeout <= 0 {
		errList = append(errList, errs.NewValueIsRequiredError("offer_timeout"))
	}
	if p.MaxAttempts < 1 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("max_attempts", p.MaxAttempts, 1, "inf"))
	}
	return errors.Join(errList...)
}

// Exhausted reports whether an order that made attempts offers must stop
// searching.
func (p AssignmentPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// OfferExpiry is the deadline of an offer made at now.
func (p AssignmentPolicy) OfferExpiry(now time.Time) time.Time {
	return now.Add(p.OfferTimeout)
}
