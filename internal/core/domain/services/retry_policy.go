package services

import (
	"errors"
	"fmt"
	"time"

	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/errs"
)

// RetryPolicy is the capped exponential backoff owned by the orchestrator for
// its transient steps: payment, refund and driver search.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxRetries  int
	GracePeriod time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   5 * time.Second,
		MaxDelay:    5 * time.Minute,
		MaxRetries:  3,
		GracePeriod: 2 * time.Minute,
	}
}

func (p RetryPolicy) Validate() error {
	var errList []error
	if p.BaseDelay <= 0 {
		errList = append(errList, errs.NewValueIsRequiredError("base_delay"))
	}
	if p.MaxDelay < p.BaseDelay {
		errList = append(errList, errs.NewValueIsOutOfRangeError("max_delay", p.MaxDelay, p.BaseDelay, "inf"))
	}
	if p.MaxRetries < 0 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("max_retries", p.MaxRetries, 0, "inf"))
	}
	if p.GracePeriod <= 0 {
		errList = append(errList, errs.NewValueIsRequiredError("grace_period"))
	}
	return errors.Join(errList...)
}

// Backoff returns min(base·2^(retry−1), max) for the retry-th retry (1-based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// FailureRetryAt is when the step that just failed should be retried.
func (p RetryPolicy) FailureRetryAt(o *order.Order, op order.RetryOperation, now time.Time) time.Time {
	return now.Add(p.Backoff(p.retriesSoFar(o, op) + 1))
}

func (p RetryPolicy) retriesSoFar(o *order.Order, op order.RetryOperation) int {
	if r := o.Retry(); r.Operation == op {
		return r.Attempts
	}
	return 0
}

// SweepAction is what the sweep does with a stalled order.
type SweepAction int

const (
	SweepNone SweepAction = iota
	SweepRetry
	SweepEscalate
)

// SweepDecision is the outcome of RetryPolicy.Evaluate.
type SweepDecision struct {
	Action    SweepAction
	Operation order.RetryOperation
	// NextAttemptAt is set for SweepRetry: the retry is considered lost and
	// re-issued if the order has not moved on by then.
	NextAttemptAt time.Time
	Reason        string
}

// Evaluate decides whether a stalled order needs a retry or, once MaxRetries
// retries were issued, an escalation.
func (p RetryPolicy) Evaluate(o *order.Order, now time.Time) SweepDecision {
	op := PendingOperation(o, now, p.GracePeriod)
	if op == order.RetryNone {
		return SweepDecision{}
	}

	r := o.Retry()
	if r.Operation == op {
		if now.Before(r.NextAttemptAt) {
			return SweepDecision{}
		}
	} else if now.Sub(o.UpdatedAt()) < p.GracePeriod {
		return SweepDecision{}
	}

	retries := p.retriesSoFar(o, op)
	if retries >= p.MaxRetries {
		reason := fmt.Sprintf("%s failed after %d retries", op, retries)
		if r.LastError != "" {
			reason += ": " + r.LastError
		}
		return SweepDecision{Action: SweepEscalate, Operation: op, Reason: reason}
	}
	next := retries + 1
	return SweepDecision{
		Action:        SweepRetry,
		Operation:     op,
		NextAttemptAt: now.Add(p.Backoff(next) + p.GracePeriod),
		Reason:        fmt.Sprintf("retry %d of %d", next, p.MaxRetries),
	}
}

// PendingOperation names the transient step an order is waiting on, if any.
func PendingOperation(o *order.Order, now time.Time, grace time.Duration) order.RetryOperation {
	if r := o.Retry(); r.Operation != order.RetryNone {
		return r.Operation
	}
	switch o.Status() { //nolint:exhaustive // other states wait on people, not on us
	case order.PaymentPending:
		return order.RetryPayment
	case order.RestaurantRejected, order.Refunding:
		return order.RetryRefund
	case order.Cancelled:
		if o.AwaitsRefund() {
			return order.RetryRefund
		}
	case order.AssignmentTimedOut:
		return order.RetryDriverSearch
	case order.ReadyForPickup, order.Reassigning:
		active, ok := o.ActiveAssignment()
		if !ok || now.After(active.ExpiresAt.Add(grace)) {
			return order.RetryDriverSearch
		}
	}
	return order.RetryNone
}
