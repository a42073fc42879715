package order

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("order must be created via NewOrder or RestoreOrder")

	// ErrInvalidStateTransition is matched by every rejected transition. The
	// caller discards the triggering event; it is never retried.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrEventAlreadyApplied marks a duplicate delivery of a transition the
	// order has already taken. Callers treat it as a successful no-op.
	ErrEventAlreadyApplied = errors.New("event already applied")

	// ErrAssignmentExhausted is returned once the driver search gave up and the
	// order waits for manual handling.
	ErrAssignmentExhausted = errors.New("driver assignment exhausted")

	// ErrDriverMismatch is returned when a driver acts on an order that is not
	// offered or assigned to them.
	ErrDriverMismatch = fmt.Errorf("%w: driver does not hold the assignment", ErrInvalidStateTransition)

	// ErrBrokenEventLog is returned by RestoreOrder for gaps or foreign events.
	ErrBrokenEventLog = errors.New("order event log is inconsistent")
)

// TransitionError describes an event that is not allowed in the current status.
type TransitionError struct {
	From  Status
	Event EventType
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s cannot apply %s", e.From, e.Event)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
