package commands

import (
	"errors"

	"ordersaga/internal/core/domain/model/order"
)

const (
	DiscardDuplicate         = "duplicate"
	DiscardInvalidTransition = "invalid_transition"
)

// DiscardReason classifies errors that mean a command or event was stale or
// already applied. Such inputs are dropped idempotently, never retried.
func DiscardReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrDuplicateMessage), errors.Is(err, order.ErrEventAlreadyApplied):
		return DiscardDuplicate, true
	case errors.Is(err, order.ErrInvalidStateTransition):
		return DiscardInvalidTransition, true
	default:
		return "", false
	}
}
