// Package order holds the Order aggregate of the order-lifecycle saga.
//
// The package includes:
//   - Order: the event-sourced aggregate root; its state is the fold of its events
//   - Event, EventType, Payload: the append-only order event log
//   - Status: the order state machine and its transition table
//   - Assignment: one driver offer and its outcome
//   - Pricing: the monetary breakdown, money in cents
//   - PaymentStatus, RetryOperation, RetryState: compensation and retry bookkeeping
//
// Key business rules:
//   - every mutation appends exactly one Event and applies it through the same
//     fold used by RestoreOrder, so stored state and event log cannot diverge
//   - events not allowed in the current status fail with ErrInvalidStateTransition;
//     repeated deliveries of an already taken transition fail with ErrEventAlreadyApplied
//   - a driver is set only from DriverAssigned on
//   - at most one assignment is offered or accepted at any time
//   - cancellation is accepted from any non-terminal status and is irrevocable
package order
