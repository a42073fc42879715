package order

import (
	"fmt"

	"ordersaga/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// Main path:
//
//	Created ──> PaymentPending ──> Paid ──> RestaurantConfirmed ──> Preparing ──> ReadyForPickup
//	    ──> DriverAssigned ──> PickedUp ──> Delivered*
//
// Side branches:
//
//	PaymentPending ──> PaymentFailed*
//	Paid | RestaurantConfirmed ──> RestaurantRejected ──> Refunding ──> Refunded*
//	ReadyForPickup | Reassigning ──> AssignmentTimedOut ──> Reassigning
//	ReadyForPickup | Reassigning | AssignmentTimedOut ──> AssignmentExhausted ──> Reassigning
//	DriverAssigned ──> Reassigning
//	any non-terminal ──> Cancelled*
//
// Terminal states are marked with *. The exact edges are listed in transitions.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	Unknown Status = iota
	Created
	PaymentPending
	Paid
	PaymentFailed
	RestaurantConfirmed
	RestaurantRejected
	Refunding
	Refunded
	Preparing
	ReadyForPickup
	DriverAssigned
	PickedUp
	Delivered
	Cancelled
	AssignmentTimedOut
	Reassigning
	AssignmentExhausted
)

var statusStrings = map[Status]string{
	Created:             "created",
	PaymentPending:      "payment_pending",
	Paid:                "paid",
	PaymentFailed:       "payment_failed",
	RestaurantConfirmed: "restaurant_confirmed",
	RestaurantRejected:  "restaurant_rejected",
	Refunding:           "refunding",
	Refunded:            "refunded",
	Preparing:           "preparing",
	ReadyForPickup:      "ready_for_pickup",
	DriverAssigned:      "driver_assigned",
	PickedUp:            "picked_up",
	Delivered:           "delivered",
	Cancelled:           "cancelled",
	AssignmentTimedOut:  "assignment_timed_out",
	Reassigning:         "reassigning",
	AssignmentExhausted: "assignment_exhausted",
}

type transition struct {
	from []Status
	to   Status
}

// transitions is the status graph keyed by the event that drives each edge.
// Events missing from this table are annotations: they are recorded in the
// log but leave the status unchanged.
var transitions = map[EventType]transition{
	EventOrderCreated:         {from: []Status{Unknown}, to: Created},
	EventPaymentRequested:     {from: []Status{Created}, to: PaymentPending},
	EventPaymentCompleted:     {from: []Status{PaymentPending}, to: Paid},
	EventPaymentFailed:        {from: []Status{PaymentPending}, to: PaymentFailed},
	EventRestaurantConfirmed:  {from: []Status{Paid}, to: RestaurantConfirmed},
	EventRestaurantRejected:   {from: []Status{Paid, RestaurantConfirmed}, to: RestaurantRejected},
	EventRefundRequested:      {from: []Status{RestaurantRejected}, to: Refunding},
	EventRefundCompleted:      {from: []Status{Refunding}, to: Refunded},
	EventOrderPreparing:       {from: []Status{RestaurantConfirmed}, to: Preparing},
	EventOrderReady:           {from: []Status{Preparing}, to: ReadyForPickup},
	EventDriverAssigned:       {from: []Status{ReadyForPickup, Reassigning}, to: DriverAssigned},
	EventAssignmentRejected:   {from: []Status{ReadyForPickup, Reassigning}, to: Reassigning},
	EventAssignmentTimedOut:   {from: []Status{ReadyForPickup, Reassigning}, to: AssignmentTimedOut},
	EventReassignmentStarted:  {from: []Status{AssignmentTimedOut, AssignmentExhausted}, to: Reassigning},
	EventAssignmentExhausted:  {from: []Status{ReadyForPickup, Reassigning, AssignmentTimedOut}, to: AssignmentExhausted},
	EventAssignmentCancelled:  {from: []Status{DriverAssigned}, to: Reassigning},
	EventPickedUp:             {from: []Status{DriverAssigned}, to: PickedUp},
	EventDelivered:            {from: []Status{PickedUp}, to: Delivered},
	EventOrderCancelled:       {from: nonTerminal(), to: Cancelled},
	EventPaymentAttemptFailed: {from: []Status{PaymentPending}, to: PaymentPending},
	EventDriverOffered:        {from: []Status{ReadyForPickup, Reassigning}},
	EventDriverSearchFailed:   {from: []Status{ReadyForPickup, Reassigning, AssignmentTimedOut}},
}

func nonTerminal() []Status {
	result := make([]Status, 0, len(statusStrings))
	for s := Created; s <= AssignmentExhausted; s++ {
		if !s.IsTerminal() {
			result = append(result, s)
		}
	}
	return result
}

// ParseStatus converts a persisted status name back to a Status.
func ParseStatus(s string) (Status, error) {
	for status, str := range statusStrings {
		if str == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is one of the defined states.
func (s Status) Validate() error {
	if _, ok := statusStrings[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s { //nolint:exhaustive // only terminal states are listed
	case PaymentFailed, Refunded, Delivered, Cancelled:
		return true
	default:
		return false
	}
}

// HasDriver reports whether an order in this status must carry a driver.
func (s Status) HasDriver() bool {
	return s == DriverAssigned || s == PickedUp || s == Delivered
}

// InTransit reports whether location samples are accepted for this status.
func (s Status) InTransit() bool {
	return s == PickedUp || s == Delivered
}

// SearchingDriver reports whether the order is waiting for a driver to be found.
func (s Status) SearchingDriver() bool {
	return s == ReadyForPickup || s == Reassigning
}

// Next returns the status reached by applying an event of type t.
//
// Annotation events return the current status unchanged when they are legal
// in it. Events that are not allowed in s return a *TransitionError, which
// matches ErrInvalidStateTransition.
func (s Status) Next(t EventType) (Status, error) {
	tr, ok := transitions[t]
	if !ok {
		return s, nil
	}
	for _, from := range tr.from {
		if from == s {
			if tr.to == Unknown {
				return s, nil
			}
			return tr.to, nil
		}
	}
	return s, &TransitionError{From: s, Event: t}
}

// CanApply reports whether an event of type t is legal in s.
func (s Status) CanApply(t EventType) bool {
	_, err := s.Next(t)
	return err == nil
}
