package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
)

// EventType names an entry of the order event log.
type EventType string

const (
	EventOrderCreated         EventType = "order_created"
	EventPaymentRequested     EventType = "payment_requested"
	EventPaymentCompleted     EventType = "payment_completed"
	EventPaymentFailed        EventType = "payment_failed"
	EventPaymentAttemptFailed EventType = "payment_attempt_failed"
	EventRestaurantConfirmed  EventType = "restaurant_confirmed"
	EventRestaurantRejected   EventType = "restaurant_rejected"
	EventRefundRequested      EventType = "refund_requested"
	EventRefundCompleted      EventType = "refund_completed"
	EventRefundFailed         EventType = "refund_failed"
	EventRefundAbandoned      EventType = "refund_abandoned"
	EventOrderPreparing       EventType = "order_preparing"
	EventOrderReady           EventType = "order_ready"
	EventDriverOffered        EventType = "driver_offered"
	EventDriverSearchFailed   EventType = "driver_search_failed"
	EventDriverAssigned       EventType = "driver_assigned"
	EventAssignmentRejected   EventType = "assignment_rejected"
	EventAssignmentTimedOut   EventType = "assignment_timed_out"
	EventAssignmentCancelled  EventType = "assignment_cancelled"
	EventAssignmentExhausted  EventType = "assignment_exhausted"
	EventReassignmentStarted  EventType = "reassignment_started"
	EventPickedUp             EventType = "picked_up"
	EventDelivered            EventType = "delivered"
	EventOrderCancelled       EventType = "order_cancelled"
	EventRetryRequested       EventType = "retry_requested"
)

// Topic returns the bus topic the event is published on.
func (t EventType) Topic() string {
	switch t { //nolint:exhaustive // the rest map by prefix
	case EventOrderReady:
		return "order.ready_for_pickup"
	case EventOrderPreparing:
		return "order.preparing"
	}
	return "order." + strings.TrimPrefix(string(t), "order_")
}

// ChangesStatus reports whether the event type drives a status transition.
func (t EventType) ChangesStatus() bool {
	tr, ok := transitions[t]
	return ok && tr.to != Unknown && t != EventPaymentAttemptFailed
}

// IsFinancial reports whether the event concerns money movement or closes the
// order, in which case a billing obligation is raised.
func (t EventType) IsFinancial() bool {
	switch t { //nolint:exhaustive // non-financial events are the default
	case EventPaymentCompleted, EventPaymentFailed, EventRefundCompleted, EventRefundAbandoned,
		EventDelivered, EventOrderCancelled:
		return true
	default:
		return false
	}
}

// LineItem is one line of the cart snapshot taken at order creation.
type LineItem struct {
	MenuItemID kernel.UUID  `json:"menu_item_id,omitzero"`
	Name       string       `json:"name"`
	Quantity   int          `json:"quantity"`
	UnitPrice  kernel.Money `json:"unit_price"`
}

// Payload carries the type-specific data of an event. Only the fields relevant
// to the event type are set.
type Payload struct {
	OrderNumber         string          `json:"order_number,omitempty"`
	CustomerID          kernel.UUID     `json:"customer_id,omitzero"`
	RestaurantID        kernel.UUID     `json:"restaurant_id,omitzero"`
	RestaurantLocation  kernel.Location `json:"restaurant_location,omitzero"`
	DeliveryLocation    kernel.Location `json:"delivery_location,omitzero"`
	DeliveryAddress     string          `json:"delivery_address,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Items               []LineItem      `json:"items,omitempty"`
	Pricing             *Pricing        `json:"pricing,omitempty"`
	PaymentMethod       string          `json:"payment_method,omitempty"`
	PaymentRef          string          `json:"payment_ref,omitempty"`
	EstimatedDeliveryAt time.Time       `json:"estimated_delivery_at,omitzero"`
	DriverID            kernel.UUID     `json:"driver_id,omitzero"`
	AssignmentID        kernel.UUID     `json:"assignment_id,omitzero"`
	OfferExpiresAt      time.Time       `json:"offer_expires_at,omitzero"`
	Reason              string          `json:"reason,omitempty"`
	CancelledBy         Actor           `json:"cancelled_by,omitempty"`
	Operation           RetryOperation  `json:"operation,omitempty"`
	Attempt             int             `json:"attempt,omitempty"`
	NextAttemptAt       time.Time       `json:"next_attempt_at,omitzero"`
}

// Event is an immutable entry of an order's event log.
type Event struct {
	id         kernel.UUID
	orderID    kernel.UUID
	eventType  EventType
	sequenceNo int64
	occurredAt time.Time
	payload    Payload
}

func newEvent(orderID kernel.UUID, t EventType, seq int64, at time.Time, payload Payload) *Event {
	return &Event{
		id:         kernel.NewUUID(),
		orderID:    orderID,
		eventType:  t,
		sequenceNo: seq,
		occurredAt: at.UTC(),
		payload:    payload,
	}
}

// RestoreEvent rebuilds a persisted event.
func RestoreEvent(
	id, orderID kernel.UUID,
	t EventType,
	seq int64,
	occurredAt time.Time,
	payload Payload,
) (*Event, error) {
	if seq < 1 {
		return nil, errs.NewValueIsOutOfRangeError("sequence_no", seq, 1, "inf")
	}
	if t == "" {
		return nil, errs.NewValueIsRequiredError("event_type")
	}
	if err := errors.Join(id.Validate(), orderID.Validate()); err != nil {
		return nil, err
	}
	return &Event{
		id:         id,
		orderID:    orderID,
		eventType:  t,
		sequenceNo: seq,
		occurredAt: occurredAt.UTC(),
		payload:    payload,
	}, nil
}

func (e *Event) ID() kernel.UUID       { return e.id }
func (e *Event) OrderID() kernel.UUID  { return e.orderID }
func (e *Event) Type() EventType       { return e.eventType }
func (e *Event) SequenceNo() int64     { return e.sequenceNo }
func (e *Event) OccurredAt() time.Time { return e.occurredAt }
func (e *Event) Payload() Payload      { return e.payload }

func (e *Event) String() string {
	return fmt.Sprintf("%s#%d(%s)", e.eventType, e.sequenceNo, e.orderID)
}

// Envelope is the wire form of an event published on the bus.
type Envelope struct {
	EventID    kernel.UUID `json:"event_id"`
	OrderID    kernel.UUID `json:"order_id"`
	EventType  EventType   `json:"event_type"`
	SequenceNo int64       `json:"sequence_no"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    Payload     `json:"payload"`
}

func (e *Event) Envelope() Envelope {
	return Envelope{
		EventID:    e.id,
		OrderID:    e.orderID,
		EventType:  e.eventType,
		SequenceNo: e.sequenceNo,
		OccurredAt: e.occurredAt,
		Payload:    e.payload,
	}
}

func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Envelope())
}

// DecodeEnvelope parses a bus message body produced by Event.MarshalJSON.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errs.NewValueIsInvalidErrorWithCause("event envelope", err)
	}
	if env.OrderID.IsZero() || env.EventType == "" {
		return Envelope{}, errs.NewValueIsRequiredError("event envelope order_id/event_type")
	}
	return env, nil
}
