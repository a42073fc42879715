package queries

import (
	"time"

	"ordersaga/internal/core/domain/model/driver"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/tracking"
)

// OrderView is the read model of an order returned by the order queries.
type OrderView struct {
	ID                  kernel.UUID         `json:"id"`
	OrderNumber         string              `json:"order_number"`
	CustomerID          kernel.UUID         `json:"customer_id"`
	RestaurantID        kernel.UUID         `json:"restaurant_id"`
	RestaurantLocation  kernel.Location     `json:"restaurant_location"`
	DeliveryLocation    kernel.Location     `json:"delivery_location"`
	DeliveryAddress     string              `json:"delivery_address"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
	Items               []order.LineItem    `json:"items"`
	Pricing             order.Pricing       `json:"pricing"`
	PaymentMethod       string              `json:"payment_method"`
	PaymentStatus       order.PaymentStatus `json:"payment_status"`
	Status              string              `json:"status"`
	StatusReason        string              `json:"status_reason,omitempty"`
	DriverID            *kernel.UUID        `json:"driver_id,omitempty"`
	CurrentLocation     *kernel.Location    `json:"current_location,omitempty"`
	Assignments         []order.Assignment  `json:"assignments"`
	AssignmentAttempts  int                 `json:"assignment_attempts"`
	Retry               *RetryView          `json:"retry,omitempty"`
	CancellationReason  string              `json:"cancellation_reason,omitempty"`
	CancelledBy         string              `json:"cancelled_by,omitempty"`
	EstimatedDeliveryAt time.Time           `json:"estimated_delivery_at,omitzero"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Version             int64               `json:"version"`
}

type RetryView struct {
	Operation     order.RetryOperation `json:"operation"`
	Attempts      int                  `json:"attempts"`
	NextAttemptAt time.Time            `json:"next_attempt_at,omitzero"`
	LastError     string               `json:"last_error,omitempty"`
}

func newOrderView(o *order.Order) OrderView {
	v := OrderView{
		ID:                  o.ID(),
		OrderNumber:         o.OrderNumber(),
		CustomerID:          o.CustomerID(),
		RestaurantID:        o.RestaurantID(),
		RestaurantLocation:  o.RestaurantLocation(),
		DeliveryLocation:    o.DeliveryLocation(),
		DeliveryAddress:     o.DeliveryAddress(),
		SpecialInstructions: o.SpecialInstructions(),
		Items:               o.Items(),
		Pricing:             o.Pricing(),
		PaymentMethod:       o.PaymentMethod(),
		PaymentStatus:       o.PaymentStatus(),
		Status:              o.Status().String(),
		StatusReason:        o.StatusReason(),
		DriverID:            o.Driver(),
		Assignments:         o.Assignments(),
		AssignmentAttempts:  o.AssignmentAttempts(),
		CancellationReason:  o.CancellationReason(),
		EstimatedDeliveryAt: o.EstimatedDeliveryAt(),
		CreatedAt:           o.CreatedAt(),
		UpdatedAt:           o.UpdatedAt(),
		Version:             o.Version(),
	}
	if o.CancelledBy() != "" {
		v.CancelledBy = o.CancelledBy().String()
	}
	if r := o.Retry(); !r.IsZero() {
		v.Retry = &RetryView{
			Operation:     r.Operation,
			Attempts:      r.Attempts,
			NextAttemptAt: r.NextAttemptAt,
			LastError:     r.LastError,
		}
	}
	if v.Assignments == nil {
		v.Assignments = []order.Assignment{}
	}
	return v
}

// EventView is one entry of an order's event log.
type EventView struct {
	EventID    kernel.UUID     `json:"event_id"`
	EventType  order.EventType `json:"event_type"`
	SequenceNo int64           `json:"sequence_no"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    order.Payload   `json:"payload"`
}

func newEventView(e *order.Event) EventView {
	return EventView{
		EventID:    e.ID(),
		EventType:  e.Type(),
		SequenceNo: e.SequenceNo(),
		OccurredAt: e.OccurredAt(),
		Payload:    e.Payload(),
	}
}

// TrailView is the recorded path of a delivery.
type TrailView struct {
	OrderID        kernel.UUID       `json:"order_id"`
	Samples        []tracking.Sample `json:"samples"`
	DistanceMeters float64           `json:"distance_meters"`
}

// DriverView is an entry of the available driver directory.
type DriverView struct {
	DriverID            kernel.UUID     `json:"driver_id"`
	Location            kernel.Location `json:"location"`
	AvgRating           float64         `json:"avg_rating"`
	ActiveDeliveryCount int             `json:"active_delivery_count"`
	HasPendingOffer     bool            `json:"has_pending_offer"`
	LastHeartbeatAt     time.Time       `json:"last_heartbeat_at"`
}

func newDriverView(s driver.Snapshot) DriverView {
	return DriverView{
		DriverID:            s.DriverID,
		Location:            s.Location,
		AvgRating:           s.AvgRating,
		ActiveDeliveryCount: s.ActiveDeliveryCount,
		HasPendingOffer:     s.HasPendingOffer,
		LastHeartbeatAt:     s.LastHeartbeatAt,
	}
}
