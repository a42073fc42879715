// Package orderrepo persists the order aggregate as an append-only event log
// plus a snapshot row used for queries and optimistic concurrency.
package orderrepo

import (
	"encoding/json"
	"fmt"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OrderDTO is the snapshot row of an order. Version is the sequence number
// of the last event folded into it.
type OrderDTO struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrderNumber         string         `gorm:"not null"`
	CustomerID          uuid.UUID      `gorm:"type:uuid;index"`
	RestaurantID        uuid.UUID      `gorm:"type:uuid;index"`
	DriverID            *uuid.UUID     `gorm:"type:uuid"`
	Status              string         `gorm:"not null"`
	PaymentStatus       string         `gorm:"not null"`
	Subtotal            int64          `gorm:"not null"`
	Tax                 int64          `gorm:"not null"`
	DeliveryFee         int64          `gorm:"not null"`
	Tip                 int64          `gorm:"not null"`
	Discount            int64          `gorm:"not null"`
	Total               int64          `gorm:"not null"`
	DeliveryLat         float64        `gorm:"not null"`
	DeliveryLng         float64        `gorm:"not null"`
	DeliveryAddress     string         `gorm:"not null"`
	Assignments         datatypes.JSON `gorm:"type:jsonb;not null"`
	RetryOperation      string         `gorm:"not null"`
	RetryAttempts       int            `gorm:"not null"`
	NextRetryAt         *time.Time
	EstimatedDeliveryAt *time.Time
	CancellationReason  string    `gorm:"not null"`
	CancelledBy         string    `gorm:"not null"`
	Version             int64     `gorm:"not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime:false"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// OrderEventDTO is one row of the event log.
type OrderEventDTO struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID      `gorm:"type:uuid;not null"`
	SequenceNo int64          `gorm:"not null"`
	EventType  string         `gorm:"not null"`
	OccurredAt time.Time      `gorm:"not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (OrderEventDTO) TableName() string {
	return "order_events"
}

func snapshotFromDomain(o *order.Order) (OrderDTO, error) {
	assignments, err := json.Marshal(o.Assignments())
	if err != nil {
		return OrderDTO{}, fmt.Errorf("failed to encode assignments: %w", err)
	}

	var driverID *uuid.UUID
	if id := o.Driver(); id != nil {
		raw := id.Bytes()
		driverID = &raw
	}

	pricing := o.Pricing()
	retry := o.Retry()
	return OrderDTO{
		ID:                  o.ID().Bytes(),
		OrderNumber:         o.OrderNumber(),
		CustomerID:          o.CustomerID().Bytes(),
		RestaurantID:        o.RestaurantID().Bytes(),
		DriverID:            driverID,
		Status:              o.Status().String(),
		PaymentStatus:       o.PaymentStatus().String(),
		Subtotal:            pricing.Subtotal.Cents(),
		Tax:                 pricing.Tax.Cents(),
		DeliveryFee:         pricing.DeliveryFee.Cents(),
		Tip:                 pricing.Tip.Cents(),
		Discount:            pricing.Discount.Cents(),
		Total:               pricing.Total.Cents(),
		DeliveryLat:         o.DeliveryLocation().Lat(),
		DeliveryLng:         o.DeliveryLocation().Lng(),
		DeliveryAddress:     o.DeliveryAddress(),
		Assignments:         datatypes.JSON(assignments),
		RetryOperation:      string(retry.Operation),
		RetryAttempts:       retry.Attempts,
		NextRetryAt:         optionalTime(retry.NextAttemptAt),
		EstimatedDeliveryAt: optionalTime(o.EstimatedDeliveryAt()),
		CancellationReason:  o.CancellationReason(),
		CancelledBy:         string(o.CancelledBy()),
		Version:             o.Version(),
		CreatedAt:           o.CreatedAt(),
		UpdatedAt:           o.UpdatedAt(),
	}, nil
}

func eventFromDomain(e *order.Event) (OrderEventDTO, error) {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return OrderEventDTO{}, fmt.Errorf("failed to encode payload of %s: %w", e, err)
	}
	return OrderEventDTO{
		ID:         e.ID().Bytes(),
		OrderID:    e.OrderID().Bytes(),
		SequenceNo: e.SequenceNo(),
		EventType:  string(e.Type()),
		OccurredAt: e.OccurredAt(),
		Payload:    datatypes.JSON(payload),
	}, nil
}

func eventToDomain(dto OrderEventDTO) (*order.Event, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	var payload order.Payload
	if err = json.Unmarshal(dto.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload of event %s: %w", id, err)
	}
	return order.RestoreEvent(id, orderID, order.EventType(dto.EventType), dto.SequenceNo, dto.OccurredAt, payload)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
