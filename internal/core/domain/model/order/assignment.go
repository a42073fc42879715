package order

import (
	"time"

	"ordersaga/internal/core/domain/model/kernel"
)

// AssignmentStatus is the lifecycle of one driver offer.
type AssignmentStatus string

const (
	AssignmentOffered   AssignmentStatus = "offered"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentRejected  AssignmentStatus = "rejected"
	AssignmentExpired   AssignmentStatus = "expired"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// IsActive reports whether the assignment still binds the driver to the order.
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentOffered || s == AssignmentAccepted
}

// Assignment relates the order to one driver. An order keeps every assignment
// it ever had; at most one of them is active.
type Assignment struct {
	ID         kernel.UUID      `json:"id"`
	DriverID   kernel.UUID      `json:"driver_id"`
	Status     AssignmentStatus `json:"status"`
	OfferedAt  time.Time        `json:"offered_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	AssignedAt time.Time        `json:"assigned_at,omitzero"`
	ResolvedAt time.Time        `json:"resolved_at,omitzero"`
	Reason     string           `json:"reason,omitempty"`
}
