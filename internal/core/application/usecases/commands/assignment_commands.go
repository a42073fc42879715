package commands

import (
	"errors"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/guard"
)

var (
	ErrAcceptAssignmentCommandIsNotConstructed = errors.New(
		"AcceptAssignmentCommand must be created via NewAcceptAssignmentCommand constructor",
	)
	ErrRejectAssignmentCommandIsNotConstructed = errors.New(
		"RejectAssignmentCommand must be created via NewRejectAssignmentCommand constructor",
	)
	ErrCancelAssignmentCommandIsNotConstructed = errors.New(
		"CancelAssignmentCommand must be created via NewCancelAssignmentCommand constructor",
	)
)

// driverAction is the common part of commands sent by a driver about an order.
type driverAction struct {
	orderID  kernel.UUID
	driverID kernel.UUID
	reason   string

	guard guard.ConstructorGuard
}

func newDriverAction(orderID, driverID kernel.UUID, reason string) (driverAction, error) {
	if err := errors.Join(orderID.Validate(), driverID.Validate()); err != nil {
		return driverAction{}, err
	}
	return driverAction{
		orderID:  orderID,
		driverID: driverID,
		reason:   reason,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (a driverAction) OrderID() kernel.UUID  { return a.orderID }
func (a driverAction) DriverID() kernel.UUID { return a.driverID }
func (a driverAction) Reason() string        { return a.reason }

// AcceptAssignmentCommand is the driver accepting the offer for an order.
type AcceptAssignmentCommand struct{ driverAction }

func NewAcceptAssignmentCommand(orderID, driverID kernel.UUID) (AcceptAssignmentCommand, error) {
	a, err := newDriverAction(orderID, driverID, "")
	return AcceptAssignmentCommand{a}, err
}

func (c AcceptAssignmentCommand) Validate() error {
	return c.guard.Validate(ErrAcceptAssignmentCommandIsNotConstructed)
}

// RejectAssignmentCommand is the driver declining the offer.
type RejectAssignmentCommand struct{ driverAction }

func NewRejectAssignmentCommand(orderID, driverID kernel.UUID, reason string) (RejectAssignmentCommand, error) {
	a, err := newDriverAction(orderID, driverID, reason)
	return RejectAssignmentCommand{a}, err
}

func (c RejectAssignmentCommand) Validate() error {
	return c.guard.Validate(ErrRejectAssignmentCommandIsNotConstructed)
}

// CancelAssignmentCommand is the assigned driver backing out before pickup.
type CancelAssignmentCommand struct{ driverAction }

func NewCancelAssignmentCommand(orderID, driverID kernel.UUID, reason string) (CancelAssignmentCommand, error) {
	a, err := newDriverAction(orderID, driverID, reason)
	return CancelAssignmentCommand{a}, err
}

func (c CancelAssignmentCommand) Validate() error {
	return c.guard.Validate(ErrCancelAssignmentCommandIsNotConstructed)
}
