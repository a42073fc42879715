package commands

import (
	"context"
	"errors"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
)

var (
	ErrConfirmPickupCommandIsNotConstructed = errors.New(
		"ConfirmPickupCommand must be created via NewConfirmPickupCommand constructor",
	)
	ErrConfirmDeliveryCommandIsNotConstructed = errors.New(
		"ConfirmDeliveryCommand must be created via NewConfirmDeliveryCommand constructor",
	)
)

// ConfirmPickupCommand is the assigned driver collecting the order.
type ConfirmPickupCommand struct{ driverAction }

func NewConfirmPickupCommand(orderID, driverID kernel.UUID) (ConfirmPickupCommand, error) {
	a, err := newDriverAction(orderID, driverID, "")
	return ConfirmPickupCommand{a}, err
}

func (c ConfirmPickupCommand) Validate() error {
	return c.guard.Validate(ErrConfirmPickupCommandIsNotConstructed)
}

// ConfirmDeliveryCommand is the assigned driver handing the order over.
type ConfirmDeliveryCommand struct{ driverAction }

func NewConfirmDeliveryCommand(orderID, driverID kernel.UUID) (ConfirmDeliveryCommand, error) {
	a, err := newDriverAction(orderID, driverID, "")
	return ConfirmDeliveryCommand{a}, err
}

func (c ConfirmDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrConfirmDeliveryCommandIsNotConstructed)
}

type ConfirmPickupCommandHandler struct {
	writer *OrderWriter
}

func NewConfirmPickupCommandHandler(writer *OrderWriter) ConfirmPickupCommandHandler {
	return ConfirmPickupCommandHandler{writer: writer}
}

func (h ConfirmPickupCommandHandler) Handle(ctx context.Context, cmd ConfirmPickupCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "confirm_pickup", cmd.OrderID(), nil, func(o *order.Order, now time.Time) error {
		return o.ConfirmPickup(cmd.DriverID(), now)
	})
	return err
}

type ConfirmDeliveryCommandHandler struct {
	writer *OrderWriter
}

func NewConfirmDeliveryCommandHandler(writer *OrderWriter) ConfirmDeliveryCommandHandler {
	return ConfirmDeliveryCommandHandler{writer: writer}
}

func (h ConfirmDeliveryCommandHandler) Handle(ctx context.Context, cmd ConfirmDeliveryCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.writer.Update(ctx, "confirm_delivery", cmd.OrderID(), nil, func(o *order.Order, now time.Time) error {
		return o.ConfirmDelivery(cmd.DriverID(), now)
	})
	return err
}
