package commands

import (
	"errors"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/guard"
)

var ErrCancelOrderCommandIsNotConstructed = errors.New(
	"CancelOrderCommand must be created via NewCancelOrderCommand constructor",
)

// CancelOrderCommand asks to cancel an order on behalf of an actor.
type CancelOrderCommand struct {
	orderID     kernel.UUID
	requestedBy order.Actor
	reason      string

	guard guard.ConstructorGuard
}

func NewCancelOrderCommand(orderID kernel.UUID, requestedBy order.Actor, reason string) (CancelOrderCommand, error) {
	if err := orderID.Validate(); err != nil {
		return CancelOrderCommand{}, err
	}
	if _, err := order.ParseActor(string(requestedBy)); err != nil {
		return CancelOrderCommand{}, err
	}
	return CancelOrderCommand{
		orderID:     orderID,
		requestedBy: requestedBy,
		reason:      reason,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func (c CancelOrderCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderCommandIsNotConstructed)
}

func (c CancelOrderCommand) OrderID() kernel.UUID     { return c.orderID }
func (c CancelOrderCommand) RequestedBy() order.Actor { return c.requestedBy }
func (c CancelOrderCommand) Reason() string           { return c.reason }
