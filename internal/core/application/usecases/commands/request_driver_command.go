package commands

import (
	"errors"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/guard"
)

var ErrRequestDriverCommandIsNotConstructed = errors.New(
	"RequestDriverCommand must be created via NewRequestDriverCommand constructor",
)

// RequestDriverCommand runs one step of the driver search for an order:
// offer the best eligible driver, or record that none was found.
type RequestDriverCommand struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewRequestDriverCommand(orderID kernel.UUID) (RequestDriverCommand, error) {
	if err := orderID.Validate(); err != nil {
		return RequestDriverCommand{}, err
	}
	return RequestDriverCommand{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c RequestDriverCommand) Validate() error {
	return c.guard.Validate(ErrRequestDriverCommandIsNotConstructed)
}

func (c RequestDriverCommand) OrderID() kernel.UUID { return c.orderID }
