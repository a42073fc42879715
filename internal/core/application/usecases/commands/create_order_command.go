package commands

import (
	"errors"
	"fmt"
	"strings"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

var (
	ErrCreateOrderCommandIsNotConstructed = errors.New(
		"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
	)
	ErrCartIsEmpty = fmt.Errorf("%w: cart must contain at least one item", errs.ErrValueIsRequired)
)

// CartSnapshot is the customer's cart at checkout.
type CartSnapshot struct {
	RestaurantID       kernel.UUID
	RestaurantLocation kernel.Location
	Items              []order.LineItem
	DeliveryFee        kernel.Money
	Tip                kernel.Money
	Discount           kernel.Money
}

// DeliveryAddress is where the order goes: a coordinate plus free text.
type DeliveryAddress struct {
	Location     kernel.Location
	Text         string
	Instructions string
}

// CreateOrderCommand places a new order and starts its saga.
//
// Example:
//
//	orderID := kernel.NewUUID()
//	cmd, err := NewCreateOrderCommand(orderID, customerID, cart, "card", address)
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("failed to create order: %w", err)
//	}
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID       kernel.UUID
	customerID    kernel.UUID
	cart          CartSnapshot
	paymentMethod string
	address       DeliveryAddress

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand validates the checkout data. The order ID is chosen by
// the caller so that a retried request does not create a second order.
func NewCreateOrderCommand(
	orderID, customerID kernel.UUID,
	cart CartSnapshot,
	paymentMethod string,
	address DeliveryAddress,
) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setIDs(orderID, customerID),
		cmd.setCart(cart),
		cmd.setPaymentMethod(paymentMethod),
		cmd.setAddress(address),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID     { return c.orderID }
func (c CreateOrderCommand) CustomerID() kernel.UUID  { return c.customerID }
func (c CreateOrderCommand) Cart() CartSnapshot       { return c.cart }
func (c CreateOrderCommand) PaymentMethod() string    { return c.paymentMethod }
func (c CreateOrderCommand) Address() DeliveryAddress { return c.address }

func (c *CreateOrderCommand) setIDs(orderID, customerID kernel.UUID) error {
	if err := errors.Join(orderID.Validate(), customerID.Validate()); err != nil {
		return err
	}
	c.orderID = orderID
	c.customerID = customerID
	return nil
}

func (c *CreateOrderCommand) setCart(cart CartSnapshot) error {
	if len(cart.Items) == 0 {
		return ErrCartIsEmpty
	}
	if err := errors.Join(cart.RestaurantID.Validate(), cart.RestaurantLocation.Validate()); err != nil {
		return err
	}
	for _, fee := range []struct {
		name  string
		value kernel.Money
	}{
		{"delivery_fee", cart.DeliveryFee},
		{"tip", cart.Tip},
		{"discount", cart.Discount},
	} {
		if fee.value < 0 {
			return errs.NewValueIsOutOfRangeError(fee.name, fee.value, 0, "inf")
		}
	}
	if _, err := order.SubtotalOf(cart.Items); err != nil {
		return err
	}
	c.cart = cart
	return nil
}

func (c *CreateOrderCommand) setPaymentMethod(method string) error {
	if strings.TrimSpace(method) == "" {
		return errs.NewValueIsRequiredError("payment_method")
	}
	c.paymentMethod = method
	return nil
}

func (c *CreateOrderCommand) setAddress(address DeliveryAddress) error {
	if err := address.Location.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(address.Text) == "" {
		return errs.NewValueIsRequiredError("delivery_address")
	}
	c.address = address
	return nil
}
