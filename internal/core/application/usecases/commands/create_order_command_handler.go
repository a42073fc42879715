package commands

import (
	"context"

	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
)

// CreateOrderCommandHandler prices the cart, records the order and asks for
// payment in one write. The payment itself runs asynchronously once
// order.payment_requested is consumed.
type CreateOrderCommandHandler struct {
	writer    *OrderWriter
	clock     ports.Clock
	estimator services.DeliveryEstimator
	taxRate   float64
}

func NewCreateOrderCommandHandler(
	writer *OrderWriter,
	clock ports.Clock,
	estimator services.DeliveryEstimator,
	taxRate float64,
) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		writer:    writer,
		clock:     clock,
		estimator: estimator,
		taxRate:   taxRate,
	}
}

func (h CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	cart := cmd.Cart()
	subtotal, err := order.SubtotalOf(cart.Items)
	if err != nil {
		return err
	}
	pricing, err := order.NewPricing(subtotal, cart.DeliveryFee, cart.Tip, cart.Discount, h.taxRate)
	if err != nil {
		return err
	}

	now := h.clock.Now()
	address := cmd.Address()
	o, err := order.NewOrder(cmd.OrderID(), order.CreateParams{
		CustomerID:          cmd.CustomerID(),
		RestaurantID:        cart.RestaurantID,
		RestaurantLocation:  cart.RestaurantLocation,
		DeliveryLocation:    address.Location,
		DeliveryAddress:     address.Text,
		SpecialInstructions: address.Instructions,
		Items:               cart.Items,
		Pricing:             pricing,
		PaymentMethod:       cmd.PaymentMethod(),
		EstimatedDeliveryAt: h.estimator.AtCreation(cart.RestaurantLocation, address.Location, now),
	}, now)
	if err != nil {
		return err
	}
	if err = o.RequestPayment(now); err != nil {
		return err
	}

	return h.writer.Create(ctx, o)
}
