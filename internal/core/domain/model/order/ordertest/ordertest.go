// Package ordertest builds orders in given states for tests of the packages
// that store or drive them.
package ordertest

import (
	"testing"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
)

var (
	RestaurantLocation = kernel.MustNewLocation(52.5200, 13.4050)
	DeliveryLocation   = kernel.MustNewLocation(52.5300, 13.4200)
)

// Params returns a valid cart snapshot: two pizzas at 10.00, 3.00 delivery.
func Params(t testing.TB, at time.Time) order.CreateParams {
	t.Helper()
	items := []order.LineItem{{MenuItemID: kernel.NewUUID(), Name: "Margherita", Quantity: 2, UnitPrice: 1000}}
	subtotal, err := order.SubtotalOf(items)
	require.NoError(t, err)
	pricing, err := order.NewPricing(subtotal, 300, 0, 0, order.DefaultTaxRate)
	require.NoError(t, err)

	return order.CreateParams{
		CustomerID:          kernel.NewUUID(),
		RestaurantID:        kernel.NewUUID(),
		RestaurantLocation:  RestaurantLocation,
		DeliveryLocation:    DeliveryLocation,
		DeliveryAddress:     "Torstrasse 1, Berlin",
		Items:               items,
		Pricing:             pricing,
		PaymentMethod:       "card",
		EstimatedDeliveryAt: at.Add(40 * time.Minute),
	}
}

func New(t testing.TB, at time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), Params(t, at), at)
	require.NoError(t, err)
	return o
}

// PaymentPending returns an order waiting for the payment gateway.
func PaymentPending(t testing.TB, at time.Time) *order.Order {
	t.Helper()
	o := New(t, at)
	require.NoError(t, o.RequestPayment(at))
	return o
}

// Paid returns an order whose payment completed with reference "pay-1".
func Paid(t testing.TB, at time.Time) *order.Order {
	t.Helper()
	o := PaymentPending(t, at)
	require.NoError(t, o.CompletePayment("pay-1", at))
	return o
}

// Preparing returns a paid order the restaurant is working on.
func Preparing(t testing.TB, at time.Time) *order.Order {
	t.Helper()
	o := Paid(t, at)
	require.NoError(t, o.ConfirmByRestaurant(at))
	require.NoError(t, o.StartPreparing(at))
	return o
}

// Ready returns an order waiting for a driver.
func Ready(t testing.TB, at time.Time) *order.Order {
	t.Helper()
	o := Preparing(t, at)
	require.NoError(t, o.MarkReady(at))
	return o
}

// Assigned returns an order accepted by driverID.
func Assigned(t testing.TB, driverID kernel.UUID, at time.Time) *order.Order {
	t.Helper()
	o := Ready(t, at)
	_, err := o.OfferDriver(driverID, at.Add(30*time.Second), at)
	require.NoError(t, err)
	require.NoError(t, o.AcceptAssignment(driverID, at.Add(30*time.Minute), at))
	return o
}

// PickedUp returns an order in transit with driverID.
func PickedUp(t testing.TB, driverID kernel.UUID, at time.Time) *order.Order {
	t.Helper()
	o := Assigned(t, driverID, at)
	require.NoError(t, o.ConfirmPickup(driverID, at))
	return o
}
