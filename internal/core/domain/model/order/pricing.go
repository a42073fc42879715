package order

import (
	"fmt"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
)

// DefaultTaxRate is applied to the subtotal when no rate is configured.
const DefaultTaxRate = 0.08

// Pricing is the monetary breakdown of an order. Total is always derived from
// the components and never set on its own.
type Pricing struct {
	Subtotal    kernel.Money `json:"subtotal"`
	Tax         kernel.Money `json:"tax"`
	DeliveryFee kernel.Money `json:"delivery_fee"`
	Tip         kernel.Money `json:"tip"`
	Discount    kernel.Money `json:"discount"`
	Total       kernel.Money `json:"total"`
}

// NewPricing computes tax from the subtotal and the total from all components.
func NewPricing(subtotal, deliveryFee, tip, discount kernel.Money, taxRate float64) (Pricing, error) {
	if taxRate < 0 || taxRate > 1 {
		return Pricing{}, errs.NewValueIsOutOfRangeError("tax_rate", taxRate, 0, 1)
	}
	for name, v := range map[string]kernel.Money{
		"subtotal":     subtotal,
		"delivery_fee": deliveryFee,
		"tip":          tip,
		"discount":     discount,
	} {
		if v < 0 {
			return Pricing{}, errs.NewValueIsOutOfRangeError(name, v.Cents(), 0, "inf")
		}
	}

	p := Pricing{
		Subtotal:    subtotal,
		Tax:         subtotal.MulRate(taxRate),
		DeliveryFee: deliveryFee,
		Tip:         tip,
		Discount:    discount,
	}
	gross := p.Subtotal + p.Tax + p.DeliveryFee + p.Tip
	if discount > gross {
		return Pricing{}, errs.NewValueIsOutOfRangeError("discount", discount.Cents(), 0, gross.Cents())
	}
	p.Total = gross - discount
	return p, nil
}

// SubtotalOf sums quantity times unit price over the line items.
func SubtotalOf(items []LineItem) (kernel.Money, error) {
	var sum kernel.Money
	for i, item := range items {
		if item.Quantity <= 0 {
			return 0, errs.NewValueIsOutOfRangeError(fmt.Sprintf("items[%d].quantity", i), item.Quantity, 1, "inf")
		}
		if item.UnitPrice < 0 {
			return 0, errs.NewValueIsOutOfRangeError(fmt.Sprintf("items[%d].unit_price", i), item.UnitPrice.Cents(), 0, "inf")
		}
		sum += kernel.Money(item.Quantity) * item.UnitPrice
	}
	return sum, nil
}

// Validate checks that the stored total matches its components.
func (p Pricing) Validate() error {
	want := p.Subtotal + p.Tax + p.DeliveryFee + p.Tip - p.Discount
	if p.Total != want {
		return errs.NewValueIsInvalidErrorWithCause("total",
			fmt.Errorf("total %s does not match components %s", p.Total, want))
	}
	return nil
}
