package kernel

import (
	"fmt"
	"math"

	"ordersaga/internal/pkg/errs"
)

// Money is an amount in minor currency units (cents). Using integers keeps
// totals deterministic: 20.00 + 1.60 + 3.00 is always 24.60.
type Money int64

// NewMoney rejects negative amounts.
func NewMoney(paramName string, cents int64) (Money, error) {
	if cents < 0 {
		return 0, errs.NewValueIsOutOfRangeError(paramName, cents, 0, int64(math.MaxInt64))
	}
	return Money(cents), nil
}

// MoneyFromFloat converts a decimal amount such as 24.6 to cents, rounding
// half away from zero.
func MoneyFromFloat(paramName string, amount float64) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errs.NewValueIsInvalidError(paramName)
	}
	return NewMoney(paramName, int64(math.Round(amount*100)))
}

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

// MulRate applies a fractional rate and rounds to the nearest cent.
func (m Money) MulRate(rate float64) Money {
	return Money(math.Round(float64(m) * rate))
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
