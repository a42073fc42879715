package kernel_test

import (
	"testing"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFromFloat(t *testing.T) {
	m, err := kernel.MoneyFromFloat("subtotal", 24.6)
	require.NoError(t, err)
	assert.Equal(t, int64(2460), m.Cents())
	assert.Equal(t, "24.60", m.String())

	m, err = kernel.MoneyFromFloat("tip", 0.125)
	require.NoError(t, err)
	assert.Equal(t, int64(13), m.Cents())

	_, err = kernel.MoneyFromFloat("tax", -1)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
}

func TestMoney_MulRate(t *testing.T) {
	assert.Equal(t, kernel.Money(160), kernel.Money(2000).MulRate(0.08))
	assert.Equal(t, kernel.Money(80), kernel.Money(999).MulRate(0.08))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "0.05", kernel.Money(5).String())
	assert.Equal(t, "-1.25", kernel.Money(-125).String())
}
