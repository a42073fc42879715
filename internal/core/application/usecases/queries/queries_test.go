package queries_test

import (
	"testing"

	"ordersaga/internal/core/application/usecases/queries"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_NotConstructedViaConstructor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"GetOrder", queries.GetOrderQuery{}.Validate(), queries.ErrGetOrderQueryIsNotConstructed},
		{"ListOrders", queries.ListOrdersQuery{}.Validate(), queries.ErrListOrdersQueryIsNotConstructed},
		{"GetOrderEvents", queries.GetOrderEventsQuery{}.Validate(), queries.ErrGetOrderEventsQueryIsNotConstructed},
		{"GetTrail", queries.GetTrailQuery{}.Validate(), queries.ErrGetTrailQueryIsNotConstructed},
		{
			"GetCurrentLocation",
			queries.GetCurrentLocationQuery{}.Validate(),
			queries.ErrGetCurrentLocationQueryIsNotConstructed,
		},
		{
			"ListAvailableDrivers",
			queries.ListAvailableDriversQuery{}.Validate(),
			queries.ErrListAvailableDriversQueryIsNotConstructed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.want)
		})
	}
}

func TestQueries_RejectZeroOrderID(t *testing.T) {
	_, err := queries.NewGetOrderQuery(kernel.UUID{})
	require.Error(t, err)
	_, err = queries.NewGetOrderEventsQuery(kernel.UUID{})
	require.Error(t, err)
	_, err = queries.NewGetTrailQuery(kernel.UUID{})
	require.Error(t, err)
	_, err = queries.NewGetCurrentLocationQuery(kernel.UUID{})
	require.Error(t, err)

	q, err := queries.NewGetOrderQuery(kernel.NewUUID())
	require.NoError(t, err)
	require.NoError(t, q.Validate())
	require.NoError(t, queries.NewListAvailableDriversQuery().Validate())
}

func TestNewListOrdersQuery(t *testing.T) {
	t.Run("should default the limit", func(t *testing.T) {
		q, err := queries.NewListOrdersQuery(queries.ListOrdersParams{})

		require.NoError(t, err)
		assert.Equal(t, queries.DefaultListLimit, q.Filter().Limit)
		assert.Nil(t, q.Filter().CustomerID)
		assert.Nil(t, q.Filter().Status)
	})

	t.Run("should parse filters", func(t *testing.T) {
		customerID := kernel.NewUUID()
		q, err := queries.NewListOrdersQuery(queries.ListOrdersParams{
			CustomerID: customerID.String(),
			Status:     "ready_for_pickup",
			Limit:      10,
			Offset:     20,
		})

		require.NoError(t, err)
		require.NotNil(t, q.Filter().CustomerID)
		assert.True(t, customerID.IsEqual(*q.Filter().CustomerID))
		require.NotNil(t, q.Filter().Status)
		assert.Equal(t, order.ReadyForPickup, *q.Filter().Status)
		assert.Equal(t, 10, q.Filter().Limit)
		assert.Equal(t, 20, q.Filter().Offset)
	})

	t.Run("should reject bad input", func(t *testing.T) {
		for name, p := range map[string]queries.ListOrdersParams{
			"limit too large": {Limit: queries.MaxListLimit + 1},
			"negative limit":  {Limit: -1},
			"negative offset": {Offset: -5},
			"customer id":     {CustomerID: "not-a-uuid"},
			"restaurant id":   {RestaurantID: "42"},
			"status":          {Status: "lost_in_space"},
		} {
			_, err := queries.NewListOrdersQuery(p)
			assert.True(t, errs.IsValidation(err), name)
		}
	})
}
