package order_test

import (
	"fmt"
	"testing"

	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStatuses() []order.Status {
	return []order.Status{
		order.Created, order.PaymentPending, order.Paid, order.PaymentFailed,
		order.RestaurantConfirmed, order.RestaurantRejected, order.Refunding, order.Refunded,
		order.Preparing, order.ReadyForPickup, order.DriverAssigned, order.PickedUp,
		order.Delivered, order.Cancelled, order.AssignmentTimedOut, order.Reassigning,
		order.AssignmentExhausted,
	}
}

func TestStatus_Validate(t *testing.T) {
	t.Run("should validate all defined statuses", func(t *testing.T) {
		for _, status := range allStatuses() {
			require.NoError(t, status.Validate(), status.String())
		}
	})

	t.Run("should reject Unknown and out of range values", func(t *testing.T) {
		for _, status := range []order.Status{order.Unknown, order.Status(-1), order.Status(100)} {
			err := status.Validate()

			require.Error(t, err)
			assert.IsType(t, &errs.ValueIsInvalidError{}, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("%d is not a valid status", int(status)))
		}
	})
}

func TestStatus_StringRoundTrip(t *testing.T) {
	for _, status := range allStatuses() {
		t.Run(status.String(), func(t *testing.T) {
			parsed, err := order.ParseStatus(status.String())

			require.NoError(t, err)
			assert.Equal(t, status, parsed)
		})
	}

	t.Run("should reject unknown names", func(t *testing.T) {
		_, err := order.ParseStatus("lost_in_space")

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	assert.Equal(t, "unknown", order.Status(42).String())
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[order.Status]bool{
		order.PaymentFailed: true,
		order.Refunded:      true,
		order.Delivered:     true,
		order.Cancelled:     true,
	}

	for _, status := range allStatuses() {
		assert.Equal(t, terminal[status], status.IsTerminal(), status.String())
	}
}

func TestStatus_Next(t *testing.T) {
	tests := []struct {
		from  order.Status
		event order.EventType
		want  order.Status
	}{
		{order.Created, order.EventPaymentRequested, order.PaymentPending},
		{order.PaymentPending, order.EventPaymentCompleted, order.Paid},
		{order.PaymentPending, order.EventPaymentFailed, order.PaymentFailed},
		{order.Paid, order.EventRestaurantConfirmed, order.RestaurantConfirmed},
		{order.Paid, order.EventRestaurantRejected, order.RestaurantRejected},
		{order.RestaurantConfirmed, order.EventRestaurantRejected, order.RestaurantRejected},
		{order.RestaurantRejected, order.EventRefundRequested, order.Refunding},
		{order.Refunding, order.EventRefundCompleted, order.Refunded},
		{order.RestaurantConfirmed, order.EventOrderPreparing, order.Preparing},
		{order.Preparing, order.EventOrderReady, order.ReadyForPickup},
		{order.ReadyForPickup, order.EventDriverOffered, order.ReadyForPickup},
		{order.ReadyForPickup, order.EventDriverAssigned, order.DriverAssigned},
		{order.ReadyForPickup, order.EventAssignmentTimedOut, order.AssignmentTimedOut},
		{order.AssignmentTimedOut, order.EventReassignmentStarted, order.Reassigning},
		{order.Reassigning, order.EventAssignmentRejected, order.Reassigning},
		{order.Reassigning, order.EventAssignmentExhausted, order.AssignmentExhausted},
		{order.AssignmentExhausted, order.EventReassignmentStarted, order.Reassigning},
		{order.DriverAssigned, order.EventAssignmentCancelled, order.Reassigning},
		{order.DriverAssigned, order.EventPickedUp, order.PickedUp},
		{order.PickedUp, order.EventDelivered, order.Delivered},
		{order.Preparing, order.EventOrderCancelled, order.Cancelled},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s --%s-->", tt.from, tt.event), func(t *testing.T) {
			got, err := tt.from.Next(tt.event)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Next_Rejects(t *testing.T) {
	tests := []struct {
		from  order.Status
		event order.EventType
	}{
		{order.Created, order.EventPaymentCompleted},
		{order.Paid, order.EventOrderReady},
		{order.Preparing, order.EventDriverAssigned},
		{order.RestaurantRejected, order.EventRefundCompleted},
		{order.PickedUp, order.EventAssignmentCancelled},
		{order.Delivered, order.EventOrderCancelled},
		{order.Refunded, order.EventOrderCancelled},
		{order.Cancelled, order.EventOrderCancelled},
		{order.DriverAssigned, order.EventDriverOffered},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s --%s-->", tt.from, tt.event), func(t *testing.T) {
			got, err := tt.from.Next(tt.event)

			require.ErrorIs(t, err, order.ErrInvalidStateTransition)
			var transitionErr *order.TransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, tt.from, transitionErr.From)
			assert.Equal(t, tt.event, transitionErr.Event)
			assert.Equal(t, tt.from, got)
		})
	}
}

func TestStatus_CancellationFromEveryNonTerminal(t *testing.T) {
	for _, status := range allStatuses() {
		assert.Equal(t, !status.IsTerminal(), status.CanApply(order.EventOrderCancelled), status.String())
	}
}

func TestStatus_HasDriver(t *testing.T) {
	for _, status := range allStatuses() {
		want := status == order.DriverAssigned || status == order.PickedUp || status == order.Delivered
		assert.Equal(t, want, status.HasDriver(), status.String())
	}
}

func TestEventType_Topic(t *testing.T) {
	assert.Equal(t, "order.created", order.EventOrderCreated.Topic())
	assert.Equal(t, "order.cancelled", order.EventOrderCancelled.Topic())
	assert.Equal(t, "order.payment_completed", order.EventPaymentCompleted.Topic())
	assert.Equal(t, "order.ready_for_pickup", order.EventOrderReady.Topic())
	assert.Equal(t, "order.preparing", order.EventOrderPreparing.Topic())
	assert.Equal(t, "order.assignment_exhausted", order.EventAssignmentExhausted.Topic())
	assert.Equal(t, "order.driver_assigned", order.EventDriverAssigned.Topic())
}
