package payment_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/payment"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *payment.HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return payment.NewHTTPGateway(payment.HTTPConfig{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		MaxElapsed: 2 * time.Second,
	})
}

func TestHTTPGateway_ProcessPayment(t *testing.T) {
	orderID := kernel.NewUUID()

	t.Run("should return completed payment with reference", func(t *testing.T) {
		g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments", r.URL.Path)
			assert.Equal(t, orderID.String(), r.Header.Get("Idempotency-Key"))
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.InDelta(t, 2460, body["amount_cents"], 0)
			_, _ = w.Write([]byte(`{"status":"completed","payment_ref":"pay-42"}`))
		})

		result, err := g.ProcessPayment(t.Context(), orderID, 2460, "card")

		require.NoError(t, err)
		assert.Equal(t, ports.PaymentOutcomeCompleted, result.Outcome)
		assert.Equal(t, "pay-42", result.PaymentRef)
	})

	t.Run("should report decline as failed outcome", func(t *testing.T) {
		g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"status":"failed","reason":"insufficient funds"}`))
		})

		result, err := g.ProcessPayment(t.Context(), orderID, 2460, "card")

		require.NoError(t, err)
		assert.Equal(t, ports.PaymentOutcomeFailed, result.Outcome)
		assert.Equal(t, "insufficient funds", result.Reason)
	})

	t.Run("should retry server errors", func(t *testing.T) {
		var calls atomic.Int32
		g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"status":"completed","payment_ref":"pay-43"}`))
		})

		result, err := g.ProcessPayment(t.Context(), orderID, 2460, "card")

		require.NoError(t, err)
		assert.Equal(t, "pay-43", result.PaymentRef)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("should not retry rejected requests", func(t *testing.T) {
		var calls atomic.Int32
		g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := g.ProcessPayment(t.Context(), orderID, 2460, "card")

		require.ErrorIs(t, err, ports.ErrDependencyUnavailable)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestHTTPGateway_RefundPayment(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		assert.Equal(t, "refund:pay-42", r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(`{"status":"completed","payment_ref":"pay-42"}`))
	})

	result, err := g.RefundPayment(t.Context(), "pay-42", 2460)

	require.NoError(t, err)
	assert.Equal(t, ports.PaymentOutcomeCompleted, result.Outcome)
}

func TestSimulatedGateway(t *testing.T) {
	ctx := t.Context()
	g := payment.NewSimulatedGateway("declined_card")
	orderID := kernel.NewUUID()

	first, err := g.ProcessPayment(ctx, orderID, 2460, "card")
	require.NoError(t, err)
	again, err := g.ProcessPayment(ctx, orderID, 2460, "card")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, ports.PaymentOutcomeCompleted, first.Outcome)

	declined, err := g.ProcessPayment(ctx, kernel.NewUUID(), 2460, "declined_card")
	require.NoError(t, err)
	assert.Equal(t, ports.PaymentOutcomeFailed, declined.Outcome)

	g.SetRefundOutage(true)
	_, err = g.RefundPayment(ctx, first.PaymentRef, 2460)
	require.ErrorIs(t, err, ports.ErrDependencyUnavailable)

	g.SetRefundOutage(false)
	refund, err := g.RefundPayment(ctx, first.PaymentRef, 2460)
	require.NoError(t, err)
	assert.Equal(t, ports.PaymentOutcomeCompleted, refund.Outcome)
	assert.Equal(t, 5, g.Calls())
}
