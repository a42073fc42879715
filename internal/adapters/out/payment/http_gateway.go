// Package payment holds the PaymentGateway adapters: an HTTP client for the
// payment collaborator and an in-process simulation.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type HTTPConfig struct {
	BaseURL string
	// Timeout bounds a single request.
	Timeout time.Duration
	// MaxElapsed bounds all attempts of one call.
	MaxElapsed time.Duration
}

// HTTPGateway calls the payment collaborator. Requests are retried with
// exponential backoff on transport errors and 5xx answers; a 402 is a
// definitive decline. Charges carry the order ID as idempotency key, so a
// retried charge is not taken twice.
type HTTPGateway struct {
	cfg    HTTPConfig
	client *http.Client
}

var _ ports.PaymentGateway = (*HTTPGateway)(nil)

func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	return &HTTPGateway{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type chargeRequest struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

type refundRequest struct {
	PaymentRef  string `json:"payment_ref"`
	AmountCents int64  `json:"amount_cents"`
}

type gatewayResponse struct {
	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref"`
	Reason     string `json:"reason"`
}

func (g *HTTPGateway) ProcessPayment(
	ctx context.Context,
	orderID kernel.UUID,
	amount kernel.Money,
	method string,
) (ports.PaymentResult, error) {
	return g.call(ctx, "/payments", orderID.String(), chargeRequest{
		OrderID:     orderID.String(),
		AmountCents: amount.Cents(),
		Method:      method,
	})
}

func (g *HTTPGateway) RefundPayment(ctx context.Context, paymentRef string, amount kernel.Money) (ports.PaymentResult, error) {
	return g.call(ctx, "/refunds", "refund:"+paymentRef, refundRequest{
		PaymentRef:  paymentRef,
		AmountCents: amount.Cents(),
	})
}

func (g *HTTPGateway) call(ctx context.Context, path, idempotencyKey string, body any) (ports.PaymentResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return ports.PaymentResult{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = g.cfg.MaxElapsed

	result, err := backoff.RetryWithData(func() (ports.PaymentResult, error) {
		return g.do(ctx, path, idempotencyKey, payload)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return ports.PaymentResult{}, fmt.Errorf("%w: payment gateway %s: %w", ports.ErrDependencyUnavailable, path, err)
	}
	return result, nil
}

func (g *HTTPGateway) do(ctx context.Context, path, idempotencyKey string, payload []byte) (ports.PaymentResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return ports.PaymentResult{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return ports.PaymentResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.PaymentResult{}, err
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return ports.PaymentResult{}, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusPaymentRequired:
		var decline gatewayResponse
		_ = json.Unmarshal(raw, &decline)
		return ports.PaymentResult{Outcome: ports.PaymentOutcomeFailed, Reason: decline.Reason}, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return ports.PaymentResult{}, backoff.Permanent(
			fmt.Errorf("request rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}

	var decoded gatewayResponse
	if err = json.Unmarshal(raw, &decoded); err != nil {
		return ports.PaymentResult{}, backoff.Permanent(fmt.Errorf("malformed response: %w", err))
	}
	outcome := ports.PaymentOutcomeFailed
	if decoded.Status == string(ports.PaymentOutcomeCompleted) {
		outcome = ports.PaymentOutcomeCompleted
	}
	return ports.PaymentResult{Outcome: outcome, PaymentRef: decoded.PaymentRef, Reason: decoded.Reason}, nil
}
