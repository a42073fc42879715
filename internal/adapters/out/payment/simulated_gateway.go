package payment

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/ports"
)

// SimulatedGateway settles payments in process. Charges are idempotent per
// order. Methods listed in DeclinedMethods are declined; Outage makes every
// call fail as unavailable.
type SimulatedGateway struct {
	mu              sync.Mutex
	declinedMethods []string
	charges         map[kernel.UUID]ports.PaymentResult
	refunds         map[string]ports.PaymentResult
	paymentOutage   bool
	refundOutage    bool
	calls           int
}

var _ ports.PaymentGateway = (*SimulatedGateway)(nil)

func NewSimulatedGateway(declinedMethods ...string) *SimulatedGateway {
	return &SimulatedGateway{
		declinedMethods: declinedMethods,
		charges:         make(map[kernel.UUID]ports.PaymentResult),
		refunds:         make(map[string]ports.PaymentResult),
	}
}

// SetPaymentOutage and SetRefundOutage switch the simulated outage on or off.
func (g *SimulatedGateway) SetPaymentOutage(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paymentOutage = down
}

func (g *SimulatedGateway) SetRefundOutage(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundOutage = down
}

// Calls returns the number of calls received, outages included.
func (g *SimulatedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *SimulatedGateway) ProcessPayment(
	_ context.Context,
	orderID kernel.UUID,
	amount kernel.Money,
	method string,
) (ports.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++

	if g.paymentOutage {
		return ports.PaymentResult{}, fmt.Errorf("%w: simulated payment outage", ports.ErrDependencyUnavailable)
	}
	if result, ok := g.charges[orderID]; ok {
		return result, nil
	}

	result := ports.PaymentResult{Outcome: ports.PaymentOutcomeCompleted, PaymentRef: "sim-" + orderID.String()}
	switch {
	case slices.Contains(g.declinedMethods, method):
		result = ports.PaymentResult{Outcome: ports.PaymentOutcomeFailed, Reason: "payment method declined"}
	case amount <= 0:
		result = ports.PaymentResult{Outcome: ports.PaymentOutcomeFailed, Reason: "amount must be positive"}
	}
	g.charges[orderID] = result
	return result, nil
}

func (g *SimulatedGateway) RefundPayment(_ context.Context, paymentRef string, _ kernel.Money) (ports.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++

	if g.refundOutage {
		return ports.PaymentResult{}, fmt.Errorf("%w: simulated refund outage", ports.ErrDependencyUnavailable)
	}
	if result, ok := g.refunds[paymentRef]; ok {
		return result, nil
	}
	result := ports.PaymentResult{Outcome: ports.PaymentOutcomeCompleted, PaymentRef: paymentRef}
	g.refunds[paymentRef] = result
	return result, nil
}
