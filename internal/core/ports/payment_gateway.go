package ports

import (
	"context"

	"ordersaga/internal/core/domain/model/kernel"
)

type PaymentOutcome string

const (
	PaymentOutcomeCompleted PaymentOutcome = "completed"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

type PaymentResult struct {
	Outcome    PaymentOutcome
	PaymentRef string
	Reason     string
}

// PaymentGateway is the synchronous payment collaborator. A definitive
// decline comes back as PaymentOutcomeFailed; timeouts and outages come back
// as errors wrapping ErrDependencyUnavailable.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, orderID kernel.UUID, amount kernel.Money, method string) (PaymentResult, error)

	RefundPayment(ctx context.Context, paymentRef string, amount kernel.Money) (PaymentResult, error)
}
