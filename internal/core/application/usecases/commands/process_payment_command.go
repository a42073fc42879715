package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/guard"
)

var ErrProcessPaymentCommandIsNotConstructed = errors.New(
	"ProcessPaymentCommand must be created via NewProcessPaymentCommand constructor",
)

// ProcessPaymentCommand charges the customer for a payment_pending order.
type ProcessPaymentCommand struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewProcessPaymentCommand(orderID kernel.UUID) (ProcessPaymentCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ProcessPaymentCommand{}, err
	}
	return ProcessPaymentCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (c ProcessPaymentCommand) Validate() error {
	return c.guard.Validate(ErrProcessPaymentCommandIsNotConstructed)
}

func (c ProcessPaymentCommand) OrderID() kernel.UUID { return c.orderID }

// ProcessPaymentCommandHandler calls the payment gateway outside of any
// transaction and records the outcome. The gateway deduplicates charges by
// order ID, so a redelivered request does not charge twice.
type ProcessPaymentCommandHandler struct {
	uowFactory  OrderUoWFactory
	writer      *OrderWriter
	gateway     ports.PaymentGateway
	retryPolicy services.RetryPolicy
	logger      *slog.Logger
}

func NewProcessPaymentCommandHandler(
	uowFactory OrderUoWFactory,
	writer *OrderWriter,
	gateway ports.PaymentGateway,
	retryPolicy services.RetryPolicy,
	logger *slog.Logger,
) ProcessPaymentCommandHandler {
	return ProcessPaymentCommandHandler{
		uowFactory:  uowFactory,
		writer:      writer,
		gateway:     gateway,
		retryPolicy: retryPolicy,
		logger:      logger.With("component", "process_payment"),
	}
}

func (h ProcessPaymentCommandHandler) Handle(ctx context.Context, cmd ProcessPaymentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	o, err := h.uowFactory.Create().OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}
	if o.Status() != order.PaymentPending {
		return fmt.Errorf("%w: order %s is %s", order.ErrEventAlreadyApplied, o.ID(), o.Status())
	}

	result, err := h.gateway.ProcessPayment(ctx, o.ID(), o.Pricing().Total, o.PaymentMethod())
	var mutate Mutation
	switch {
	case err != nil:
		h.logger.WarnContext(ctx, "payment attempt failed", "order_id", o.ID(),
			"attempt", o.Retry().Attempts, "error", err)
		reason := err.Error()
		mutate = func(o *order.Order, now time.Time) error {
			return o.RecordPaymentAttemptFailure(reason, h.retryPolicy.FailureRetryAt(o, order.RetryPayment, now), now)
		}
	case result.Outcome == ports.PaymentOutcomeCompleted:
		mutate = func(o *order.Order, now time.Time) error {
			return o.CompletePayment(result.PaymentRef, now)
		}
	default:
		mutate = func(o *order.Order, now time.Time) error {
			return o.FailPayment(result.Reason, now)
		}
	}

	_, err = h.writer.Update(ctx, "process_payment", o.ID(), nil, mutate)
	return err
}
