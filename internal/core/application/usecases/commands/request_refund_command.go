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

var ErrRequestRefundCommandIsNotConstructed = errors.New(
	"RequestRefundCommand must be created via NewRequestRefundCommand constructor",
)

// RequestRefundCommand runs the refund compensation of an order that owes
// money back: after a restaurant rejection, or after a cancellation of a paid
// order.
type RequestRefundCommand struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewRequestRefundCommand(orderID kernel.UUID) (RequestRefundCommand, error) {
	if err := orderID.Validate(); err != nil {
		return RequestRefundCommand{}, err
	}
	return RequestRefundCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (c RequestRefundCommand) Validate() error {
	return c.guard.Validate(ErrRequestRefundCommandIsNotConstructed)
}

func (c RequestRefundCommand) OrderID() kernel.UUID { return c.orderID }

// RequestRefundCommandHandler records refund_requested, calls the gateway
// outside of any transaction and records the outcome. Each step is its own
// write, so a crash between them is recovered by the retry sweep.
type RequestRefundCommandHandler struct {
	uowFactory  OrderUoWFactory
	writer      *OrderWriter
	gateway     ports.PaymentGateway
	retryPolicy services.RetryPolicy
	logger      *slog.Logger
}

func NewRequestRefundCommandHandler(
	uowFactory OrderUoWFactory,
	writer *OrderWriter,
	gateway ports.PaymentGateway,
	retryPolicy services.RetryPolicy,
	logger *slog.Logger,
) RequestRefundCommandHandler {
	return RequestRefundCommandHandler{
		uowFactory:  uowFactory,
		writer:      writer,
		gateway:     gateway,
		retryPolicy: retryPolicy,
		logger:      logger.With("component", "request_refund"),
	}
}

func (h RequestRefundCommandHandler) Handle(ctx context.Context, cmd RequestRefundCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	o, err := h.uowFactory.Create().OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}
	if !o.AwaitsRefund() {
		return fmt.Errorf("%w: order %s owes no refund", order.ErrEventAlreadyApplied, o.ID())
	}

	if o.PaymentStatus() != order.PaymentStatusRefundPending {
		o, err = h.writer.Update(ctx, "request_refund", o.ID(), nil, func(o *order.Order, now time.Time) error {
			return o.RequestRefund(now)
		})
		if err != nil {
			return err
		}
	}

	result, err := h.gateway.RefundPayment(ctx, o.PaymentRef(), o.Pricing().Total)
	if err == nil && result.Outcome != ports.PaymentOutcomeCompleted {
		err = fmt.Errorf("refund declined: %s", result.Reason)
	}

	var mutate Mutation
	if err != nil {
		h.logger.WarnContext(ctx, "refund attempt failed", "order_id", o.ID(),
			"attempt", o.Retry().Attempts, "error", err)
		reason := err.Error()
		mutate = func(o *order.Order, now time.Time) error {
			return o.RecordRefundFailure(reason, h.retryPolicy.FailureRetryAt(o, order.RetryRefund, now), now)
		}
	} else {
		mutate = func(o *order.Order, now time.Time) error {
			return o.CompleteRefund(now)
		}
	}
	_, err = h.writer.Update(ctx, "complete_refund", o.ID(), nil, mutate)
	return err
}
