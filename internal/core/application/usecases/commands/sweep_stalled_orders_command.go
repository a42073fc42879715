package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
)

var ErrSweepStalledOrdersCommandIsNotConstructed = errors.New(
	"SweepStalledOrdersCommand must be created via NewSweepStalledOrdersCommand constructor",
)

// SweepStalledOrdersCommand re-issues lost steps of orders stuck in a
// transient state and escalates the ones out of retries.
type SweepStalledOrdersCommand struct {
	batchSize int

	guard guard.ConstructorGuard
}

func NewSweepStalledOrdersCommand(batchSize int) (SweepStalledOrdersCommand, error) {
	if batchSize < 1 {
		return SweepStalledOrdersCommand{}, errs.NewValueIsOutOfRangeError("batch_size", batchSize, 1, "inf")
	}
	return SweepStalledOrdersCommand{batchSize: batchSize, guard: guard.NewConstructorGuard()}, nil
}

func (c SweepStalledOrdersCommand) Validate() error {
	return c.guard.Validate(ErrSweepStalledOrdersCommandIsNotConstructed)
}

func (c SweepStalledOrdersCommand) BatchSize() int { return c.batchSize }

// SweepResult counts what a sweep did.
type SweepResult struct {
	Retried   int
	Escalated int
}

// SweepStalledOrdersCommandHandler evaluates every stalled order with the
// retry policy. A retry appends retry_requested, whose consumption re-runs
// the step. Escalation is the terminal compensation: payment and refund
// failures cancel the order on behalf of the system, an exhausted driver
// search flags the order for manual handling.
type SweepStalledOrdersCommandHandler struct {
	uowFactory OrderUoWFactory
	writer     *OrderWriter
	clock      ports.Clock
	policy     services.RetryPolicy
	logger     *slog.Logger
}

func NewSweepStalledOrdersCommandHandler(
	uowFactory OrderUoWFactory,
	writer *OrderWriter,
	clock ports.Clock,
	policy services.RetryPolicy,
	logger *slog.Logger,
) SweepStalledOrdersCommandHandler {
	return SweepStalledOrdersCommandHandler{
		uowFactory: uowFactory,
		writer:     writer,
		clock:      clock,
		policy:     policy,
		logger:     logger.With("component", "saga_sweep"),
	}
}

func (h SweepStalledOrdersCommandHandler) Handle(ctx context.Context, cmd SweepStalledOrdersCommand) (SweepResult, error) {
	var result SweepResult
	if err := cmd.Validate(); err != nil {
		return result, err
	}

	ids, err := h.uowFactory.Create().OrderRepository().FindStalled(ctx, h.clock.Now(), h.policy.GracePeriod, cmd.BatchSize())
	if err != nil {
		return result, err
	}

	var errList []error
	for _, id := range ids {
		var decision services.SweepDecision
		_, err = h.writer.Update(ctx, "sweep", id, nil, func(o *order.Order, now time.Time) error {
			decision = h.policy.Evaluate(o, now)
			switch decision.Action {
			case services.SweepRetry:
				return o.RequestRetry(decision.Operation, decision.NextAttemptAt, now)
			case services.SweepEscalate:
				return escalate(o, decision, now)
			default:
				return nil
			}
		})
		if err != nil {
			if _, discarded := DiscardReason(err); !discarded {
				errList = append(errList, err)
			}
			continue
		}

		switch decision.Action {
		case services.SweepRetry:
			result.Retried++
			h.logger.InfoContext(ctx, "retry requested", "order_id", id,
				"operation", decision.Operation, "reason", decision.Reason)
		case services.SweepEscalate:
			result.Escalated++
			h.logger.ErrorContext(ctx, "retries exhausted, compensation forced", "order_id", id,
				"operation", decision.Operation, "reason", decision.Reason)
		case services.SweepNone:
		}
	}
	return result, errors.Join(errList...)
}

func escalate(o *order.Order, d services.SweepDecision, now time.Time) error {
	switch d.Operation {
	case order.RetryDriverSearch:
		if o.Status() == order.AssignmentTimedOut || o.Status().SearchingDriver() {
			return o.ExhaustAssignment(d.Reason, now)
		}
	case order.RetryRefund:
		if o.Status() == order.Cancelled {
			return o.AbandonRefund(d.Reason, now)
		}
	case order.RetryPayment, order.RetryNone:
	}
	return o.ForceCancel(d.Operation, d.Reason, now)
}
