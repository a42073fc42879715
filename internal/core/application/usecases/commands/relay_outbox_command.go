package commands

import (
	"context"
	"errors"
	"log/slog"

	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
	"ordersaga/internal/pkg/metrics"
)

var ErrRelayOutboxCommandIsNotConstructed = errors.New(
	"RelayOutboxCommand must be created via NewRelayOutboxCommand constructor",
)

// RelayOutboxCommand publishes a batch of due outbox messages.
type RelayOutboxCommand struct {
	batchSize int

	guard guard.ConstructorGuard
}

func NewRelayOutboxCommand(batchSize int) (RelayOutboxCommand, error) {
	if batchSize < 1 {
		return RelayOutboxCommand{}, errs.NewValueIsOutOfRangeError("batch_size", batchSize, 1, "inf")
	}
	return RelayOutboxCommand{batchSize: batchSize, guard: guard.NewConstructorGuard()}, nil
}

func (c RelayOutboxCommand) Validate() error {
	return c.guard.Validate(ErrRelayOutboxCommandIsNotConstructed)
}

func (c RelayOutboxCommand) BatchSize() int { return c.batchSize }

// RelayOutboxCommandHandler publishes outbox messages that were not published
// right after their commit. A failed message is rescheduled with capped
// exponential backoff, and later messages with the same key wait for it so
// that per-order order is kept.
type RelayOutboxCommandHandler struct {
	uowFactory OutboxUoWFactory
	publisher  ports.EventPublisher
	clock      ports.Clock
	backoff    services.RetryPolicy
	logger     *slog.Logger
}

func NewRelayOutboxCommandHandler(
	uowFactory OutboxUoWFactory,
	publisher ports.EventPublisher,
	clock ports.Clock,
	backoff services.RetryPolicy,
	logger *slog.Logger,
) RelayOutboxCommandHandler {
	return RelayOutboxCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		clock:      clock,
		backoff:    backoff,
		logger:     logger.With("component", "outbox_relay"),
	}
}

// Handle returns the number of messages published.
func (h RelayOutboxCommandHandler) Handle(ctx context.Context, cmd RelayOutboxCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OutboxRepository()
	now := h.clock.Now()
	entries, err := repo.FetchDue(ctx, now, cmd.BatchSize())
	if err != nil {
		return 0, err
	}

	published := make([]string, 0, len(entries))
	blocked := make(map[string]struct{})
	for _, entry := range entries {
		if _, ok := blocked[entry.Key]; ok {
			continue
		}
		if pubErr := h.publisher.Publish(ctx, entry.Message); pubErr != nil {
			blocked[entry.Key] = struct{}{}
			metrics.OutboxPublishFailed()
			next := now.Add(h.backoff.Backoff(entry.Attempts + 1))
			h.logger.WarnContext(ctx, "outbox publish failed", "message_id", entry.ID,
				"topic", entry.Topic, "attempt", entry.Attempts+1, "next_attempt_at", next, "error", pubErr)
			if err = repo.MarkFailed(ctx, entry.ID, next, pubErr.Error()); err != nil {
				return 0, err
			}
			continue
		}
		published = append(published, entry.ID)
	}

	if len(published) > 0 {
		if err = repo.MarkPublished(ctx, published, now); err != nil {
			return 0, err
		}
	}
	if err = uow.Commit(ctx); err != nil {
		return 0, err
	}
	return len(published), nil
}
