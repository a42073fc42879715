package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/metrics"
	"ordersaga/internal/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultConflictRetries = 5

// ErrDuplicateMessage is returned when the consumed message was already
// processed by the consumer group. Callers treat it as success.
var ErrDuplicateMessage = errors.New("message already processed")

// MessageRef identifies a consumed bus message for inbox deduplication.
type MessageRef struct {
	Consumer  string
	MessageID string
}

// Mutation changes an order. It must not perform I/O: it runs again on a
// freshly read order when the write conflicts.
type Mutation func(o *order.Order, now time.Time) error

// OrderWriter is the single write path of the order aggregate.
//
// Every write loads the order by folding its event log, applies a Mutation,
// appends the new events with optimistic concurrency, stores their outbox
// messages and commits. Conflicting writers are retried with the fresh
// state. After the commit the messages are published, unless older messages
// of the same order are still queued: those writes, like a failed publish,
// are left to the outbox relay so that per-order order holds.
type OrderWriter struct {
	uowFactory      OrderUoWFactory
	publisher       ports.EventPublisher
	clock           ports.Clock
	logger          *slog.Logger
	tracer          trace.Tracer
	conflictRetries int
}

func NewOrderWriter(
	uowFactory OrderUoWFactory,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *slog.Logger,
) *OrderWriter {
	return &OrderWriter{
		uowFactory:      uowFactory,
		publisher:       publisher,
		clock:           clock,
		logger:          logger.With("component", "order_writer"),
		tracer:          tracing.Tracer("commands"),
		conflictRetries: defaultConflictRetries,
	}
}

// Create persists a newly built order together with its messages.
func (w *OrderWriter) Create(ctx context.Context, o *order.Order) error {
	ctx, span := w.tracer.Start(ctx, "order.create", trace.WithAttributes(attribute.String("order.id", o.ID().String())))
	defer span.End()

	msgs, queued, err := w.write(ctx, nil, func(OrderUoW) (*order.Order, error) { return o, nil })
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	w.publish(ctx, msgs, queued)
	return nil
}

// Update applies mutate to the stored order and commits the result. Errors
// returned by mutate abort the write and are returned unchanged. With ref
// set, the consumed message is marked processed in the same transaction and
// a redelivery returns ErrDuplicateMessage.
func (w *OrderWriter) Update(
	ctx context.Context,
	name string,
	orderID kernel.UUID,
	ref *MessageRef,
	mutate Mutation,
) (*order.Order, error) {
	ctx, span := w.tracer.Start(ctx, "order."+name, trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	var (
		updated *order.Order
		msgs    []ports.Message
		queued  bool
		err     error
	)
	for attempt := 0; ; attempt++ {
		msgs, queued, err = w.write(ctx, ref, func(uow OrderUoW) (*order.Order, error) {
			o, getErr := uow.OrderRepository().Get(ctx, orderID)
			if getErr != nil {
				return nil, getErr
			}
			if mutErr := mutate(o, w.clock.Now()); mutErr != nil {
				return nil, mutErr
			}
			updated = o
			return o, nil
		})
		if errors.Is(err, ports.ErrConcurrencyConflict) && attempt < w.conflictRetries {
			w.logger.DebugContext(ctx, "order write conflict, retrying with fresh state",
				"order_id", orderID, "op", name, "attempt", attempt+1)
			continue
		}
		break
	}
	if err != nil {
		if !errors.Is(err, ErrDuplicateMessage) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	w.publish(ctx, msgs, queued)
	return updated, nil
}

// write commits the loaded order and its messages. queued reports that older
// messages of the order were still unpublished at commit time.
func (w *OrderWriter) write(
	ctx context.Context,
	ref *MessageRef,
	load func(uow OrderUoW) (*order.Order, error),
) (msgs []ports.Message, queued bool, err error) {
	uow := w.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, false, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if ref != nil {
		fresh, markErr := uow.InboxRepository().MarkProcessed(ctx, ref.Consumer, ref.MessageID, w.clock.Now())
		if markErr != nil {
			return nil, false, markErr
		}
		if !fresh {
			return nil, false, ErrDuplicateMessage
		}
	}

	o, err := load(uow)
	if err != nil {
		return nil, false, err
	}

	events := o.Changes()
	if len(events) == 0 {
		return nil, false, uow.Commit(ctx)
	}
	if msgs, err = orderMessages(o, events); err != nil {
		return nil, false, err
	}

	if err = uow.OrderRepository().Save(ctx, o); err != nil {
		return nil, false, err
	}
	outbox := uow.OutboxRepository()
	if queued, err = outbox.HasPending(ctx, o.ID().String()); err != nil {
		return nil, false, err
	}
	if err = outbox.Add(ctx, msgs...); err != nil {
		return nil, false, err
	}
	if err = uow.Commit(ctx); err != nil {
		return nil, false, err
	}

	for _, e := range events {
		metrics.EventApplied(string(e.Type()))
		w.logger.InfoContext(ctx, "order event recorded",
			"order_id", e.OrderID(), "event", e.Type(), "seq", e.SequenceNo(), "status", o.StatusAfter(e))
	}
	return msgs, queued, nil
}

func (w *OrderWriter) publish(ctx context.Context, msgs []ports.Message, queued bool) {
	if len(msgs) == 0 {
		return
	}
	if queued {
		w.logger.DebugContext(ctx, "older messages still queued, left to outbox relay",
			"key", msgs[0].Key, "messages", len(msgs))
		return
	}
	if err := w.publisher.Publish(ctx, msgs...); err != nil {
		metrics.OutboxPublishFailed()
		w.logger.WarnContext(ctx, "publish failed, left to outbox relay", "messages", len(msgs), "error", err)
		return
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := w.markPublished(ctx, ids); err != nil {
		w.logger.WarnContext(ctx, "outbox not marked as published", "messages", len(ids), "error", err)
	}
}

func (w *OrderWriter) markPublished(ctx context.Context, ids []string) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OutboxRepository().MarkPublished(ctx, ids, w.clock.Now()); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return uow.Commit(ctx)
}
