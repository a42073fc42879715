// Package rabbitmq is a ports.EventBus on a RabbitMQ topic exchange.
//
// Messages are published persistent with publisher confirms, routed by
// topic. Every consumer group owns a durable quorum queue bound to its
// topics and consumed with manual acknowledgements. A handler error requeues
// the delivery; once the queue's delivery limit is reached the broker moves
// it to the dead letter queue.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ordersaga/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

const headerKey = "x-message-key"

var (
	ErrBusClosed       = errors.New("event bus is closed")
	ErrPublishNacked   = errors.New("broker did not confirm the message")
	ErrGroupSubscribed = errors.New("consumer group is already subscribed")
)

type Config struct {
	URL      string
	Exchange string
	// QueuePrefix is prepended to the consumer group to name its queue.
	QueuePrefix string
	// Prefetch bounds unacknowledged deliveries per consumer group.
	Prefetch int
	// DeliveryLimit is the number of redeliveries before a message is dead lettered.
	DeliveryLimit int
}

func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		Exchange:      "ordersaga.events",
		QueuePrefix:   "ordersaga.",
		Prefetch:      1,
		DeliveryLimit: 5,
	}
}

func (c Config) deadLetterExchange() string { return c.Exchange + ".dlx" }
func (c Config) deadLetterQueue() string    { return c.QueuePrefix + "dead-letter" }

type Bus struct {
	cfg    Config
	logger *slog.Logger
	conn   *amqp.Connection

	pubMu sync.Mutex
	pubCh *amqp.Channel

	mu        sync.Mutex
	consumers map[string]*amqp.Channel
	closed    bool
	workers   errgroup.Group
}

var _ ports.EventBus = (*Bus)(nil)

// Dial connects to the broker and declares the exchange and the dead letter
// topology.
func Dial(cfg Config, logger *slog.Logger) (*Bus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: rabbitmq dial: %w", ports.ErrDependencyUnavailable, err)
	}

	b := &Bus{
		cfg:       cfg,
		logger:    logger.With("component", "rabbitmq_bus"),
		conn:      conn,
		consumers: make(map[string]*amqp.Channel),
	}
	if err = b.setup(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bus) setup() error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	if err = ch.Confirm(false); err != nil {
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	if err = ch.ExchangeDeclare(
		b.cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.cfg.Exchange, err)
	}

	if err = ch.ExchangeDeclare(b.cfg.deadLetterExchange(), amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.cfg.deadLetterExchange(), err)
	}
	if _, err = ch.QueueDeclare(b.cfg.deadLetterQueue(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", b.cfg.deadLetterQueue(), err)
	}
	if err = ch.QueueBind(b.cfg.deadLetterQueue(), "", b.cfg.deadLetterExchange(), false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", b.cfg.deadLetterQueue(), err)
	}

	b.pubCh = ch
	return nil
}

// Publish sends msgs in order and waits for the broker to confirm each one.
func (b *Bus) Publish(ctx context.Context, msgs ...ports.Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	for _, msg := range msgs {
		confirm, err := b.pubCh.PublishWithDeferredConfirmWithContext(
			ctx,
			b.cfg.Exchange,
			msg.Topic,
			false, // mandatory
			false, // immediate
			toPublishing(msg),
		)
		if err != nil {
			return fmt.Errorf("%w: publish %s: %w", ports.ErrDependencyUnavailable, msg.ID, err)
		}
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("%w: confirm %s: %w", ports.ErrDependencyUnavailable, msg.ID, err)
		}
		if !acked {
			return fmt.Errorf("%w: %s", ErrPublishNacked, msg.ID)
		}
	}
	return nil
}

// Subscribe declares the group's queue, binds it to topics and consumes it
// until ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, group string, topics []string, handler ports.MessageHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	if len(topics) == 0 {
		return errors.New("at least one topic is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.consumers[group]; ok {
		return fmt.Errorf("%w: %s", ErrGroupSubscribed, group)
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel for %s: %w", group, err)
	}
	deliveries, err := b.declareAndConsume(ch, group, topics)
	if err != nil {
		_ = ch.Close()
		return err
	}
	b.consumers[group] = ch

	logger := b.logger.With("group", group)
	b.workers.Go(func() error {
		b.consume(ctx, ch, group, deliveries, handler, logger)
		return nil
	})
	return nil
}

func (b *Bus) declareAndConsume(ch *amqp.Channel, group string, topics []string) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(b.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos for %s: %w", group, err)
	}

	queue := b.cfg.QueuePrefix + group
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-queue-type":           "quorum",
			"x-delivery-limit":       b.cfg.DeliveryLimit,
			"x-dead-letter-exchange": b.cfg.deadLetterExchange(),
		},
	); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	for _, topic := range topics {
		if err := ch.QueueBind(queue, topic, b.cfg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s to %s: %w", queue, topic, err)
		}
	}

	deliveries, err := ch.Consume(
		queue,
		group, // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}

func (b *Bus) consume(
	ctx context.Context,
	ch *amqp.Channel,
	tag string,
	deliveries <-chan amqp.Delivery,
	handler ports.MessageHandler,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(tag, false); err != nil && !errors.Is(err, amqp.ErrClosed) {
				logger.WarnContext(ctx, "cancel consumer", "error", err)
			}
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			b.handle(ctx, d, handler, logger)
		}
	}
}

func (b *Bus) handle(ctx context.Context, d amqp.Delivery, handler ports.MessageHandler, logger *slog.Logger) {
	msg := fromDelivery(d)
	if err := handler(ctx, msg); err != nil {
		logger.WarnContext(ctx, "handler failed, message requeued",
			"topic", msg.Topic, "message_id", msg.ID, "redelivered", d.Redelivered, "error", err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.ErrorContext(ctx, "nack failed", "message_id", msg.ID, "error", nackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logger.ErrorContext(ctx, "ack failed", "message_id", msg.ID, "error", err)
	}
}

// Close stops the consumers and closes the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.mu.Unlock()

	var errList []error
	for _, ch := range consumers {
		errList = append(errList, ch.Close())
	}
	_ = b.workers.Wait()

	b.pubMu.Lock()
	errList = append(errList, b.pubCh.Close())
	b.pubMu.Unlock()

	errList = append(errList, b.conn.Close())
	return errors.Join(errList...)
}

func toPublishing(msg ports.Message) amqp.Publishing {
	occurredAt := msg.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return amqp.Publishing{
		MessageId:    msg.ID,
		Type:         msg.Topic,
		Timestamp:    occurredAt,
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Headers:      amqp.Table{headerKey: msg.Key},
		Body:         msg.Payload,
	}
}

func fromDelivery(d amqp.Delivery) ports.Message {
	key, _ := d.Headers[headerKey].(string)
	return ports.Message{
		ID:         d.MessageId,
		Topic:      d.RoutingKey,
		Key:        key,
		Payload:    d.Body,
		OccurredAt: d.Timestamp.UTC(),
	}
}
