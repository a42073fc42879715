package ports

import (
	"context"
	"time"
)

// Message is the unit carried by the event bus. ID is stable across
// redeliveries and is what consumers deduplicate on. Messages with the same
// Key are delivered to a consumer group in publish order.
type Message struct {
	ID         string
	Topic      string
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

// MessageHandler processes one message. A returned error asks the bus to
// redeliver it.
type MessageHandler func(ctx context.Context, msg Message) error

type EventPublisher interface {
	// Publish returns once the broker acknowledged every message.
	Publish(ctx context.Context, msgs ...Message) error
}

// EventBus is a publish/subscribe primitive with at-least-once delivery to
// each consumer group.
type EventBus interface {
	EventPublisher

	// Subscribe delivers messages of the given topics to handler until ctx is
	// done. Each group receives every message once; handlers of one group
	// share the load.
	Subscribe(ctx context.Context, group string, topics []string, handler MessageHandler) error

	Close() error
}
