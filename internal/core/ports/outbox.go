package ports

import (
	"context"
	"time"
)

// OutboxEntry is a message waiting in the transactional outbox.
type OutboxEntry struct {
	Message
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
}

// OutboxRepository stores messages in the same transaction as the state
// change that produced them.
type OutboxRepository interface {
	Add(ctx context.Context, msgs ...Message) error

	// HasPending reports whether unpublished entries with key are queued.
	HasPending(ctx context.Context, key string) (bool, error)

	// FetchDue returns unpublished entries whose next attempt is due, oldest
	// first. Entries queued behind a not yet due entry with the same key are
	// held back.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error)

	MarkPublished(ctx context.Context, ids []string, at time.Time) error

	MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error
}

// InboxRepository deduplicates consumed messages per consumer group.
type InboxRepository interface {
	// MarkProcessed records messageID for consumer and reports false when it
	// was already recorded.
	MarkProcessed(ctx context.Context, consumer, messageID string, at time.Time) (bool, error)
}
