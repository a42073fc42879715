package ports

import (
	"context"
)

// UnitOfWorkFactory hands out a fresh UnitOfWork per command so concurrent
// commands never share a transaction.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork is the transaction boundary of one command. Order events, the
// outbox and inbox rows and the tracker's tables written between Begin and
// Commit become visible together.
//
// Repositories taken from a unit that was never begun read outside of any
// transaction; the query handlers rely on that.
type UnitOfWork interface {
	Begin(ctx context.Context) error

	// Commit fails when no transaction is active.
	Commit(ctx context.Context) error

	// Rollback after Commit returns an error and changes nothing, so callers
	// defer it and ignore the result.
	Rollback(ctx context.Context) error

	OrderRepository() OrderRepository
	OutboxRepository() OutboxRepository
	InboxRepository() InboxRepository
	TrackingRepository() TrackingRepository
}
