// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS architecture.
// All commands follow a consistent pattern: validation, transaction management, and persistence.
package commands

import (
	"context"

	"ordersaga/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
// These abstractions ensure data consistency across aggregate boundaries.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	OutboxRepoFactory interface {
		OutboxRepository() ports.OutboxRepository
	}

	InboxRepoFactory interface {
		InboxRepository() ports.InboxRepository
	}

	TrackingRepoFactory interface {
		TrackingRepository() ports.TrackingRepository
	}

	// OrderUoW is used by every command that writes the order aggregate.
	// Events, their outbox messages and the inbox mark of the consumed
	// message are committed together.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   o, err := uow.OrderRepository().Get(ctx, id)
	//   // ... mutate o
	//   err = uow.OrderRepository().Save(ctx, o)
	//   err = uow.OutboxRepository().Add(ctx, msgs...)
	//
	//   err = uow.Commit(ctx)
	OrderUoW interface {
		TxManager
		OrderRepoFactory
		OutboxRepoFactory
		InboxRepoFactory
	}

	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// TrackingUoW manages transactions of the Location Tracker.
	TrackingUoW interface {
		TxManager
		TrackingRepoFactory
		OutboxRepoFactory
		InboxRepoFactory
	}

	TrackingUoWFactory interface {
		Create() TrackingUoW
	}

	// OutboxUoW manages transactions of the outbox relay.
	OutboxUoW interface {
		TxManager
		OutboxRepoFactory
	}

	OutboxUoWFactory interface {
		Create() OutboxUoW
	}
)

// Adapters turning plain functions into the factories above, in the manner
// of http.HandlerFunc.
type (
	OrderUoWFactoryFunc    func() OrderUoW
	TrackingUoWFactoryFunc func() TrackingUoW
	OutboxUoWFactoryFunc   func() OutboxUoW
)

func (f OrderUoWFactoryFunc) Create() OrderUoW       { return f() }
func (f TrackingUoWFactoryFunc) Create() TrackingUoW { return f() }
func (f OutboxUoWFactoryFunc) Create() OutboxUoW     { return f() }

// FromUnitOfWork adapts a full unit of work factory to every narrow factory.
func FromUnitOfWork(factory ports.UnitOfWorkFactory) (OrderUoWFactoryFunc, TrackingUoWFactoryFunc, OutboxUoWFactoryFunc) {
	return func() OrderUoW { return factory.Create() },
		func() TrackingUoW { return factory.Create() },
		func() OutboxUoW { return factory.Create() }
}
