// Package postgres provides the GORM-based implementation of the Unit of Work
// pattern and the PostgreSQL storage backend of the saga.
//
// A unit of work hands out repositories bound either to its open transaction
// or, before Begin, to the plain connection pool. The order writer relies on
// this to keep an order's events and its outbox rows in one transaction.
//
// Usage:
//
//	factory := NewGormUnitOfWorkFactory(db)
//	uow := factory.Create()
//
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer uow.Rollback(ctx)
//
//	if err := uow.OrderRepository().Save(ctx, o); err != nil {
//	    return err
//	}
//	if err := uow.OutboxRepository().Add(ctx, msgs...); err != nil {
//	    return err
//	}
//
//	return uow.Commit(ctx)
//
// A GormUnitOfWork is not safe for concurrent use; take one per command.
// Order writes are guarded by the event sequence, not by row locks.
package postgres

import (
	"context"

	"ordersaga/internal/adapters/out/postgres/orderrepo"
	"ordersaga/internal/adapters/out/postgres/outboxrepo"
	"ordersaga/internal/adapters/out/postgres/trackingrepo"
	"ordersaga/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory shares one pool between all units of work.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork coordinates one database transaction.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin opens the transaction. A second call while it is open is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	uow.tx = tx
	return nil
}

// Commit returns gorm.ErrInvalidTransaction when no transaction is open.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return err
}

// Rollback after Commit returns gorm.ErrInvalidTransaction and changes nothing.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

// OrderRepository and its siblings bind to the open transaction, or to the
// pool before Begin.
func (uow *GormUnitOfWork) OrderRepository() ports.OrderRepository {
	return orderrepo.NewGormOrderRepository(uow.conn())
}

func (uow *GormUnitOfWork) OutboxRepository() ports.OutboxRepository {
	return outboxrepo.NewGormOutboxRepository(uow.conn())
}

func (uow *GormUnitOfWork) InboxRepository() ports.InboxRepository {
	return outboxrepo.NewGormInboxRepository(uow.conn())
}

func (uow *GormUnitOfWork) TrackingRepository() ports.TrackingRepository {
	return trackingrepo.NewGormTrackingRepository(uow.conn())
}
