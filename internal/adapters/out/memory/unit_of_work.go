// Package memory keeps the saga's state in process memory. It backs the
// "memory" storage backend and the saga scenario tests.
//
// A unit of work holds the store's write lock from Begin to Commit or
// Rollback, so transactions are serialized. Writes made inside a transaction
// register an undo step; Rollback replays them in reverse. Repositories taken
// from a unit that was not begun read under the read lock and write in their
// own short critical section.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/core/ports"
)

// ErrNoTransaction is returned by Commit and Rollback outside of a transaction.
var ErrNoTransaction = errors.New("no active transaction")

type inboxKey struct {
	consumer  string
	messageID string
}

// Store is the shared state behind every unit of work created by a factory.
type Store struct {
	mu sync.RWMutex

	events     map[kernel.UUID][]*order.Event
	outbox     []*ports.OutboxEntry
	outboxByID map[string]*ports.OutboxEntry
	inbox      map[inboxKey]time.Time
	deliveries map[kernel.UUID]tracking.Delivery
	trails     map[kernel.UUID][]tracking.Sample
}

func NewStore() *Store {
	return &Store{
		events:     make(map[kernel.UUID][]*order.Event),
		outboxByID: make(map[string]*ports.OutboxEntry),
		inbox:      make(map[inboxKey]time.Time),
		deliveries: make(map[kernel.UUID]tracking.Delivery),
		trails:     make(map[kernel.UUID][]tracking.Sample),
	}
}

// UnitOfWorkFactory creates units of work over one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork implements ports.UnitOfWork over a Store.
type UnitOfWork struct {
	store *Store
	inTx  bool
	undo  []func()
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.mu.Lock()
	u.inTx = true
	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.inTx {
		return ErrNoTransaction
	}
	u.undo = nil
	u.inTx = false
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.inTx {
		return ErrNoTransaction
	}
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.inTx = false
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) OrderRepository() ports.OrderRepository {
	return &OrderRepository{uow: u}
}

func (u *UnitOfWork) OutboxRepository() ports.OutboxRepository {
	return &OutboxRepository{uow: u}
}

func (u *UnitOfWork) InboxRepository() ports.InboxRepository {
	return &InboxRepository{uow: u}
}

func (u *UnitOfWork) TrackingRepository() ports.TrackingRepository {
	return &TrackingRepository{uow: u}
}

func (u *UnitOfWork) read(fn func(s *Store)) {
	if u.inTx {
		fn(u.store)
		return
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	fn(u.store)
}

// write runs fn under the write lock. The returned undo step is kept until
// the transaction ends; outside of a transaction the write is final.
func (u *UnitOfWork) write(fn func(s *Store) (func(), error)) error {
	if u.inTx {
		undo, err := fn(u.store)
		if undo != nil {
			u.undo = append(u.undo, undo)
		}
		return err
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	_, err := fn(u.store)
	return err
}
