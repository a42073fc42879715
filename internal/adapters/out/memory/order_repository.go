package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
)

// OrderRepository keeps each order as its event log and folds it on read.
type OrderRepository struct {
	uow *UnitOfWork
}

func (r *OrderRepository) Save(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	changes := aggregate.Changes()
	if len(changes) == 0 {
		return nil
	}

	id := aggregate.ID()
	err := r.uow.write(func(s *Store) (func(), error) {
		log := s.events[id]
		if stored := int64(len(log)); stored != aggregate.PersistedVersion() {
			return nil, fmt.Errorf("%w: order %s is at version %d, expected %d",
				ports.ErrConcurrencyConflict, id, stored, aggregate.PersistedVersion())
		}
		prevLen := len(log)
		s.events[id] = append(log, changes...)
		return func() {
			if prevLen == 0 {
				delete(s.events, id)
				return
			}
			s.events[id] = s.events[id][:prevLen]
		}, nil
	})
	if err != nil {
		return err
	}
	aggregate.ClearChanges()
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	var log []*order.Event
	r.uow.read(func(s *Store) {
		log = slices.Clone(s.events[id])
	})
	if len(log) == 0 {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return order.RestoreOrder(log)
}

func (r *OrderRepository) Events(_ context.Context, id kernel.UUID) ([]*order.Event, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	var log []*order.Event
	r.uow.read(func(s *Store) {
		log = slices.Clone(s.events[id])
	})
	if len(log) == 0 {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return log, nil
}

func (r *OrderRepository) List(_ context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	orders, err := r.all()
	if err != nil {
		return nil, err
	}

	result := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if filter.CustomerID != nil && !o.CustomerID().IsEqual(*filter.CustomerID) {
			continue
		}
		if filter.RestaurantID != nil && !o.RestaurantID().IsEqual(*filter.RestaurantID) {
			continue
		}
		if filter.Status != nil && o.Status() != *filter.Status {
			continue
		}
		result = append(result, o)
	}
	slices.SortFunc(result, func(a, b *order.Order) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})

	if filter.Offset >= len(result) {
		return []*order.Order{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// FindStalled returns orders waiting on a transient step whose retry is due
// or that did not change for grace, least recently updated first.
func (r *OrderRepository) FindStalled(
	_ context.Context,
	now time.Time,
	grace time.Duration,
	limit int,
) ([]kernel.UUID, error) {
	orders, err := r.all()
	if err != nil {
		return nil, err
	}

	stalled := make([]*order.Order, 0)
	for _, o := range orders {
		if services.PendingOperation(o, now, grace) == order.RetryNone {
			continue
		}
		retry := o.Retry()
		due := !retry.IsZero() && !now.Before(retry.NextAttemptAt)
		idle := !now.Before(o.UpdatedAt().Add(grace))
		if due || idle {
			stalled = append(stalled, o)
		}
	}
	slices.SortFunc(stalled, func(a, b *order.Order) int {
		return a.UpdatedAt().Compare(b.UpdatedAt())
	})

	if limit > 0 && limit < len(stalled) {
		stalled = stalled[:limit]
	}
	ids := make([]kernel.UUID, len(stalled))
	for i, o := range stalled {
		ids[i] = o.ID()
	}
	return ids, nil
}

func (r *OrderRepository) all() ([]*order.Order, error) {
	var logs [][]*order.Event
	r.uow.read(func(s *Store) {
		logs = make([][]*order.Event, 0, len(s.events))
		for _, log := range s.events {
			logs = append(logs, slices.Clone(log))
		}
	})

	orders := make([]*order.Order, 0, len(logs))
	for _, log := range logs {
		o, err := order.RestoreOrder(log)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
