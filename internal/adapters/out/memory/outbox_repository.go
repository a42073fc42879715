package memory

import (
	"context"
	"slices"
	"time"

	"ordersaga/internal/core/ports"
)

// OutboxRepository keeps unpublished messages in insertion order. Published
// messages are dropped.
type OutboxRepository struct {
	uow *UnitOfWork
}

func (r *OutboxRepository) Add(_ context.Context, msgs ...ports.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.uow.write(func(s *Store) (func(), error) {
		prev := s.outbox
		added := make([]string, 0, len(msgs))
		for _, m := range msgs {
			if _, ok := s.outboxByID[m.ID]; ok {
				continue
			}
			row := &ports.OutboxEntry{Message: m, NextAttemptAt: m.OccurredAt}
			s.outbox = append(slices.Clip(s.outbox), row)
			s.outboxByID[m.ID] = row
			added = append(added, m.ID)
		}
		return func() {
			s.outbox = prev
			for _, id := range added {
				delete(s.outboxByID, id)
			}
		}, nil
	})
}

func (r *OutboxRepository) HasPending(_ context.Context, key string) (bool, error) {
	var pending bool
	r.uow.read(func(s *Store) {
		pending = slices.ContainsFunc(s.outbox, func(row *ports.OutboxEntry) bool { return row.Key == key })
	})
	return pending, nil
}

func (r *OutboxRepository) FetchDue(_ context.Context, now time.Time, limit int) ([]ports.OutboxEntry, error) {
	var due []ports.OutboxEntry
	r.uow.read(func(s *Store) {
		held := make(map[string]struct{})
		for _, row := range s.outbox {
			if _, ok := held[row.Key]; ok {
				continue
			}
			if now.Before(row.NextAttemptAt) {
				held[row.Key] = struct{}{}
				continue
			}
			due = append(due, *row)
			if limit > 0 && len(due) == limit {
				break
			}
		}
	})
	return due, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, ids []string, _ time.Time) error {
	return r.uow.write(func(s *Store) (func(), error) {
		prev := s.outbox
		removed := make(map[string]*ports.OutboxEntry, len(ids))
		for _, id := range ids {
			if row, ok := s.outboxByID[id]; ok {
				removed[id] = row
				delete(s.outboxByID, id)
			}
		}
		if len(removed) == 0 {
			return nil, nil
		}
		s.outbox = slices.DeleteFunc(slices.Clone(s.outbox), func(row *ports.OutboxEntry) bool {
			_, ok := removed[row.ID]
			return ok
		})
		return func() {
			s.outbox = prev
			for id, row := range removed {
				s.outboxByID[id] = row
			}
		}, nil
	})
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	return r.uow.write(func(s *Store) (func(), error) {
		row, ok := s.outboxByID[id]
		if !ok {
			return nil, nil
		}
		prev := *row
		row.Attempts++
		row.NextAttemptAt = nextAttemptAt
		row.LastError = lastError
		return func() { *row = prev }, nil
	})
}

// PendingOutbox returns the unpublished messages in insertion order.
func (s *Store) PendingOutbox() []ports.OutboxEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]ports.OutboxEntry, 0, len(s.outbox))
	for _, row := range s.outbox {
		pending = append(pending, *row)
	}
	return pending
}
