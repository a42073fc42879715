package memory

import (
	"context"
	"time"
)

type InboxRepository struct {
	uow *UnitOfWork
}

func (r *InboxRepository) MarkProcessed(_ context.Context, consumer, messageID string, at time.Time) (bool, error) {
	key := inboxKey{consumer: consumer, messageID: messageID}
	fresh := false
	err := r.uow.write(func(s *Store) (func(), error) {
		if _, ok := s.inbox[key]; ok {
			return nil, nil
		}
		s.inbox[key] = at
		fresh = true
		return func() { delete(s.inbox, key) }, nil
	})
	return fresh, err
}
