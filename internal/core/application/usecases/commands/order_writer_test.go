package commands_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ordersaga/internal/core/application/usecases/commands"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/order/ordertest"
	"ordersaga/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWriter(factory commands.OrderUoWFactory, publisher ports.EventPublisher) *commands.OrderWriter {
	return commands.NewOrderWriter(factory, publisher, fixedClock{now: testNow}, discardLogger())
}

// persisted rebuilds o as a repository would return it after a save.
func persisted(t *testing.T, o *order.Order) func() *order.Order {
	t.Helper()
	events := o.Changes()
	return func() *order.Order {
		restored, err := order.RestoreOrder(events)
		require.NoError(t, err)
		return restored
	}
}

func messagesWithTopics(topics ...string) any {
	return mock.MatchedBy(func(msgs []ports.Message) bool {
		got := make([]string, len(msgs))
		for i, m := range msgs {
			got[i] = m.Topic
		}
		return assert.ObjectsAreEqual(topics, got)
	})
}

func expectMarkPublished(factory *MockOrderUoWFactory, count int) *MockOutboxRepository {
	uow := new(MockOrderUoW)
	outbox := new(MockOutboxRepository)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OutboxRepository").Return(outbox).Once(),
		outbox.On("MarkPublished", mock.Anything, mock.MatchedBy(func(ids []string) bool {
			return len(ids) == count
		}), testNow).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)
	return outbox
}

func TestOrderWriter_Create_Success(t *testing.T) {
	ctx := t.Context()
	o := ordertest.PaymentPending(t, testNow)

	repo := new(MockOrderRepository)
	outbox := new(MockOutboxRepository)
	uow := new(MockOrderUoW)
	publisher := new(MockEventPublisher)
	factory := new(MockOrderUoWFactory)

	topics := []string{
		"order.created", commands.TopicNotificationRequested,
		"order.payment_requested", commands.TopicNotificationRequested,
	}

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Save", mock.Anything, o).Return(nil).Once(),
		uow.On("OutboxRepository").Return(outbox).Once(),
		outbox.On("HasPending", mock.Anything, o.ID().String()).Return(false, nil).Once(),
		outbox.On("Add", mock.Anything, messagesWithTopics(topics...)).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
		publisher.On("Publish", mock.Anything, messagesWithTopics(topics...)).Return(nil).Once(),
	)
	published := expectMarkPublished(factory, len(topics))

	err := newWriter(factory, publisher).Create(ctx, o)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	outbox.AssertExpectations(t)
	uow.AssertExpectations(t)
	publisher.AssertExpectations(t)
	factory.AssertExpectations(t)
	published.AssertExpectations(t)
}

func TestOrderWriter_Create_SaveError(t *testing.T) {
	ctx := t.Context()
	o := ordertest.New(t, testNow)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	publisher := new(MockEventPublisher)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Save", mock.Anything, o).Return(errors.New("disk full")).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	err := newWriter(factory, publisher).Create(ctx, o)

	require.EqualError(t, err, "disk full")
	uow.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderWriter_Create_PublishFailureLeavesOutbox(t *testing.T) {
	ctx := t.Context()
	o := ordertest.New(t, testNow)

	repo := new(MockOrderRepository)
	outbox := new(MockOutboxRepository)
	uow := new(MockOrderUoW)
	publisher := new(MockEventPublisher)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Save", mock.Anything, o).Return(nil).Once(),
		uow.On("OutboxRepository").Return(outbox).Once(),
		outbox.On("HasPending", mock.Anything, o.ID().String()).Return(false, nil).Once(),
		outbox.On("Add", mock.Anything, mock.Anything).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
		publisher.On("Publish", mock.Anything, mock.Anything).Return(ports.ErrDependencyUnavailable).Once(),
	)

	err := newWriter(factory, publisher).Create(ctx, o)

	require.NoError(t, err)
	factory.AssertNumberOfCalls(t, "Create", 1)
	outbox.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderWriter_Update_RetriesOnConflict(t *testing.T) {
	ctx := t.Context()
	stored := persisted(t, ordertest.Paid(t, testNow))
	id := stored().ID()

	factory := new(MockOrderUoWFactory)
	publisher := new(MockEventPublisher)

	conflicting := new(MockOrderUoW)
	conflictingRepo := new(MockOrderRepository)
	mock.InOrder(
		factory.On("Create").Return(conflicting).Once(),
		conflicting.On("Begin", mock.Anything).Return(nil).Once(),
		conflicting.On("OrderRepository").Return(conflictingRepo).Once(),
		conflictingRepo.On("Get", mock.Anything, id).Return(stored(), nil).Once(),
		conflicting.On("OrderRepository").Return(conflictingRepo).Once(),
		conflictingRepo.On("Save", mock.Anything, mock.Anything).Return(ports.ErrConcurrencyConflict).Once(),
		conflicting.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	uow := new(MockOrderUoW)
	repo := new(MockOrderRepository)
	outbox := new(MockOutboxRepository)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, id).Return(stored(), nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once(),
		uow.On("OutboxRepository").Return(outbox).Once(),
		outbox.On("HasPending", mock.Anything, id.String()).Return(false, nil).Once(),
		outbox.On("Add", mock.Anything, messagesWithTopics("order.restaurant_confirmed", commands.TopicNotificationRequested)).
			Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	expectMarkPublished(factory, 2)

	updated, err := newWriter(factory, publisher).Update(ctx, "confirm", id, nil, func(o *order.Order, now time.Time) error {
		return o.ConfirmByRestaurant(now)
	})

	require.NoError(t, err)
	assert.Equal(t, order.RestaurantConfirmed, updated.Status())
	conflicting.AssertExpectations(t)
	conflictingRepo.AssertExpectations(t)
	uow.AssertExpectations(t)
	repo.AssertExpectations(t)
	factory.AssertNumberOfCalls(t, "Create", 3)
}

func TestOrderWriter_Update_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := t.Context()
	stored := persisted(t, ordertest.Paid(t, testNow))
	id := stored().ID()

	uow := new(MockOrderUoW)
	repo := new(MockOrderRepository)
	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("OrderRepository").Return(repo)
	uow.On("Rollback", mock.Anything).Return(nil)
	repo.On("Get", mock.Anything, id).Return(stored, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(ports.ErrConcurrencyConflict)

	_, err := newWriter(factory, new(MockEventPublisher)).Update(ctx, "confirm", id, nil,
		func(o *order.Order, now time.Time) error { return o.ConfirmByRestaurant(now) })

	require.ErrorIs(t, err, ports.ErrConcurrencyConflict)
	factory.AssertNumberOfCalls(t, "Create", 6)
	uow.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestOrderWriter_Update_NoChangesCommitsWithoutSaving(t *testing.T) {
	ctx := t.Context()
	stored := persisted(t, ordertest.Paid(t, testNow))
	id := stored().ID()

	uow := new(MockOrderUoW)
	repo := new(MockOrderRepository)
	factory := new(MockOrderUoWFactory)
	publisher := new(MockEventPublisher)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, id).Return(stored, nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	updated, err := newWriter(factory, publisher).Update(ctx, "noop", id, nil,
		func(*order.Order, time.Time) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, order.Paid, updated.Status())
	uow.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderWriter_Update_DuplicateMessage(t *testing.T) {
	ctx := t.Context()
	id := ordertest.New(t, testNow).ID()
	ref := &commands.MessageRef{Consumer: "saga", MessageID: "m-1"}

	uow := new(MockOrderUoW)
	inbox := new(MockInboxRepository)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("InboxRepository").Return(inbox).Once(),
		inbox.On("MarkProcessed", mock.Anything, "saga", "m-1", testNow).Return(false, nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	_, err := newWriter(factory, new(MockEventPublisher)).Update(ctx, "confirm", id, ref,
		func(o *order.Order, now time.Time) error { return o.ConfirmByRestaurant(now) })

	require.ErrorIs(t, err, commands.ErrDuplicateMessage)
	reason, discarded := commands.DiscardReason(err)
	assert.True(t, discarded)
	assert.Equal(t, commands.DiscardDuplicate, reason)
	uow.AssertExpectations(t)
}

func TestOrderWriter_Update_MutationErrorAbortsWrite(t *testing.T) {
	ctx := t.Context()
	stored := persisted(t, ordertest.New(t, testNow))
	id := stored().ID()

	uow := new(MockOrderUoW)
	repo := new(MockOrderRepository)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, id).Return(stored(), nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	_, err := newWriter(factory, new(MockEventPublisher)).Update(ctx, "deliver", id, nil,
		func(o *order.Order, now time.Time) error { return o.MarkReady(now) })

	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
	reason, discarded := commands.DiscardReason(err)
	assert.True(t, discarded)
	assert.Equal(t, commands.DiscardInvalidTransition, reason)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderWriter_Update_LeavesQueuedKeyToRelay(t *testing.T) {
	ctx := t.Context()
	stored := persisted(t, ordertest.Paid(t, testNow))
	id := stored().ID()

	uow := new(MockOrderUoW)
	repo := new(MockOrderRepository)
	outbox := new(MockOutboxRepository)
	publisher := new(MockEventPublisher)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, id).Return(stored(), nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once(),
		uow.On("OutboxRepository").Return(outbox).Once(),
		outbox.On("HasPending", mock.Anything, id.String()).Return(true, nil).Once(),
		outbox.On("Add", mock.Anything, mock.Anything).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	updated, err := newWriter(factory, publisher).Update(ctx, "confirm", id, nil,
		func(o *order.Order, now time.Time) error { return o.ConfirmByRestaurant(now) })

	require.NoError(t, err)
	assert.Equal(t, order.RestaurantConfirmed, updated.Status())
	uow.AssertExpectations(t)
	outbox.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	factory.AssertNumberOfCalls(t, "Create", 1)
}

func TestOrderWriter_Create_NotificationsCarryStatusPerEvent(t *testing.T) {
	ctx := t.Context()
	o := ordertest.PaymentPending(t, testNow)

	repo := new(MockOrderRepository)
	outbox := new(MockOutboxRepository)
	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("OrderRepository").Return(repo)
	uow.On("OutboxRepository").Return(outbox)
	uow.On("Commit", mock.Anything).Return(nil)
	uow.On("Rollback", mock.Anything).Return(nil)
	repo.On("Save", mock.Anything, o).Return(nil)
	outbox.On("HasPending", mock.Anything, o.ID().String()).Return(true, nil)

	var added []ports.Message
	outbox.On("Add", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		added = args.Get(1).([]ports.Message)
	}).Return(nil)

	require.NoError(t, newWriter(factory, new(MockEventPublisher)).Create(ctx, o))

	statuses := make(map[order.EventType]string)
	for _, m := range added {
		if m.Topic != commands.TopicNotificationRequested {
			continue
		}
		var n commands.NotificationRequest
		require.NoError(t, json.Unmarshal(m.Payload, &n))
		statuses[n.EventType] = n.Status
	}
	assert.Equal(t, map[order.EventType]string{
		order.EventOrderCreated:     order.Created.String(),
		order.EventPaymentRequested: order.PaymentPending.String(),
	}, statuses)
}
