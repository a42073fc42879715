package orderrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/services"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// stalledStatuses are the states in which the saga itself owes the next step.
var stalledStatuses = []string{
	order.PaymentPending.String(),
	order.RestaurantRejected.String(),
	order.Refunding.String(),
	order.ReadyForPickup.String(),
	order.Reassigning.String(),
	order.AssignmentTimedOut.String(),
}

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a repository over db, which may be a
// transaction.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save appends the uncommitted events and moves the snapshot to the new
// version. A new order inserts its snapshot; an existing one updates it only
// if the stored version is still the one the aggregate was read at.
func (r *GormOrderRepository) Save(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	changes := aggregate.Changes()
	if len(changes) == 0 {
		return nil
	}

	snapshot, err := snapshotFromDomain(aggregate)
	if err != nil {
		return err
	}
	events := make([]OrderEventDTO, len(changes))
	for i, e := range changes {
		if events[i], err = eventFromDomain(e); err != nil {
			return err
		}
	}

	expected := aggregate.PersistedVersion()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expected == 0 {
			if err := tx.Create(&snapshot).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&OrderDTO{}).
				Where("id = ? AND version = ?", snapshot.ID, expected).
				Select("*").
				Updates(&snapshot)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: order %s moved past version %d",
					ports.ErrConcurrencyConflict, aggregate.ID(), expected)
			}
		}
		return tx.Create(&events).Error
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: order %s at version %d: %w", ports.ErrConcurrencyConflict, aggregate.ID(), expected, err)
	}
	if err != nil {
		return err
	}

	aggregate.ClearChanges()
	return nil
}

func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	events, err := r.Events(ctx, id)
	if err != nil {
		return nil, err
	}
	return order.RestoreOrder(events)
}

func (r *GormOrderRepository) Events(ctx context.Context, id kernel.UUID) ([]*order.Event, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dtos []OrderEventDTO
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id.Bytes()).
		Order("sequence_no").
		Find(&dtos).Error; err != nil {
		return nil, err
	}
	if len(dtos) == 0 {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}

	events := make([]*order.Event, len(dtos))
	for i, dto := range dtos {
		e, err := eventToDomain(dto)
		if err != nil {
			return nil, err
		}
		events[i] = e
	}
	return events, nil
}

// List selects matching snapshots, newest first, and folds their logs.
func (r *GormOrderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*order.Order, error) {
	query := sq.Select("id").From("orders")
	if filter.CustomerID != nil {
		query = query.Where(sq.Eq{"customer_id": filter.CustomerID.String()})
	}
	if filter.RestaurantID != nil {
		query = query.Where(sq.Eq{"restaurant_id": filter.RestaurantID.String()})
	}
	if filter.Status != nil {
		query = query.Where(sq.Eq{"status": filter.Status.String()})
	}
	query = query.OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	ids, err := r.selectIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.restore(ctx, ids)
}

// FindStalled narrows candidates in SQL and confirms each of them against
// services.PendingOperation, paging until limit IDs are found.
func (r *GormOrderRepository) FindStalled(
	ctx context.Context,
	now time.Time,
	grace time.Duration,
	limit int,
) ([]kernel.UUID, error) {
	if limit <= 0 {
		return nil, errs.NewValueIsOutOfRangeError("limit", limit, 1, "inf")
	}

	base := sq.Select("id").From("orders").
		Where(sq.Or{
			sq.NotEq{"retry_operation": ""},
			sq.Eq{"status": stalledStatuses},
			sq.And{
				sq.Eq{"status": order.Cancelled.String()},
				sq.Eq{"payment_status": []string{
					order.PaymentStatusCompleted.String(),
					order.PaymentStatusRefundPending.String(),
				}},
			},
		}).
		Where(sq.Or{
			sq.LtOrEq{"next_retry_at": now},
			sq.LtOrEq{"updated_at": now.Add(-grace)},
		}).
		OrderBy("updated_at ASC", "id")

	stalled := make([]kernel.UUID, 0, limit)
	for offset := 0; len(stalled) < limit; offset += limit {
		ids, err := r.selectIDs(ctx, base.Limit(uint64(limit)).Offset(uint64(offset)))
		if err != nil {
			return nil, err
		}
		orders, err := r.restore(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			if services.PendingOperation(o, now, grace) == order.RetryNone {
				continue
			}
			stalled = append(stalled, o.ID())
			if len(stalled) == limit {
				break
			}
		}
		if len(ids) < limit {
			break
		}
	}
	return stalled, nil
}

// selectIDs runs a squirrel query; GORM rebinds its ? placeholders for Postgres.
func (r *GormOrderRepository) selectIDs(ctx context.Context, query sq.SelectBuilder) ([]uuid.UUID, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}
	var ids []uuid.UUID
	if err = r.db.WithContext(ctx).Raw(sql, args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// restore folds the logs of ids with one query, keeping the order of ids.
func (r *GormOrderRepository) restore(ctx context.Context, ids []uuid.UUID) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(ids))
	if len(ids) == 0 {
		return orders, nil
	}

	var dtos []OrderEventDTO
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", ids).
		Order("order_id, sequence_no").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	logs := make(map[uuid.UUID][]*order.Event, len(ids))
	for _, dto := range dtos {
		e, err := eventToDomain(dto)
		if err != nil {
			return nil, err
		}
		logs[dto.OrderID] = append(logs[dto.OrderID], e)
	}
	for _, id := range ids {
		o, err := order.RestoreOrder(logs[id])
		if err != nil {
			return nil, fmt.Errorf("failed to restore order %s: %w", id, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
