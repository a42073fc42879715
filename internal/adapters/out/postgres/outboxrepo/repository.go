// Package outboxrepo stores the transactional outbox and the consumer inbox
// tables.
package outboxrepo

import (
	"context"
	"fmt"
	"time"

	"ordersaga/internal/core/ports"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// relayLockKey serializes relays across processes for the rest of their
// transaction so per-key publish order holds.
const relayLockKey int64 = 0x6f726473616761

// OutboxDTO is one queued message. Seq orders messages across keys.
type OutboxDTO struct {
	ID            string `gorm:"primaryKey"`
	Seq           int64  `gorm:"->;autoIncrement"`
	Topic         string `gorm:"not null"`
	MessageKey    string `gorm:"not null"`
	Payload       []byte `gorm:"not null"`
	OccurredAt    time.Time
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	PublishedAt   *time.Time
}

func (OutboxDTO) TableName() string {
	return "outbox"
}

func fromMessage(m ports.Message) OutboxDTO {
	return OutboxDTO{
		ID:            m.ID,
		Topic:         m.Topic,
		MessageKey:    m.Key,
		Payload:       m.Payload,
		OccurredAt:    m.OccurredAt,
		NextAttemptAt: m.OccurredAt,
	}
}

func (dto OutboxDTO) toEntry() ports.OutboxEntry {
	return ports.OutboxEntry{
		Message: ports.Message{
			ID:         dto.ID,
			Topic:      dto.Topic,
			Key:        dto.MessageKey,
			Payload:    dto.Payload,
			OccurredAt: dto.OccurredAt.UTC(),
		},
		Attempts:      dto.Attempts,
		NextAttemptAt: dto.NextAttemptAt.UTC(),
		LastError:     dto.LastError,
	}
}

// GormOutboxRepository implements ports.OutboxRepository using GORM.
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Add ignores messages whose ID is already queued.
func (r *GormOutboxRepository) Add(ctx context.Context, msgs ...ports.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]OutboxDTO, len(msgs))
	for i, m := range msgs {
		rows[i] = fromMessage(m)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Omit("Seq").
		Create(&rows).Error
}

func (r *GormOutboxRepository) HasPending(ctx context.Context, key string) (bool, error) {
	var pending bool
	err := r.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM outbox WHERE message_key = ? AND published_at IS NULL)", key).
		Scan(&pending).Error
	return pending, err
}

// FetchDue locks the due rows for the calling transaction. Only one relay
// drains the outbox at a time; others get an empty batch.
func (r *GormOutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]ports.OutboxEntry, error) {
	db := r.db.WithContext(ctx)

	var locked bool
	if err := db.Raw("SELECT pg_try_advisory_xact_lock(?)", relayLockKey).Scan(&locked).Error; err != nil {
		return nil, err
	}
	if !locked {
		return nil, nil
	}

	blocked, blockedArgs, err := sq.Select("1").From("outbox b").
		Where("b.message_key = o.message_key").
		Where("b.seq < o.seq").
		Where("b.published_at IS NULL").
		Where(sq.Gt{"b.next_attempt_at": now}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox query: %w", err)
	}
	query := sq.Select("o.id", "o.seq", "o.topic", "o.message_key", "o.payload", "o.occurred_at",
		"o.attempts", "o.next_attempt_at", "o.last_error").
		From("outbox o").
		Where("o.published_at IS NULL").
		Where(sq.LtOrEq{"o.next_attempt_at": now}).
		Where(sq.Expr("NOT EXISTS ("+blocked+")", blockedArgs...)).
		OrderBy("o.seq").
		Suffix("FOR UPDATE SKIP LOCKED")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox query: %w", err)
	}
	var rows []OutboxDTO
	if err = db.Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]ports.OutboxEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry()
	}
	return entries, nil
}

func (r *GormOutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&OutboxDTO{}).
		Where("id IN ? AND published_at IS NULL", ids).
		Update("published_at", at).Error
}

func (r *GormOutboxRepository) MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&OutboxDTO{}).
		Where("id = ? AND published_at IS NULL", id).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		}).Error
}

// InboxDTO records that a consumer group handled a message.
type InboxDTO struct {
	Consumer    string `gorm:"primaryKey"`
	MessageID   string `gorm:"primaryKey"`
	ProcessedAt time.Time
}

func (InboxDTO) TableName() string {
	return "inbox"
}

// GormInboxRepository implements ports.InboxRepository using GORM.
type GormInboxRepository struct {
	db *gorm.DB
}

func NewGormInboxRepository(db *gorm.DB) *GormInboxRepository {
	return &GormInboxRepository{db: db}
}

func (r *GormInboxRepository) MarkProcessed(ctx context.Context, consumer, messageID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&InboxDTO{Consumer: consumer, MessageID: messageID, ProcessedAt: at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
