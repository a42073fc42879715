// Package trackingrepo stores the Location Tracker's delivery projection and
// the location trail.
package trackingrepo

import (
	"context"
	"errors"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryDTO is the tracker's row per order. The position columns are null
// until the first accepted sample.
type DeliveryDTO struct {
	OrderID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DriverID           *uuid.UUID `gorm:"type:uuid"`
	Status             string     `gorm:"not null"`
	Version            int64      `gorm:"not null"`
	PositionLat        *float64
	PositionLng        *float64
	PositionRecordedAt *time.Time
}

func (DeliveryDTO) TableName() string {
	return "deliveries"
}

// SampleDTO is one point of the trail.
type SampleDTO struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null"`
	DriverID   uuid.UUID `gorm:"type:uuid;not null"`
	Lat        float64   `gorm:"not null"`
	Lng        float64   `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null"`
}

func (SampleDTO) TableName() string {
	return "location_samples"
}

func deliveryFromDomain(d *tracking.Delivery) DeliveryDTO {
	dto := DeliveryDTO{
		OrderID: d.OrderID.Bytes(),
		Status:  d.Status.String(),
		Version: d.Version,
	}
	if d.DriverID != nil {
		raw := d.DriverID.Bytes()
		dto.DriverID = &raw
	}
	if p := d.Position; p != nil {
		lat, lng, at := p.Location.Lat(), p.Location.Lng(), p.RecordedAt
		dto.PositionLat, dto.PositionLng, dto.PositionRecordedAt = &lat, &lng, &at
	}
	return dto
}

func deliveryToDomain(dto DeliveryDTO) (*tracking.Delivery, error) {
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}
	d := tracking.NewDelivery(orderID)
	d.Version = dto.Version
	if dto.Status != order.Unknown.String() {
		if d.Status, err = order.ParseStatus(dto.Status); err != nil {
			return nil, err
		}
	}
	if dto.DriverID != nil {
		driverID, err := kernel.UUIDFromBytes(dto.DriverID[:])
		if err != nil {
			return nil, err
		}
		d.DriverID = &driverID
	}
	if dto.PositionLat != nil && dto.PositionLng != nil && dto.PositionRecordedAt != nil {
		location, err := kernel.NewLocation(*dto.PositionLat, *dto.PositionLng)
		if err != nil {
			return nil, err
		}
		d.Position = &tracking.Position{OrderID: orderID, Location: location, RecordedAt: dto.PositionRecordedAt.UTC()}
	}
	return d, nil
}

func sampleToDomain(dto SampleDTO) (tracking.Sample, error) {
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return tracking.Sample{}, err
	}
	driverID, err := kernel.UUIDFromBytes(dto.DriverID[:])
	if err != nil {
		return tracking.Sample{}, err
	}
	location, err := kernel.NewLocation(dto.Lat, dto.Lng)
	if err != nil {
		return tracking.Sample{}, err
	}
	return tracking.NewSample(orderID, driverID, location, dto.RecordedAt)
}

// GormTrackingRepository implements ports.TrackingRepository using GORM.
type GormTrackingRepository struct {
	db *gorm.DB
}

func NewGormTrackingRepository(db *gorm.DB) *GormTrackingRepository {
	return &GormTrackingRepository{db: db}
}

// GetDelivery locks the row with FOR UPDATE so concurrent samples of one
// order are applied one after another.
func (r *GormTrackingRepository) GetDelivery(ctx context.Context, orderID kernel.UUID) (*tracking.Delivery, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&dto, "order_id = ?", orderID.Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewObjectNotFoundError("delivery", orderID.String())
	}
	if err != nil {
		return nil, err
	}
	return deliveryToDomain(dto)
}

func (r *GormTrackingRepository) SaveDelivery(ctx context.Context, delivery *tracking.Delivery) error {
	if err := delivery.OrderID.Validate(); err != nil {
		return err
	}
	dto := deliveryFromDomain(delivery)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(&dto).Error
}

func (r *GormTrackingRepository) AppendSample(ctx context.Context, sample tracking.Sample) error {
	dto := SampleDTO{
		OrderID:    sample.OrderID.Bytes(),
		DriverID:   sample.DriverID.Bytes(),
		Lat:        sample.Location.Lat(),
		Lng:        sample.Location.Lng(),
		RecordedAt: sample.RecordedAt,
	}
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Trail orders samples recorded at the same instant by arrival.
func (r *GormTrackingRepository) Trail(ctx context.Context, orderID kernel.UUID) ([]tracking.Sample, error) {
	var dtos []SampleDTO
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID.Bytes()).
		Order("recorded_at, id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	samples := make([]tracking.Sample, len(dtos))
	for i, dto := range dtos {
		s, err := sampleToDomain(dto)
		if err != nil {
			return nil, err
		}
		samples[i] = s
	}
	return samples, nil
}
