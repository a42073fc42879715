package memory

import (
	"context"
	"slices"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/pkg/errs"
)

type TrackingRepository struct {
	uow *UnitOfWork
}

func (r *TrackingRepository) GetDelivery(_ context.Context, orderID kernel.UUID) (*tracking.Delivery, error) {
	var (
		d  tracking.Delivery
		ok bool
	)
	r.uow.read(func(s *Store) {
		d, ok = s.deliveries[orderID]
	})
	if !ok {
		return nil, errs.NewObjectNotFoundError("delivery", orderID.String())
	}
	return cloneDelivery(d), nil
}

func (r *TrackingRepository) SaveDelivery(_ context.Context, delivery *tracking.Delivery) error {
	if err := delivery.OrderID.Validate(); err != nil {
		return err
	}
	saved := *cloneDelivery(*delivery)
	return r.uow.write(func(s *Store) (func(), error) {
		prev, existed := s.deliveries[saved.OrderID]
		s.deliveries[saved.OrderID] = saved
		return func() {
			if existed {
				s.deliveries[saved.OrderID] = prev
				return
			}
			delete(s.deliveries, saved.OrderID)
		}, nil
	})
}

// AppendSample keeps the trail ordered by recorded time. Samples recorded at
// the same instant keep their arrival order.
func (r *TrackingRepository) AppendSample(_ context.Context, sample tracking.Sample) error {
	return r.uow.write(func(s *Store) (func(), error) {
		prev := s.trails[sample.OrderID]
		trail := slices.Clone(prev)
		i, _ := slices.BinarySearchFunc(trail, sample, func(a, b tracking.Sample) int {
			if a.RecordedAt.After(b.RecordedAt) {
				return 1
			}
			return -1
		})
		s.trails[sample.OrderID] = slices.Insert(trail, i, sample)
		return func() {
			if prev == nil {
				delete(s.trails, sample.OrderID)
				return
			}
			s.trails[sample.OrderID] = prev
		}, nil
	})
}

func (r *TrackingRepository) Trail(_ context.Context, orderID kernel.UUID) ([]tracking.Sample, error) {
	var trail []tracking.Sample
	r.uow.read(func(s *Store) {
		trail = slices.Clone(s.trails[orderID])
	})
	return trail, nil
}

func cloneDelivery(d tracking.Delivery) *tracking.Delivery {
	if d.DriverID != nil {
		driverID := *d.DriverID
		d.DriverID = &driverID
	}
	if d.Position != nil {
		position := *d.Position
		d.Position = &position
	}
	return &d
}
