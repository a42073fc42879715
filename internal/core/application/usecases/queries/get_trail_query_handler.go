package queries

import (
	"context"

	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"
)

// GetTrailQueryHandler serves the Location Tracker's read side. Orders the
// tracker never saw are reported as errs.ObjectNotFoundError.
type GetTrailQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
}

func NewGetTrailQueryHandler(uowFactory ports.UnitOfWorkFactory) GetTrailQueryHandler {
	return GetTrailQueryHandler{uowFactory: uowFactory}
}

func (h GetTrailQueryHandler) Handle(ctx context.Context, query GetTrailQuery) (TrailView, error) {
	if err := query.Validate(); err != nil {
		return TrailView{}, err
	}

	repo := h.uowFactory.Create().TrackingRepository()
	if _, err := repo.GetDelivery(ctx, query.OrderID()); err != nil {
		return TrailView{}, err
	}
	samples, err := repo.Trail(ctx, query.OrderID())
	if err != nil {
		return TrailView{}, err
	}
	if samples == nil {
		samples = []tracking.Sample{}
	}

	return TrailView{
		OrderID:        query.OrderID(),
		Samples:        samples,
		DistanceMeters: tracking.NewTrail(samples).Distance(),
	}, nil
}

type GetCurrentLocationQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
}

func NewGetCurrentLocationQueryHandler(uowFactory ports.UnitOfWorkFactory) GetCurrentLocationQueryHandler {
	return GetCurrentLocationQueryHandler{uowFactory: uowFactory}
}

// Handle returns errs.ObjectNotFoundError until the first sample of the
// delivery was accepted.
func (h GetCurrentLocationQueryHandler) Handle(
	ctx context.Context,
	query GetCurrentLocationQuery,
) (tracking.Position, error) {
	if err := query.Validate(); err != nil {
		return tracking.Position{}, err
	}

	delivery, err := h.uowFactory.Create().TrackingRepository().GetDelivery(ctx, query.OrderID())
	if err != nil {
		return tracking.Position{}, err
	}
	if delivery.Position == nil {
		return tracking.Position{}, errs.NewObjectNotFoundError("position", query.OrderID().String())
	}
	return *delivery.Position, nil
}
