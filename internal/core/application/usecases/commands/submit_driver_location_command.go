package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/pkg/errs"
	"ordersaga/internal/pkg/guard"
	"ordersaga/internal/pkg/metrics"
)

var ErrSubmitDriverLocationCommandIsNotConstructed = errors.New(
	"SubmitDriverLocationCommand must be created via NewSubmitDriverLocationCommand constructor",
)

// SubmitDriverLocationCommand is one position sample of a driver on a
// delivery.
type SubmitDriverLocationCommand struct {
	sample tracking.Sample

	guard guard.ConstructorGuard
}

func NewSubmitDriverLocationCommand(sample tracking.Sample) (SubmitDriverLocationCommand, error) {
	if _, err := tracking.NewSample(sample.OrderID, sample.DriverID, sample.Location, sample.RecordedAt); err != nil {
		return SubmitDriverLocationCommand{}, err
	}
	return SubmitDriverLocationCommand{sample: sample, guard: guard.NewConstructorGuard()}, nil
}

func (c SubmitDriverLocationCommand) Validate() error {
	return c.guard.Validate(ErrSubmitDriverLocationCommandIsNotConstructed)
}

func (c SubmitDriverLocationCommand) Sample() tracking.Sample { return c.sample }

// SubmitDriverLocationCommandHandler is the Location Tracker's RecordSample.
//
// Samples are authorized against the tracker's own delivery projection. An
// accepted sample is appended to the trail and moves the mirrored position
// only when it is newer than the current one. Rejected samples return
// tracking.ErrStaleOrUnauthorizedSample and are counted.
type SubmitDriverLocationCommandHandler struct {
	uowFactory TrackingUoWFactory
	logger     *slog.Logger
}

func NewSubmitDriverLocationCommandHandler(uowFactory TrackingUoWFactory, logger *slog.Logger) SubmitDriverLocationCommandHandler {
	return SubmitDriverLocationCommandHandler{
		uowFactory: uowFactory,
		logger:     logger.With("component", "location_tracker"),
	}
}

func (h SubmitDriverLocationCommandHandler) Handle(ctx context.Context, cmd SubmitDriverLocationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	sample := cmd.Sample()

	err := h.record(ctx, sample)
	if errors.Is(err, tracking.ErrStaleOrUnauthorizedSample) {
		metrics.SampleRejected()
		h.logger.DebugContext(ctx, "location sample dropped", "order_id", sample.OrderID,
			"driver_id", sample.DriverID, "reason", err)
	}
	return err
}

func (h SubmitDriverLocationCommandHandler) record(ctx context.Context, sample tracking.Sample) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.TrackingRepository()
	delivery, err := repo.GetDelivery(ctx, sample.OrderID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return fmt.Errorf("%w: order %s is not tracked", tracking.ErrStaleOrUnauthorizedSample, sample.OrderID)
	}
	if err != nil {
		return err
	}
	if err = delivery.Authorize(sample); err != nil {
		return err
	}

	if err = repo.AppendSample(ctx, sample); err != nil {
		return err
	}
	mirrored := delivery.Mirror(sample)
	if mirrored {
		if err = repo.SaveDelivery(ctx, delivery); err != nil {
			return err
		}
	}

	msg, err := locationMessage(sample, mirrored)
	if err != nil {
		return err
	}
	if err = uow.OutboxRepository().Add(ctx, msg); err != nil {
		return err
	}
	return uow.Commit(ctx)
}
