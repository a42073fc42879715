package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordersaga/internal/core/application/usecases/commands"
)

// OfferExpiryJob announces driver offers that lapsed without an answer.
type OfferExpiryJob struct {
	handler  commands.ExpireDriverOffersCommandHandler
	schedule *schedule
}

func NewOfferExpiryJob(handler commands.ExpireDriverOffersCommandHandler, spec string, logger *slog.Logger) *OfferExpiryJob {
	return &OfferExpiryJob{
		handler:  handler,
		schedule: newSchedule("offer_expiry_job", spec, 30*time.Second, logger),
	}
}

func (j *OfferExpiryJob) Start() error {
	return j.schedule.start(j.Run)
}

func (j *OfferExpiryJob) Run(ctx context.Context) {
	expired, err := j.handler.Handle(ctx, commands.NewExpireDriverOffersCommand())
	if err != nil {
		j.schedule.logger.ErrorContext(ctx, "Offer expiry failed", "error", err)
		return
	}
	if expired > 0 {
		j.schedule.logger.InfoContext(ctx, "Driver offers expired", "count", expired)
	}
}

func (j *OfferExpiryJob) Stop() {
	j.schedule.stop()
}

// DriverPurgeJob removes drivers whose heartbeat went stale.
type DriverPurgeJob struct {
	handler  commands.PurgeStaleDriversCommandHandler
	schedule *schedule
}

func NewDriverPurgeJob(handler commands.PurgeStaleDriversCommandHandler, spec string, logger *slog.Logger) *DriverPurgeJob {
	return &DriverPurgeJob{
		handler:  handler,
		schedule: newSchedule("driver_purge_job", spec, 30*time.Second, logger),
	}
}

func (j *DriverPurgeJob) Start() error {
	return j.schedule.start(j.Run)
}

func (j *DriverPurgeJob) Run(ctx context.Context) {
	purged, err := j.handler.Handle(ctx, commands.NewPurgeStaleDriversCommand())
	if err != nil {
		j.schedule.logger.ErrorContext(ctx, "Driver purge failed", "error", err)
		return
	}
	if purged > 0 {
		j.schedule.logger.InfoContext(ctx, "Stale drivers purged", "count", purged)
	}
}

func (j *DriverPurgeJob) Stop() {
	j.schedule.stop()
}
