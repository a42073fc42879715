package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordersaga/internal/core/application/usecases/commands"
)

// SagaSweepJob re-issues lost saga steps and escalates orders out of retries.
type SagaSweepJob struct {
	handler  commands.SweepStalledOrdersCommandHandler
	cmd      commands.SweepStalledOrdersCommand
	schedule *schedule
}

func NewSagaSweepJob(
	handler commands.SweepStalledOrdersCommandHandler,
	batchSize int,
	spec string,
	logger *slog.Logger,
) (*SagaSweepJob, error) {
	cmd, err := commands.NewSweepStalledOrdersCommand(batchSize)
	if err != nil {
		return nil, err
	}
	return &SagaSweepJob{
		handler:  handler,
		cmd:      cmd,
		schedule: newSchedule("saga_sweep_job", spec, time.Minute, logger),
	}, nil
}

func (j *SagaSweepJob) Start() error {
	return j.schedule.start(j.Run)
}

// Run performs one sweep.
func (j *SagaSweepJob) Run(ctx context.Context) {
	result, err := j.handler.Handle(ctx, j.cmd)
	if err != nil {
		j.schedule.logger.ErrorContext(ctx, "Saga sweep failed", "error", err)
		return
	}
	if result.Retried > 0 || result.Escalated > 0 {
		j.schedule.logger.InfoContext(ctx, "Saga sweep finished",
			"retried", result.Retried, "escalated", result.Escalated)
	}
}

func (j *SagaSweepJob) Stop() {
	j.schedule.stop()
}
