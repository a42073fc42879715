package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordersaga/internal/core/application/usecases/commands"
)

// OutboxRelayJob publishes outbox messages left behind by failed publishes.
type OutboxRelayJob struct {
	handler  commands.RelayOutboxCommandHandler
	cmd      commands.RelayOutboxCommand
	schedule *schedule
}

func NewOutboxRelayJob(
	handler commands.RelayOutboxCommandHandler,
	batchSize int,
	spec string,
	logger *slog.Logger,
) (*OutboxRelayJob, error) {
	cmd, err := commands.NewRelayOutboxCommand(batchSize)
	if err != nil {
		return nil, err
	}
	return &OutboxRelayJob{
		handler:  handler,
		cmd:      cmd,
		schedule: newSchedule("outbox_relay_job", spec, 30*time.Second, logger),
	}, nil
}

func (j *OutboxRelayJob) Start() error {
	return j.schedule.start(j.Run)
}

func (j *OutboxRelayJob) Run(ctx context.Context) {
	published, err := j.handler.Handle(ctx, j.cmd)
	if err != nil {
		j.schedule.logger.ErrorContext(ctx, "Outbox relay failed", "error", err)
		return
	}
	if published > 0 {
		j.schedule.logger.DebugContext(ctx, "Outbox relayed", "published", published)
	}
}

func (j *OutboxRelayJob) Stop() {
	j.schedule.stop()
}
