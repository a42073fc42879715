package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// schedule runs a tick on a cron spec with second precision. A tick that is
// still running when the next one is due is skipped.
type schedule struct {
	name    string
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
}

func newSchedule(name, spec string, timeout time.Duration, logger *slog.Logger) *schedule {
	return &schedule{
		name:    name,
		spec:    spec,
		timeout: timeout,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger.With("component", name),
	}
}

func (s *schedule) start(tick func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		tick(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("job started", "schedule", s.spec)
	return nil
}

// stop waits for a running tick to finish.
func (s *schedule) stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("job stopped")
}
