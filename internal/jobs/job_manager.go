package jobs

import (
	"fmt"
	"log/slog"

	"ordersaga/internal/core/application/usecases/commands"
)

// Config holds the cron specs and batch sizes of the background jobs. Specs
// use six fields (with seconds) or descriptors such as "@every 5s".
type Config struct {
	SagaSweepSpec   string
	SagaSweepBatch  int
	OfferExpirySpec string
	DriverPurgeSpec string
	OutboxRelaySpec string
	OutboxBatch     int
}

func DefaultConfig() Config {
	return Config{
		SagaSweepSpec:   "@every 10s",
		SagaSweepBatch:  100,
		OfferExpirySpec: "* * * * * *",
		DriverPurgeSpec: "@every 30s",
		OutboxRelaySpec: "@every 2s",
		OutboxBatch:     100,
	}
}

// Handlers are the command handlers driven by the jobs.
type Handlers struct {
	SweepStalledOrders commands.SweepStalledOrdersCommandHandler
	ExpireDriverOffers commands.ExpireDriverOffersCommandHandler
	PurgeStaleDrivers  commands.PurgeStaleDriversCommandHandler
	RelayOutbox        commands.RelayOutboxCommandHandler
}

type job interface {
	Start() error
	Stop()
}

type namedJob struct {
	name string
	job  job
}

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	jobs    []namedJob
	started []namedJob
}

// NewJobManager creates a new job manager with all required jobs.
// Takes command handlers as dependencies to wire up the job execution.
func NewJobManager(cfg Config, h Handlers, logger *slog.Logger) (*JobManager, error) {
	sweep, err := NewSagaSweepJob(h.SweepStalledOrders, cfg.SagaSweepBatch, cfg.SagaSweepSpec, logger)
	if err != nil {
		return nil, fmt.Errorf("saga sweep job: %w", err)
	}
	relay, err := NewOutboxRelayJob(h.RelayOutbox, cfg.OutboxBatch, cfg.OutboxRelaySpec, logger)
	if err != nil {
		return nil, fmt.Errorf("outbox relay job: %w", err)
	}

	return &JobManager{
		jobs: []namedJob{
			{"offer expiry", NewOfferExpiryJob(h.ExpireDriverOffers, cfg.OfferExpirySpec, logger)},
			{"driver purge", NewDriverPurgeJob(h.PurgeStaleDrivers, cfg.DriverPurgeSpec, logger)},
			{"outbox relay", relay},
			{"saga sweep", sweep},
		},
	}, nil
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	for _, j := range jm.jobs {
		if err := j.job.Start(); err != nil {
			// Stop already started jobs if this one fails
			jm.StopAll()
			return fmt.Errorf("failed to start %s job: %w", j.name, err)
		}
		jm.started = append(jm.started, j)
	}
	return nil
}

// StopAll stops the started jobs in reverse order and waits for running ticks.
func (jm *JobManager) StopAll() {
	for i := len(jm.started) - 1; i >= 0; i-- {
		jm.started[i].job.Stop()
	}
	jm.started = nil
}
