// Package jobs runs the saga's periodic work on robfig/cron schedules.
//
// Four jobs exist, each a thin wrapper around one command handler:
//
//	SagaSweepJob    re-issues lost steps of stalled orders, escalates exhausted ones
//	OfferExpiryJob  clears lapsed driver offers and announces driver.offer_expired
//	DriverPurgeJob  drops drivers whose last heartbeat left the freshness window
//	OutboxRelayJob  publishes outbox messages whose publish failed after commit
//
// JobManager builds them from a Config and starts or stops them together:
//
//	manager, err := jobs.NewJobManager(jobs.DefaultConfig(), handlers, logger)
//	if err != nil {
//		return err
//	}
//	if err = manager.StartAll(); err != nil {
//		return err
//	}
//	defer manager.StopAll()
//
// Schedules are parsed with a seconds field. Every tick runs under its own
// timeout and a tick that is still running when the next one is due is
// skipped. A failing tick is logged and the job keeps its schedule. If one
// job fails to start, the jobs already started are stopped again.
package jobs
