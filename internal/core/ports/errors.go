package ports

import "errors"

var (
	// ErrConcurrencyConflict is returned by a store when another writer changed
	// the aggregate since it was read. The caller re-reads and retries.
	ErrConcurrencyConflict = errors.New("concurrent modification")

	// ErrDependencyUnavailable marks a transient failure of a collaborator
	// (payment gateway, broker). It is retried with backoff.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
