// Package pgtest starts a throwaway PostgreSQL for integration suites.
package pgtest

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/postgres"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// Tables lists every table of the schema, for truncation between tests.
const Tables = "order_events, orders, outbox, inbox, location_samples, deliveries"

// Database is a migrated database inside a container.
type Database struct {
	Container *tcpostgres.PostgresContainer
	DB        *gorm.DB
}

// Start runs the container and applies the migrations. It skips the test in
// short mode.
func Start(t testing.TB) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(ctx, postgres.Config{DSN: dsn, Migrate: true}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return &Database{Container: container, DB: db}
}

// Truncate empties every table.
func (d *Database) Truncate(t testing.TB) {
	t.Helper()
	require.NoError(t, d.DB.Exec("TRUNCATE TABLE "+Tables+" RESTART IDENTITY").Error)
}

// Stop closes the pool and removes the container.
func (d *Database) Stop(t testing.TB) {
	t.Helper()
	if d == nil {
		return
	}
	_ = postgres.Close(d.DB)
	require.NoError(t, d.Container.Terminate(context.Background()))
}
