package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ordersaga/internal/adapters/out/postgres/migrations"
	"ordersaga/internal/core/ports"

	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// Config describes the connection pool.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Migrate applies the embedded schema on Open.
	Migrate bool
}

// Open connects to PostgreSQL, checks the connection and optionally applies
// the embedded migrations. Connection failures wrap
// ports.ErrDependencyUnavailable.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(gorm_postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ports.ErrDependencyUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to reach database: %w", ports.ErrDependencyUnavailable, err)
	}

	if cfg.Migrate {
		if err = migrations.Up(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "database migrations applied")
	}
	return db, nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
