package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	"github.com/phrazzld/fractal-api/internal/config"
	"github.com/phrazzld/fractal-api/internal/platform/postgres"
	"github.com/phrazzld/fractal-api/internal/platform/redis"
	"github.com/phrazzld/fractal-api/internal/store/memory"
	"github.com/phrazzld/fractal-api/internal/task"
)

const (
	redisConnectAttempts = 5
	redisConnectDelay    = 2 * time.Second
)

// openDatabase establishes a connection to the database and configures connection pools.
func openDatabase(ctx context.Context, url string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

// setupStatusStore creates the status store selected by cfg.Driver. The
// returned close function releases the store's connections.
func setupStatusStore(
	ctx context.Context,
	cfg config.StoreConfig,
	logger *slog.Logger,
) (task.StatusStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Info("Using in-memory status store")
		return memory.NewRecordStore(), func() error { return nil }, nil

	case config.DriverPostgres:
		db, err := openDatabase(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("Using postgres status store")
		return postgres.NewRecordStore(db), db.Close, nil

	case config.DriverRedis:
		client, err := redis.Connect(ctx, cfg.RedisURL, redisConnectAttempts, redisConnectDelay, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis status store")
		return redis.NewRecordStore(client, redis.DefaultPrefix), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
