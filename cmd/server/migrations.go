package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/fractal-api/internal/config"
	"github.com/phrazzld/fractal-api/internal/platform/postgres"
)

// handleMigrations runs a single goose command against the configured
// database. It's called from main() when the -migrate flag is set.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations require the %q store driver, got %q", config.DriverPostgres, cfg.Store.Driver)
	}

	logger.Info("Executing migrations", "command", command)

	db, err := openDatabase(ctx, cfg.Store.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Error closing database connection", "error", closeErr)
		}
	}()

	return postgres.Migrate(ctx, db, command, logger)
}
