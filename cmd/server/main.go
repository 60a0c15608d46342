// Package main implements the entry point for the fractal API server, which
// renders tree, circle and flower fractals to PNG files in the background and
// serves their status and images over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/phrazzld/fractal-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a database migration command (up, down, status, version) and exit")
	flag.Parse()

	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx := context.Background()

	if *migrateCmd != "" {
		if err := handleMigrations(ctx, cfg, *migrateCmd, l); err != nil {
			l.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		l.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		l.Error("Application error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
