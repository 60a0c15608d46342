package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/fractal-api/internal/config"
	"github.com/phrazzld/fractal-api/internal/events"
	"github.com/phrazzld/fractal-api/internal/metrics"
	"github.com/phrazzld/fractal-api/internal/platform/raster"
	"github.com/phrazzld/fractal-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	statusStore task.StatusStore
	closeStore  func() error

	eventEmitter *events.InMemoryEventEmitter
	// metrics is nil when the Prometheus endpoint is disabled.
	metrics *metrics.Recorder

	taskRunner *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized and the task runner started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.statusStore, app.closeStore, err = setupStatusStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up status store: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.EventHandlerFunc(app.logGenerationEvent))
	if cfg.Metrics.Enabled {
		app.metrics = metrics.NewRecorder()
		app.eventEmitter.RegisterHandler(app.metrics)
	}

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTaskRunner creates and starts the background generation runner.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(
		app.statusStore,
		raster.NewFileSink(app.logger),
		raster.NewImage,
		task.TaskRunnerConfig{
			WorkerCount:   app.config.Task.WorkerCount,
			QueueSize:     app.config.Task.QueueSize,
			RecordTTL:     app.config.Task.RecordTTL,
			SweepInterval: app.config.Task.SweepInterval,
			OutputDir:     app.config.Output.ImageDir,
		},
		app.logger,
	)
	taskRunner.SetEventEmitter(app.eventEmitter)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return taskRunner, nil
}

func (app *application) logGenerationEvent(ctx context.Context, event *events.GenerationEvent) error {
	if !event.Terminal() {
		return nil
	}
	app.logger.Debug("generation finished",
		"event_type", event.Type,
		"record_id", event.RecordID,
		"kind", event.Kind,
		"duration_ms", event.Duration.Milliseconds())
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.closeStore != nil {
		if err := app.closeStore(); err != nil {
			app.logger.Error("Error closing status store", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
