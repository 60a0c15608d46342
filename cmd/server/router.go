package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/fractal-api/internal/api"
	apiMiddleware "github.com/phrazzld/fractal-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	fractalHandler := api.NewFractalHandler(app.taskRunner, app.config.Output.PublicPrefix, app.logger)
	r.Route("/api/fractals", fractalHandler.Routes)

	// Generated images are served from the output directory when the public
	// prefix is a local path rather than an external URL.
	if prefix := strings.TrimSuffix(app.config.Output.PublicPrefix, "/"); strings.HasPrefix(prefix, "/") {
		files := http.FileServer(http.Dir(app.config.Output.ImageDir))
		r.Handle(prefix+"/*", http.StripPrefix(prefix, files))
	}

	if app.metrics != nil {
		r.Handle("/metrics", app.metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
