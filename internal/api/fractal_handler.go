package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/fractal-api/internal/api/shared"
	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/platform/logger"
	"github.com/phrazzld/fractal-api/internal/task"
)

// GenerationRunner is the part of task.TaskRunner the handler needs.
type GenerationRunner interface {
	Submit(ctx context.Context, req task.SubmitRequest) (*task.Submission, error)
	Record(ctx context.Context, id int64) (*task.Record, error)
	Cancel(key string) bool
}

// FractalHandler handles fractal generation HTTP requests
type FractalHandler struct {
	runner       GenerationRunner
	publicPrefix string
	logger       *slog.Logger
}

// NewFractalHandler creates a new FractalHandler. Image URLs in responses are
// built from publicPrefix and each record's image path.
func NewFractalHandler(runner GenerationRunner, publicPrefix string, logger *slog.Logger) *FractalHandler {
	if runner == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("runner cannot be nil for FractalHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for FractalHandler")
	}

	return &FractalHandler{
		runner:       runner,
		publicPrefix: publicPrefix,
		logger:       logger.With(slog.String("component", "fractal_handler")),
	}
}

// Routes mounts the fractal endpoints on r.
func (h *FractalHandler) Routes(r chi.Router) {
	r.Get("/tree", h.GenerateTree)
	r.Get("/circle", h.GenerateCircle)
	r.Get("/flower", h.GenerateFlower)
	r.Delete("/running/{key}", h.CancelRunning)
	r.Get("/{id}", h.GetRecord)
	r.Get("/{id}/status", h.GetStatus)
}

// GenerateTree handles GET /fractals/tree requests
func (h *FractalHandler) GenerateTree(w http.ResponseWriter, r *http.Request) {
	q := shared.NewQuery(r)
	req := TreeRequest{
		dimensionsRequest: readDimensions(q, 500, 500, 10),
		Angle:             q.Float("angle", 60),
		Factor:            q.Float("factor", 0.77),
	}
	h.generate(w, r, q, req, func() fractal.Spec { return req.Spec() })
}

// GenerateCircle handles GET /fractals/circle requests
func (h *FractalHandler) GenerateCircle(w http.ResponseWriter, r *http.Request) {
	q := shared.NewQuery(r)
	req := CircleRequest{
		dimensionsRequest: readDimensions(q, 700, 500, 4),
		Satellites:        q.Int("satellites", 4),
		Factor:            q.Float("factor", 0.5),
		Zoom:              q.Float("zoom", 0.2),
		Rotation:          q.Float("rotation", 0),
	}
	h.generate(w, r, q, req, func() fractal.Spec { return req.Spec() })
}

// GenerateFlower handles GET /fractals/flower requests
func (h *FractalHandler) GenerateFlower(w http.ResponseWriter, r *http.Request) {
	q := shared.NewQuery(r)
	req := FlowerRequest{
		dimensionsRequest: readDimensions(q, 600, 600, 5),
		Petals:            q.Int("petals", 3),
		Arc:               q.Float("arc", 180),
		Factor:            q.Float("factor", 0.5),
		Power:             q.Float("power", 1),
	}
	h.generate(w, r, q, req, func() fractal.Spec { return req.Spec() })
}

// generate validates the request and submits its spec. New records get 202
// Accepted, duplicates 200 OK with the existing record.
func (h *FractalHandler) generate(
	w http.ResponseWriter,
	r *http.Request,
	q *shared.Query,
	req any,
	spec func() fractal.Spec,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	opts, err := readSubmitOptions(q)
	if err == nil && q.Err() != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidRequest, q.Err())
	}
	if err == nil {
		err = shared.ValidateRequest(req)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	opts.Spec = spec()
	sub, err := h.runner.Submit(r.Context(), opts)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := newGenerationResponse(sub.Record, h.publicPrefix)
	resp.Duplicate = sub.Duplicate

	status := http.StatusAccepted
	if sub.Duplicate {
		status = http.StatusOK
	}

	log.Debug("fractal generation submitted",
		slog.Int64("record_id", sub.Record.ID),
		slog.String("kind", string(sub.Record.Kind())),
		slog.Bool("duplicate", sub.Duplicate))

	shared.RespondWithJSON(w, r, status, resp)
}

// GetRecord handles GET /fractals/{id} requests
func (h *FractalHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, ok := h.findRecord(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newGenerationResponse(record, h.publicPrefix))
}

// GetStatus handles GET /fractals/{id}/status requests
func (h *FractalHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	record, ok := h.findRecord(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		ID:            record.ID,
		StatusMessage: record.StatusMessage,
		Complete:      record.Complete,
	})
}

func (h *FractalHandler) findRecord(w http.ResponseWriter, r *http.Request) (*task.Record, bool) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid fractal id")
		return nil, false
	}

	record, err := h.runner.Record(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}
	return record, true
}

// CancelRunning handles DELETE /fractals/running/{key} requests. It responds
// 204 when a task was cancelled and 404 when nothing was running on the key.
func (h *FractalHandler) CancelRunning(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	key := chi.URLParam(r, "key")
	if key == "" {
		HandleAPIError(w, r, fmt.Errorf("%w: key is required", ErrInvalidRequest), "Key is required")
		return
	}

	if !h.runner.Cancel(key) {
		shared.RespondWithError(w, r, http.StatusNotFound, "No fractal is being generated for this key")
		return
	}

	log.Info("generation cancelled by request", slog.String("key", key))
	w.WriteHeader(http.StatusNoContent)
}
