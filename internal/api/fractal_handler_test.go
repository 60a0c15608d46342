package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/store"
	"github.com/phrazzld/fractal-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGenerationRunner is a mock implementation of GenerationRunner for testing
type MockGenerationRunner struct {
	SubmitFn func(ctx context.Context, req task.SubmitRequest) (*task.Submission, error)
	RecordFn func(ctx context.Context, id int64) (*task.Record, error)
	CancelFn func(key string) bool
}

// Submit implements GenerationRunner
func (m *MockGenerationRunner) Submit(ctx context.Context, req task.SubmitRequest) (*task.Submission, error) {
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	return nil, nil
}

// Record implements GenerationRunner
func (m *MockGenerationRunner) Record(ctx context.Context, id int64) (*task.Record, error) {
	if m.RecordFn != nil {
		return m.RecordFn(ctx, id)
	}
	return nil, store.ErrRecordNotFound
}

// Cancel implements GenerationRunner
func (m *MockGenerationRunner) Cancel(key string) bool {
	if m.CancelFn != nil {
		return m.CancelFn(key)
	}
	return false
}

var fixedTime = time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(runner GenerationRunner) http.Handler {
	h := NewFractalHandler(runner, "/images/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/api/fractals", h.Routes)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var body map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	}
	return rr, body
}

// acceptingRunner records the last submit request and accepts it as record id.
func acceptingRunner(id int64, captured *task.SubmitRequest) *MockGenerationRunner {
	return &MockGenerationRunner{
		SubmitFn: func(ctx context.Context, req task.SubmitRequest) (*task.Submission, error) {
			*captured = req
			path := req.ImagePath
			if path == "" {
				path = fmt.Sprintf("%s-%d.png", req.Spec.Kind(), id)
			}
			record := task.NewRecord(id, req.Spec, path, fixedTime, time.Hour)
			return &task.Submission{Record: record, Accepted: true}, nil
		},
	}
}

func TestFractalHandler_GenerateDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		expected fractal.Spec
	}{
		{
			name:   "tree",
			target: "/api/fractals/tree",
			expected: fractal.Tree{
				Dimensions:    fractal.Dimensions{Width: 500, Height: 500, TotalIterations: 10, PaddingHorizontal: 40, PaddingVertical: 40},
				Angle:         radians(60),
				ScalingFactor: 0.77,
			},
		},
		{
			name:   "circle",
			target: "/api/fractals/circle",
			expected: fractal.Circle{
				Dimensions:     fractal.Dimensions{Width: 700, Height: 500, TotalIterations: 4, PaddingHorizontal: 40, PaddingVertical: 40},
				SatelliteCount: 4,
				ScalingFactor:  0.5,
				ZoomFactor:     0.2,
			},
		},
		{
			name:   "flower",
			target: "/api/fractals/flower",
			expected: fractal.Flower{
				Dimensions:    fractal.Dimensions{Width: 600, Height: 600, TotalIterations: 5, PaddingHorizontal: 40, PaddingVertical: 40},
				PetalCount:    3,
				ArcAngle:      radians(180),
				ScalingFactor: 0.5,
				ScalingPower:  1,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured task.SubmitRequest
			router := newTestRouter(acceptingRunner(1, &captured))

			rr, body := doRequest(t, router, http.MethodGet, tc.target)

			require.Equal(t, http.StatusAccepted, rr.Code)
			assert.True(t, fractal.Equal(tc.expected, captured.Spec), "got %#v", captured.Spec)
			assert.Empty(t, captured.Key)
			assert.False(t, captured.CancelIfRunning)
			assert.False(t, captured.AllowDuplicates)

			assert.Equal(t, float64(1), body["id"])
			assert.Equal(t, tc.name, body["kind"])
			assert.Equal(t, "pending", body["status"])
			assert.Equal(t, fmt.Sprintf("Generating %s fractal...", tc.name), body["status_message"])
			assert.Equal(t, fmt.Sprintf("/images/%s-1.png", tc.name), body["image_url"])
			assert.Equal(t, false, body["complete"])
			assert.NotContains(t, body, "duplicate")
		})
	}
}

func TestFractalHandler_GenerateWithParameters(t *testing.T) {
	t.Parallel()

	var captured task.SubmitRequest
	router := newTestRouter(acceptingRunner(3, &captured))

	rr, body := doRequest(t, router, http.MethodGet,
		"/api/fractals/circle?w=800&h=600&i=3&satellites=6&factor=0.4&zoom=0.3&rotation=90&padding_w=10&padding_h=20"+
			"&key=gallery&cancel_if_running=true&allow_duplicates=1&image_path=gallery/circle.png?v=2")

	require.Equal(t, http.StatusAccepted, rr.Code)
	circle, ok := captured.Spec.(fractal.Circle)
	require.True(t, ok)
	assert.Equal(t, fractal.Dimensions{Width: 800, Height: 600, TotalIterations: 3, PaddingHorizontal: 10, PaddingVertical: 20}, circle.Dimensions)
	assert.Equal(t, 6, circle.SatelliteCount)
	assert.Equal(t, 0.4, circle.ScalingFactor)
	assert.Equal(t, 0.3, circle.ZoomFactor)
	assert.InDelta(t, math.Pi/2, circle.Rotation, 1e-12)

	assert.Equal(t, "gallery", captured.Key)
	assert.True(t, captured.CancelIfRunning)
	assert.True(t, captured.AllowDuplicates)
	assert.Equal(t, "gallery/circle.png?v=2", captured.ImagePath)
	assert.Equal(t, "/images/gallery/circle.png?v=2", body["image_url"])

	params, ok := body["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(6), params["satellite_count"])
}

func TestFractalHandler_GenerateDuplicate(t *testing.T) {
	t.Parallel()

	existing := task.NewRecord(9, fractal.Tree{}, "tree-9.png", fixedTime, time.Hour)
	existing.Status = task.TaskStatusCompleted
	existing.StatusMessage = "Generated at images/tree-9.png"
	existing.Complete = true

	router := newTestRouter(&MockGenerationRunner{
		SubmitFn: func(ctx context.Context, req task.SubmitRequest) (*task.Submission, error) {
			return &task.Submission{Record: existing, Duplicate: true}, nil
		},
	})

	rr, body := doRequest(t, router, http.MethodGet, "/api/fractals/tree")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(9), body["id"])
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, true, body["complete"])
	assert.Equal(t, "Generated at images/tree-9.png", body["status_message"])
}

func TestFractalHandler_GenerateInvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		target         string
		expectedErrMsg string
	}{
		{"non-numeric width", "/api/fractals/tree?w=abc", `query parameter "w": "abc" is not an integer`},
		{"non-numeric angle", "/api/fractals/tree?angle=wide", `query parameter "angle": "wide" is not a number`},
		{"invalid bool", "/api/fractals/tree?cancel_if_running=maybe", `query parameter "cancel_if_running": "maybe" is not a boolean`},
		{"zero width", "/api/fractals/tree?w=0", "Invalid width: must be at least 1"},
		{"too many iterations", "/api/fractals/circle?i=1000", "Invalid iterations: must be at most 64"},
		{"factor above one", "/api/fractals/flower?factor=1.5", "Invalid factor: must be at most 1"},
		{"zero arc", "/api/fractals/flower?arc=0", "Invalid arc: must be greater than 0"},
		{"absolute image path", "/api/fractals/tree?image_path=/etc/tree.png", "image_path must be a relative path inside the output directory"},
		{"escaping image path", "/api/fractals/tree?image_path=a/../../tree.png", "image_path must be a relative path inside the output directory"},
		{"non-png image path", "/api/fractals/tree?image_path=tree.jpg", "image_path must name a .png file"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &MockGenerationRunner{
				SubmitFn: func(ctx context.Context, req task.SubmitRequest) (*task.Submission, error) {
					t.Fatal("Submit must not be called for an invalid request")
					return nil, nil
				},
			}

			rr, body := doRequest(t, newTestRouter(runner), http.MethodGet, tc.target)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.expectedErrMsg, body["error"])
		})
	}
}

func TestFractalHandler_GenerateRunnerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedErrMsg string
	}{
		{"key busy", fmt.Errorf("key tree: %w", task.ErrKeyBusy), http.StatusConflict, "A fractal is already being generated for this key"},
		{"queue full", fmt.Errorf("%w: queue capacity 1 reached", task.ErrQueueFull), http.StatusServiceUnavailable, "Too many fractals are being generated, try again later"},
		{"runner stopped", task.ErrRunnerStopped, http.StatusServiceUnavailable, "The server is shutting down"},
		{"store unavailable", fmt.Errorf("lookup: %w", store.ErrUnavailable), http.StatusServiceUnavailable, "Storage is temporarily unavailable"},
		{"unexpected", fmt.Errorf("pq: connection reset by 10.0.0.1:5432"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &MockGenerationRunner{
				SubmitFn: func(ctx context.Context, req task.SubmitRequest) (*task.Submission, error) {
					return nil, tc.err
				},
			}

			rr, body := doRequest(t, newTestRouter(runner), http.MethodGet, "/api/fractals/tree")

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedErrMsg, body["error"])
			assert.NotContains(t, rr.Body.String(), "10.0.0.1")
		})
	}
}

func TestFractalHandler_GetRecord(t *testing.T) {
	t.Parallel()

	record := task.NewRecord(7, fractal.Flower{PetalCount: 2}, "flower-7.png", fixedTime, time.Hour)
	record.Status = task.TaskStatusCancelled
	record.StatusMessage = "Generation of flower fractal was cancelled"
	record.Complete = true
	record.DurationMs = 1500

	runner := &MockGenerationRunner{
		RecordFn: func(ctx context.Context, id int64) (*task.Record, error) {
			if id == 7 {
				return record, nil
			}
			return nil, fmt.Errorf("failed to find record %d: %w", id, store.ErrRecordNotFound)
		},
	}
	router := newTestRouter(runner)

	t.Run("found", func(t *testing.T) {
		rr, body := doRequest(t, router, http.MethodGet, "/api/fractals/7")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "flower", body["kind"])
		assert.Equal(t, "cancelled", body["status"])
		assert.Equal(t, float64(1500), body["duration_ms"])
		assert.Equal(t, "2025-04-01T12:00:00Z", body["created_at"])
		assert.Equal(t, "2025-04-01T13:00:00Z", body["expiration"])
	})

	t.Run("status", func(t *testing.T) {
		rr, body := doRequest(t, router, http.MethodGet, "/api/fractals/7/status")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{
			"id":             float64(7),
			"status_message": "Generation of flower fractal was cancelled",
			"complete":       true,
		}, body)
	})

	t.Run("not found", func(t *testing.T) {
		rr, body := doRequest(t, router, http.MethodGet, "/api/fractals/8")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Fractal not found", body["error"])
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, target := range []string{"/api/fractals/abc", "/api/fractals/-1/status", "/api/fractals/0"} {
			rr, body := doRequest(t, router, http.MethodGet, target)

			assert.Equal(t, http.StatusBadRequest, rr.Code, target)
			assert.Equal(t, "Invalid fractal id", body["error"], target)
		}
	})
}

func TestFractalHandler_CancelRunning(t *testing.T) {
	t.Parallel()

	var cancelled []string
	runner := &MockGenerationRunner{
		CancelFn: func(key string) bool {
			cancelled = append(cancelled, key)
			return key == "gallery"
		},
	}
	router := newTestRouter(runner)

	rr, _ := doRequest(t, router, http.MethodDelete, "/api/fractals/running/gallery")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, body := doRequest(t, router, http.MethodDelete, "/api/fractals/running/idle")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No fractal is being generated for this key", body["error"])

	assert.Equal(t, []string{"gallery", "idle"}, cancelled)
}

func TestNewFractalHandler_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Panics(t, func() { NewFractalHandler(nil, "/images/", logger) })
	assert.Panics(t, func() { NewFractalHandler(&MockGenerationRunner{}, "/images/", nil) })
}

func TestImageURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/images/tree-1.png", imageURL("/images/", "tree-1.png"))
	assert.Equal(t, "/images/tree-1.png", imageURL("/images", "/tree-1.png"))
	assert.Equal(t, "https://cdn.example.com/a/b.png?v=1", imageURL("https://cdn.example.com/", "a/b.png?v=1"))
}
