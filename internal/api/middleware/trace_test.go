package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/fractal-api/internal/api/shared"
	"github.com/phrazzld/fractal-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	base, buf := logger.NewTestLogger()

	var traceID string
	handler := TraceMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fractals/7", nil))

	require.NotEmpty(t, traceID)
	assert.Equal(t, traceID, rec.Header().Get(TraceIDHeader))

	entries, err := buf.Entries()
	require.NoError(t, err)
	var found bool
	for _, entry := range entries {
		if entry["msg"] == "inside handler" {
			found = true
			assert.Equal(t, traceID, entry["trace_id"])
		}
	}
	assert.True(t, found, "handler log entry should carry the trace id")
}
