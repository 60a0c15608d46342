package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/fractal-api/internal/api/shared"
	"github.com/phrazzld/fractal-api/internal/task"
)

// getPathID extracts a positive record id from the URL path parameters.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidRequest, paramName)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s has invalid format", ErrInvalidRequest, paramName)
	}
	return id, nil
}

// readDimensions reads the parameters shared by every fractal kind.
func readDimensions(q *shared.Query, width, height, iterations int) dimensionsRequest {
	return dimensionsRequest{
		Width:      q.Int("w", width),
		Height:     q.Int("h", height),
		Iterations: q.Int("i", iterations),
		PaddingW:   q.Int("padding_w", 40),
		PaddingH:   q.Int("padding_h", 40),
	}
}

// readSubmitOptions reads the runner options of a generation request. The
// image path must stay inside the output directory.
func readSubmitOptions(q *shared.Query) (task.SubmitRequest, error) {
	req := task.SubmitRequest{
		ImagePath:       q.String("image_path", ""),
		Key:             q.String("key", ""),
		CancelIfRunning: q.Bool("cancel_if_running", false),
		AllowDuplicates: q.Bool("allow_duplicates", false),
	}
	if p := req.ImagePath; p != "" {
		if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") || strings.Contains(p, "..") {
			return req, fmt.Errorf("%w: image_path must be a relative path inside the output directory", ErrInvalidRequest)
		}
		if !strings.HasSuffix(strings.ToLower(task.FilenameFromPath(p)), ".png") {
			return req, fmt.Errorf("%w: image_path must name a .png file", ErrInvalidRequest)
		}
	}
	return req, nil
}
