package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/platform/logger"
)

// ErrArtifactIO wraps every failure to create or write an image file.
var ErrArtifactIO = errors.New("image output failed")

// FileSink writes rendered images to the local filesystem as PNG files.
type FileSink struct {
	logger *slog.Logger
}

// NewFileSink creates a FileSink. A nil logger falls back to the context logger
// on every call.
func NewFileSink(logger *slog.Logger) *FileSink {
	if logger != nil {
		logger = logger.With(slog.String("component", "file_sink"))
	}
	return &FileSink{logger: logger}
}

// WriteImage encodes img as PNG into dir/filename and returns the absolute path
// of the file. The directory is created if missing and an existing file is
// overwritten. It returns fractal.ErrCancelled without touching the filesystem
// if token is already set, and checks the token again once the file is open.
func (s *FileSink) WriteImage(
	ctx context.Context,
	img fractal.Image,
	dir, filename string,
	token *fractal.CancelToken,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if token.Cancelled() {
		return "", fractal.ErrCancelled
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: could not resolve directory %q: %v", ErrArtifactIO, dir, err)
	}
	path := filepath.Join(absDir, filename)

	if _, err := os.Stat(absDir); errors.Is(err, os.ErrNotExist) {
		log.Info("creating image directory", slog.String("dir", absDir))
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: could not create directory %q: %v", ErrArtifactIO, absDir, err)
	}

	if _, err := os.Stat(path); err == nil {
		log.Debug("overwriting existing image", slog.String("path", path))
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: could not create file %q: %v", ErrArtifactIO, path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn("failed to close image file",
				slog.String("path", path),
				slog.String("error", closeErr.Error()))
		}
	}()

	if token.Cancelled() {
		return "", fractal.ErrCancelled
	}

	if err := img.EncodePNG(file); err != nil {
		return "", fmt.Errorf("%w: could not write %q: %v", ErrArtifactIO, path, err)
	}

	log.Debug("image written", slog.String("path", path))
	return path, nil
}

// RemoveImage deletes the file at path. A missing file is not an error.
func (s *FileSink) RemoveImage(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: could not remove %q: %v", ErrArtifactIO, path, err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("image removed", slog.String("path", path))
	return nil
}
