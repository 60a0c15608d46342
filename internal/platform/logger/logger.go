package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/fractal-api/internal/config"
)

// Setup initializes the application's logging system from the server
// configuration. It creates a structured JSON logger writing to stdout, sets it
// as the slog default and returns it.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	logger := New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger, nil
}

// New creates a JSON logger writing to out at the given level. An unknown level
// falls back to info with a warning.
func New(out io.Writer, level string) *slog.Logger {
	lvl, ok := ParseLevel(level)
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
	if !ok {
		logger.Warn("invalid log level configured, using default level",
			"configured_level", level,
			"default_level", "info")
	}
	return logger
}

// ParseLevel converts a case-insensitive level name to a slog.Level. The
// second result is false when the name is not recognised, in which case
// slog.LevelInfo is returned.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
