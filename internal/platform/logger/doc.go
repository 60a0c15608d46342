// Package logger provides structured logging for the application.
//
// It uses the standard library log/slog package with a JSON handler and a
// configurable level, and carries request-scoped loggers through contexts.
package logger
