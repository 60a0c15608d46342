// Package metrics exposes Prometheus metrics for fractal generation. The
// Recorder is an events.EventHandler, so it sees exactly what the task runner
// reports and nothing else.
package metrics
