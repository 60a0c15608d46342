// Package task runs fractal generation in the background. A TaskRunner
// deduplicates submissions against in-flight tasks and the StatusStore, keeps
// at most one running task per key, cancels superseded tasks cooperatively
// through a fractal.CancelToken, and records every outcome as a status message
// on the task's Record.
package task
