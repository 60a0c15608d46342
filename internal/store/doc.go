// Package store holds the errors and database helpers shared by the
// StatusStore implementations (in-memory, PostgreSQL and Redis), so callers
// can match failures with errors.Is regardless of the backend.
package store
