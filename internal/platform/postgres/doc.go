// Package postgres provides the PostgreSQL implementation of task.StatusStore.
// It handles the details of query execution, mapping between generation
// records and table rows, and the embedded goose schema migrations.
package postgres
