package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// OpenDB connects to the test database and closes it when the test ends. It
// skips the test when no database URL is configured. Migrations are left to
// the caller.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database connection: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Failed to ping test database")

	return db
}

// Truncate empties the given tables.
func Truncate(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	query := fmt.Sprintf("TRUNCATE %s", strings.Join(tables, ", "))
	_, err := db.ExecContext(ctx, query)
	require.NoError(t, err, "Failed to truncate %v", tables)
}

// RedisURL returns the test Redis URL, skipping the test when none is configured.
func RedisURL(t *testing.T) string {
	t.Helper()

	url := GetTestRedisURL()
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis integration test")
	}
	return url
}

// UniquePrefix returns base followed by a random suffix, for key namespaces
// that must not collide between tests sharing one server.
func UniquePrefix(base string) string {
	return base + "-" + uuid.NewString()[:8]
}
