// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database or Redis server.
//
// Tests call OpenDB or RedisURL at the top; both skip the test when the
// corresponding environment variable is unset, so the default `go test ./...`
// run needs no external services:
//
//	func TestRecordStore_Integration(t *testing.T) {
//		db := testdb.OpenDB(t)
//		...
//	}
//
// Databases are located through DATABASE_URL (or FRACTAL_TEST_DB_URL) and
// Redis through REDIS_URL (or FRACTAL_TEST_REDIS_URL).
package testdb
