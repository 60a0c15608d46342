package testdb

import "os"

// Environment variables read by this package, in lookup order.
var (
	DatabaseURLEnvVars = []string{"DATABASE_URL", "FRACTAL_TEST_DB_URL"}
	RedisURLEnvVars    = []string{"REDIS_URL", "FRACTAL_TEST_REDIS_URL"}
)

func firstEnv(names []string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// GetTestDatabaseURL returns the database URL for tests, or "" when none is set.
func GetTestDatabaseURL() string {
	return firstEnv(DatabaseURLEnvVars)
}

// GetTestRedisURL returns the Redis URL for tests, or "" when none is set.
func GetTestRedisURL() string {
	return firstEnv(RedisURLEnvVars)
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}
