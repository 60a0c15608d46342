package testdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FRACTAL_TEST_DB_URL", "")
	assert.Empty(t, GetTestDatabaseURL())
	assert.False(t, IsIntegrationTestEnvironment())

	t.Setenv("FRACTAL_TEST_DB_URL", "postgres://fallback")
	assert.Equal(t, "postgres://fallback", GetTestDatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://primary")
	assert.Equal(t, "postgres://primary", GetTestDatabaseURL())
	assert.True(t, IsIntegrationTestEnvironment())
}

func TestGetTestRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("FRACTAL_TEST_REDIS_URL", "redis://fallback:6379/1")
	assert.Equal(t, "redis://fallback:6379/1", GetTestRedisURL())
}

func TestOpenDB_SkipsWithoutURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FRACTAL_TEST_DB_URL", "")

	skipped := true
	t.Run("inner", func(t *testing.T) {
		OpenDB(t)
		skipped = false
	})
	assert.True(t, skipped)
}

func TestUniquePrefix(t *testing.T) {
	a, b := UniquePrefix("fractal-test"), UniquePrefix("fractal-test")

	assert.True(t, strings.HasPrefix(a, "fractal-test-"))
	assert.Len(t, a, len("fractal-test-")+8)
	assert.NotEqual(t, a, b)
}
