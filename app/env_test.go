package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustEnv(t *testing.T) {
	t.Setenv("FINTRACK_TEST_REQUIRED", "value")
	value, err := mustEnv("FINTRACK_TEST_REQUIRED")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	t.Setenv("FINTRACK_TEST_REQUIRED", "  ")
	_, err = mustEnv("FINTRACK_TEST_REQUIRED")
	assert.Error(t, err)
}

func TestEnvDurationOrDefault(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		d, err := envDurationOrDefault("FINTRACK_TEST_TTL", "", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, d)
	})

	t.Run("parses env value", func(t *testing.T) {
		t.Setenv("FINTRACK_TEST_TTL", "45m")
		d, err := envDurationOrDefault("FINTRACK_TEST_TTL", "", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Minute, d)
	})

	t.Run("falls back to alias", func(t *testing.T) {
		d, err := envDurationOrDefault("FINTRACK_TEST_TTL", "2h", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, d)
	})

	t.Run("env wins over alias", func(t *testing.T) {
		t.Setenv("FINTRACK_TEST_TTL", "30m")
		d, err := envDurationOrDefault("FINTRACK_TEST_TTL", "2h", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, d)
	})

	t.Run("malformed is an error", func(t *testing.T) {
		t.Setenv("FINTRACK_TEST_TTL", "sixty minutes")
		_, err := envDurationOrDefault("FINTRACK_TEST_TTL", "", time.Hour)
		assert.Error(t, err)
	})

	t.Run("non-positive is an error", func(t *testing.T) {
		t.Setenv("FINTRACK_TEST_TTL", "-1h")
		_, err := envDurationOrDefault("FINTRACK_TEST_TTL", "", time.Hour)
		assert.Error(t, err)
	})
}

func TestEnvIntOrDefault(t *testing.T) {
	assert.Equal(t, 10, envIntOrDefault("FINTRACK_TEST_INT", 10))

	t.Setenv("FINTRACK_TEST_INT", "25")
	assert.Equal(t, 25, envIntOrDefault("FINTRACK_TEST_INT", 10))

	t.Setenv("FINTRACK_TEST_INT", "not a number")
	assert.Equal(t, 10, envIntOrDefault("FINTRACK_TEST_INT", 10))

	t.Setenv("FINTRACK_TEST_INT", "-3")
	assert.Equal(t, 10, envIntOrDefault("FINTRACK_TEST_INT", 10))
}

func TestEnvBoolOrDefault(t *testing.T) {
	assert.False(t, EnvBoolOrDefault("FINTRACK_TEST_BOOL", false))

	t.Setenv("FINTRACK_TEST_BOOL", "TRUE")
	assert.True(t, EnvBoolOrDefault("FINTRACK_TEST_BOOL", false))

	t.Setenv("FINTRACK_TEST_BOOL", "off")
	assert.False(t, EnvBoolOrDefault("FINTRACK_TEST_BOOL", true))

	t.Setenv("FINTRACK_TEST_BOOL", "maybe")
	assert.True(t, EnvBoolOrDefault("FINTRACK_TEST_BOOL", true))
}
