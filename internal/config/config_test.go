package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3*time.Second, cfg.DwellTime)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, 24*time.Hour, cfg.SeedWindow)
	assert.Equal(t, 100, cfg.SeedLimit)
	assert.Equal(t, 10*time.Minute, cfg.RecorderIdleTTL)
	assert.False(t, cfg.TracingEnabled)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VIEW_DWELL_TIME", "5s")
	t.Setenv("VIEW_FLUSH_INTERVAL", "500ms")
	t.Setenv("VIEW_SEED_LIMIT", "50")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DwellTime)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, 50, cfg.SeedLimit)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 0.25, cfg.TracingSampleRate)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("VIEW_DWELL_TIME", "soon")
	t.Setenv("VIEW_SEED_LIMIT", "many")
	t.Setenv("TRACING_SAMPLE_RATE", "most")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.DwellTime)
	assert.Equal(t, 100, cfg.SeedLimit)
	assert.Equal(t, 1.0, cfg.TracingSampleRate)
}
