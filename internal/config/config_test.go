package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "42")
	t.Setenv("X_DUR", "250ms")
	t.Setenv("X_BAD_INT", "NaN")

	assert.Equal(t, "value", envStr("X_STR", "d"))
	assert.Equal(t, "d", envStr("X_MISSING", "d"))
	assert.False(t, envBool("X_BOOL", true))
	assert.True(t, envBool("X_MISSING", true))
	assert.Equal(t, 42, envInt("X_INT", 7))
	assert.Equal(t, 7, envInt("X_BAD_INT", 7), "garbage falls back to the default")
	assert.Equal(t, 250*time.Millisecond, envDur("X_DUR", time.Second))
}

func TestLoadRateLimitConfigClampsInsaneValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.TTL, "TTL never undercuts five refill intervals")
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}

func TestIsProd(t *testing.T) {
	assert.True(t, Config{Env: "prod"}.IsProd())
	assert.False(t, Config{Env: "dev"}.IsProd())
	assert.False(t, Config{Env: "test"}.IsProd())
}
