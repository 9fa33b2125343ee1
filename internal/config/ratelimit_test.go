package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	if !cfg.Enabled {
		t.Fatal("limiter must default to enabled")
	}
	if cfg.Capacity != 10 || cfg.RefillTokens != 1 {
		t.Fatalf("defaults = capacity %d refill %d", cfg.Capacity, cfg.RefillTokens)
	}
	if cfg.RefillInterval != time.Second {
		t.Fatalf("refill interval = %v", cfg.RefillInterval)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "-5")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "0")
	t.Setenv("RATE_LIMIT_TTL", "1ms")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity < 1 {
		t.Fatalf("capacity = %d, want >= 1", cfg.Capacity)
	}
	if cfg.RefillTokens < 1 {
		t.Fatalf("refill tokens = %d, want >= 1", cfg.RefillTokens)
	}
	if cfg.TTL < 5*cfg.RefillInterval {
		t.Fatalf("ttl = %v, want at least 5 refill intervals", cfg.TTL)
	}
}
