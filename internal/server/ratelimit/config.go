package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Tier is the rate limit applied to a group of routes. Paths ending in "/"
// match by prefix; a Limit of zero means unlimited.
type Tier struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// keyPath returns the bucket key component for a matched path. Prefix tiers
// share one bucket per client so /runs/{a} and /runs/{b} draw from the same
// allowance.
func (t *Tier) keyPath(path string) string {
	if strings.HasSuffix(t.Path, "/") {
		return t.Path
	}
	if t.Path != "" {
		return t.Path
	}
	return path
}

// Config holds limiter configuration
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Tiers           []Tier
}

// DefaultConfig returns the standard tiers for the interpretation API:
// run starts are expensive (each triggers collaborator calls), answer
// submissions are moderate, reads fall under the default, and health checks
// are unlimited.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Tiers: []Tier{
			{Path: "/runs", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
			{Path: "/runs/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
			{Path: "/runs/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
			{Path: "/health", Method: "GET", Limit: 0},
		},
	}
}

// LoadConfig builds limiter configuration from environment variables,
// falling back to DefaultConfig values.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	cfg := DefaultConfig()
	cfg.DefaultLimit = getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	return cfg
}

// matchTier finds the tier for a path and method: exact match first, then
// prefix tiers.
func matchTier(path, method string, tiers []Tier) *Tier {
	for i := range tiers {
		t := &tiers[i]
		if t.Method == method && t.Path == path {
			return t
		}
	}
	for i := range tiers {
		t := &tiers[i]
		if t.Method == method && strings.HasSuffix(t.Path, "/") && strings.HasPrefix(path, t.Path) {
			return t
		}
	}
	return nil
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
