package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig defines settings for the event-list cache.  When Enabled is
// false the listing always reads the database.  Backend "redis" uses the
// shared Redis client and falls back to "memory" when Redis is unreachable.
type CacheConfig struct {
	Enabled bool
	Backend string
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		Backend: getenv("CACHE_BACKEND", "redis"),
		TTL:     parseDur(getenv("CACHE_TTL", "30s")),
		Prefix:  getenv("CACHE_PREFIX", "hub"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
