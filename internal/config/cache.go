package config

import "time"

// CacheConfig drives the availability response cache. Entries are keyed
// under a generation counter that every successful booking write bumps, so
// TTL only bounds staleness from writes the HTTP layer never sees (POS
// completions, lazy expiry).
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string // route | route_query (default)
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 15*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "avail"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
    }
    if c.TTL <= 0 {
        c.TTL = 15 * time.Second
    }
    return c
}
