package config

import "time"

// RateLimitConfig configures one token bucket. Guest routes get the
// general bucket; self-service routes, where a caller could guess codes,
// get a much smaller one keyed by client address.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* for the public API.
func LoadRateLimitConfig() RateLimitConfig {
    return loadBucket("RATE_LIMIT", RateLimitConfig{
        Capacity:       60,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_user_route",
        Prefix:         "rl",
    })
}

// LoadSelfServiceRateLimitConfig reads SELF_SERVICE_RATE_LIMIT_* for the
// code + phone lookup endpoints.
func LoadSelfServiceRateLimitConfig() RateLimitConfig {
    return loadBucket("SELF_SERVICE_RATE_LIMIT", RateLimitConfig{
        Capacity:       10,
        RefillTokens:   1,
        RefillInterval: 6 * time.Second,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl:self",
    })
}

func loadBucket(prefix string, def RateLimitConfig) RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool(prefix+"_ENABLED", true),
        Capacity:       envInt(prefix+"_CAPACITY", def.Capacity),
        RefillTokens:   envInt(prefix+"_REFILL_TOKENS", def.RefillTokens),
        RefillInterval: envDur(prefix+"_REFILL_INTERVAL", def.RefillInterval),
        TTL:            envDur(prefix+"_TTL", def.TTL),
        KeyStrategy:    envStr(prefix+"_KEY_STRATEGY", def.KeyStrategy),
        Prefix:         envStr(prefix+"_PREFIX", def.Prefix),
        Debug:          envBool(prefix+"_DEBUG", false),
    }
    if b := envInt(prefix+"_BURST", -1); b > 0 {
        c.Capacity = b
    }
    if every := envDur(prefix+"_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens = 1
        c.RefillInterval = every
    }
    return c.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
