package config

import (
    "context"
    "crypto/tls"
    "log"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server backing rate limits, the
// availability cache and side-effect idempotency keys.
type RedisConfig struct {
    Addr          string
    Password      string
    DB            int
    TLS           bool
    TLSSkipVerify bool
    DialTimeout   time.Duration
}

// LoadRedisConfig reads REDIS_*. REDIS_HOST + REDIS_PORT win over REDIS_ADDR.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:          addr,
        Password:      envStr("REDIS_PASSWORD", ""),
        DB:            envInt("REDIS_DB", 0),
        TLS:           envBool("REDIS_TLS", false),
        TLSSkipVerify: envBool("REDIS_TLS_SKIP_VERIFY", false),
        DialTimeout:   envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
    }
}

// NewRedisClient connects and pings. It returns nil when Redis is
// unreachable; callers then run without caching, rate limiting or
// cross-process dedupe.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    if cfg.DialTimeout <= 0 {
        cfg.DialTimeout = 2 * time.Second
    }
    opts := &redis.Options{
        Addr:        cfg.Addr,
        Password:    cfg.Password,
        DB:          cfg.DB,
        DialTimeout: cfg.DialTimeout,
    }
    if cfg.TLS {
        opts.TLSConfig = &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Printf("redis: %s unreachable, running without it: %v", cfg.Addr, err)
        _ = client.Close()
        return nil
    }
    return client
}
