package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-frontdesk/internal/config"
)

// captureWriter tees the response body up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// ResponseCache serves GET availability responses from Redis. Keys embed a
// generation number; Invalidate bumps it so every cached answer goes stale
// at once.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache that is a no-op when disabled or when
// rdb is nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

// Middleware caches 200 responses of the configured methods.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			gen, err := rc.rdb.Get(ctx, rc.genKey()).Result()
			if err != nil && err != redis.Nil {
				return next(c)
			}
			if gen == "" {
				gen = "0"
			}
			key := cacheKeyFrom(rc.cfg, gen, c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, hdr.Get(echo.HeaderContentType), body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				_ = rc.rdb.Set(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err()
			}
			return nil
		}
	}
}

// Invalidate drops every cached answer.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
	if !rc.enabled() {
		return nil
	}
	return rc.rdb.Incr(ctx, rc.genKey()).Err()
}

// InvalidateOnWrite bumps the generation after any successful request it
// wraps. Apply it to routes that change bookings.
func (rc *ResponseCache) InvalidateOnWrite() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if c.Request().Method == http.MethodGet || err != nil || c.Response().Status >= 400 {
				return err
			}
			if ierr := rc.Invalidate(context.WithoutCancel(c.Request().Context())); ierr != nil {
				c.Logger().Warnf("cache: invalidate: %v", ierr)
			}
			return nil
		}
	}
}

// cacheKeyFrom hashes route (and query, unless the strategy is "route")
// under prefix and generation.
func cacheKeyFrom(cfg config.CacheConfig, gen string, c echo.Context) string {
	parts := []string{"route", c.Path()}
	if !strings.EqualFold(cfg.KeyStrategy, "route") {
		parts = append(parts, "q", canonicalQuery(c))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%s:%x", cfg.Prefix, gen, sum[:])
}

// canonicalQuery sorts parameters so ?a=1&b=2 and ?b=2&a=1 share an entry.
func canonicalQuery(c echo.Context) string {
	return c.Request().URL.Query().Encode()
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
