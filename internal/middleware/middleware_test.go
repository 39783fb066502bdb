package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/config"
	"github.com/iliyamo/restaurant-frontdesk/internal/utils"
)

const secret = "test-secret"

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 7, "host@example.com", role, 5, time.Now())
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthStoresIdentity(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/v1/staff/reservations")
	c.Request().Header.Set(echo.HeaderAuthorization, bearer(t, "STAFF"))

	var gotID, gotRole, gotActor string
	h := JWTAuth(secret)(func(c echo.Context) error {
		gotID, gotRole, gotActor = StaffID(c), Role(c), Actor(c)
		return ok(c)
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", gotID)
	assert.Equal(t, "STAFF", gotRole)
	assert.Equal(t, "staff:7", gotActor)
}

func TestJWTAuthRejects(t *testing.T) {
	cases := map[string]string{
		"missing":   "",
		"no bearer": "Token abc",
		"garbage":   "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/")
			if header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, header)
			}
			require.NoError(t, JWTAuth(secret)(ok)(c))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	chain := func(role string) int {
		c, rec := newContext(http.MethodGet, "/")
		c.Request().Header.Set(echo.HeaderAuthorization, bearer(t, role))
		h := JWTAuth(secret)(RequireRole("MANAGER")(ok))
		require.NoError(t, h(c))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, chain("MANAGER"))
	assert.Equal(t, http.StatusForbidden, chain("STAFF"))
}

func TestActorDefaultsToGuest(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/")
	assert.Equal(t, "guest", Actor(c))
	assert.Equal(t, "", Role(c))
}

func TestBuildRateKey(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/self-service/lookup")
	c.SetPath("/v1/self-service/lookup")
	c.Request().RemoteAddr = "203.0.113.9:5555"

	cfg := config.RateLimitConfig{Prefix: "rl:self", KeyStrategy: "ip"}
	assert.Equal(t, "rl:self:ip:203.0.113.9", buildRateKey(cfg, c))

	cfg = config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:203.0.113.9:user:anon:route:POST /v1/self-service/lookup", buildRateKey(cfg, c))

	c.Set(ctxStaffID, "12")
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:12", buildRateKey(cfg, c))
}

func TestParseBucketResult(t *testing.T) {
	allowed, remaining, retry, ok := parseBucketResult([]any{int64(1), int64(4), int64(0)})
	require.True(t, ok)
	assert.True(t, allowed)
	assert.Equal(t, int64(4), remaining)
	assert.Equal(t, int64(0), retry)

	allowed, _, retry, ok = parseBucketResult([]any{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, allowed)
	assert.Equal(t, 2, retryAfterSeconds(retry))

	_, _, _, ok = parseBucketResult("nope")
	assert.False(t, ok)
}

func TestLimiterAndCachePassThroughWithoutRedis(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/v1/availability?date=2026-03-02&party_size=2")
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	h := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)(rc.Middleware()(ok))
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, rc.Invalidate(c.Request().Context()))
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "avail", KeyStrategy: "route_query"}
	key := func(target, gen string) string {
		c, _ := newContext(http.MethodGet, target)
		c.SetPath("/v1/availability")
		return cacheKeyFrom(cfg, gen, c)
	}
	a := key("/v1/availability?date=2026-03-02&party_size=2", "0")
	assert.Equal(t, a, key("/v1/availability?party_size=2&date=2026-03-02", "0"))
	assert.NotEqual(t, a, key("/v1/availability?date=2026-03-02&party_size=4", "0"))
	assert.NotEqual(t, a, key("/v1/availability?date=2026-03-02&party_size=2", "1"))
	assert.Contains(t, a, "avail:0:")
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"slots":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"slots":[]}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCaptureWriterDropsOversizedBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflow)
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.overflow)
	assert.Equal(t, "abcdef", rec.Body.String())
}
