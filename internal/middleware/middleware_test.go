package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelemon/restaurant/internal/config"
)

type staticValidator string

func (v staticValidator) Validate(raw string) error {
	if raw != string(v) {
		return errors.New("bad token")
	}
	return nil
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/p", ok, JWTAuth(staticValidator("good")))

	cases := map[string]int{
		"":              http.StatusUnauthorized,
		"JWT good":      http.StatusOK,
		"JWT  good ":    http.StatusOK,
		"Bearer good":   http.StatusUnauthorized,
		"jwt good":      http.StatusUnauthorized,
		"JWT bad":       http.StatusUnauthorized,
		"JWT good more": http.StatusUnauthorized,
		"JWT":           http.StatusUnauthorized,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "header %q", header)
		if want == http.StatusUnauthorized {
			assert.Equal(t, `JWT realm="api"`, rec.Header().Get(echo.HeaderWWWAuthenticate))
		}
	}
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/api/menu-items", ok, NewTokenBucket(cfg, rdb))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/menu-items", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		e.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.True(t, mr.Exists("rl:ip:10.0.0.1:route:GET /api/menu-items"))
}

func limitedEcho(t *testing.T, cfg config.RateLimitConfig) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	e := echo.New()
	e.IPExtractor = IPExtractor(cfg)
	e.GET("/api/menu-items", ok, NewTokenBucket(cfg, rdb))
	return e
}

func bucketCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		Prefix:         "rl",
	}
}

func statusCodes(e *echo.Echo, remote string, forwarded ...string) []int {
	codes := make([]int, 0, len(forwarded))
	for _, xff := range forwarded {
		req := httptest.NewRequest(http.MethodGet, "/api/menu-items", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set(echo.HeaderXForwardedFor, xff)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	return codes
}

func TestTokenBucketLoopbackExemption(t *testing.T) {
	cfg := bucketCfg()
	cfg.ExemptLoopback = true
	e := limitedEcho(t, cfg)
	assert.Equal(t, []int{200, 200, 200, 200}, statusCodes(e, "127.0.0.1:4000", "", "", "", ""))
	assert.Equal(t, []int{200, 200, 200, 200}, statusCodes(e, "[::1]:4000", "", "", "", ""))

	cfg.ExemptLoopback = false
	e = limitedEcho(t, cfg)
	assert.Equal(t, []int{200, 200, 429, 429}, statusCodes(e, "127.0.0.1:4000", "", "", "", ""))
}

func TestTokenBucketIgnoresForwardedHeaderByDefault(t *testing.T) {
	cfg := bucketCfg()
	cfg.ExemptLoopback = true
	e := limitedEcho(t, cfg)
	codes := statusCodes(e, "10.0.0.1:1234", "198.51.100.1", "198.51.100.2", "127.0.0.1", "198.51.100.4")
	assert.Equal(t, []int{200, 200, 429, 429}, codes)
}

func TestIPExtractorTrustProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")

	assert.Equal(t, "127.0.0.1", IPExtractor(config.RateLimitConfig{})(req))
	assert.Equal(t, "203.0.113.9", IPExtractor(config.RateLimitConfig{TrustProxy: true})(req))
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/x", ok, NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	e := echo.New()
	e.GET("/x", ok, NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillInterval: time.Second, TTL: time.Minute}, rdb))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/bookings")

	assert.Equal(t, "p:ip:192.0.2.7", buildRateKey(config.RateLimitConfig{Prefix: "p", KeyStrategy: "ip"}, c))
	assert.Equal(t, "p:route:POST /api/bookings", buildRateKey(config.RateLimitConfig{Prefix: "p", KeyStrategy: "ROUTE"}, c))
	assert.Equal(t, "p:ip:192.0.2.7:route:POST /api/bookings", buildRateKey(config.RateLimitConfig{Prefix: "p"}, c))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestID(), RequestLogger(logger))
	e.GET("/api/menu-items/:id", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menu-items/9", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "/api/menu-items/:id", line["route"])
	assert.EqualValues(t, 404, line["status"])
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), line["request_id"])
	assert.Len(t, line["request_id"], 36)
}
