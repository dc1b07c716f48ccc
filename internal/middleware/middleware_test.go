package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "create_post", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "create_post", "ip:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other clients have their own window.
	allowed, err = CheckRateLimit(ctx, rdb, "create_post", "ip:2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "create_post", "ip:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckRateLimit_NilRedis(t *testing.T) {
	allowed, err := CheckRateLimit(context.Background(), nil, "x", "ip:1", 1, time.Minute)
	assert.ErrorIs(t, err, ErrNoRateLimitStore)
	assert.False(t, allowed)
}

func rateLimitedApp(cfg RateLimitConfig) *fiber.App {
	app := fiber.New()
	app.Post("/posts", RateLimit(cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func TestRateLimit_Middleware(t *testing.T) {
	_, rdb := newRedis(t)
	app := rateLimitedApp(RateLimitConfig{
		Redis: rdb, Resource: "create_post", Limit: 1, Window: time.Minute, Env: "production",
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimit_Bypass(t *testing.T) {
	tests := []struct {
		name string
		cfg  RateLimitConfig
	}{
		{"development", RateLimitConfig{Limit: 1, Window: time.Minute, Env: "development"}},
		{"test", RateLimitConfig{Limit: 1, Window: time.Minute, Env: "test"}},
		{"disabled limit", RateLimitConfig{Limit: 0, Window: time.Minute, Env: "production"}},
		{"fail open without redis", RateLimitConfig{Limit: 1, Window: time.Minute, Env: "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := rateLimitedApp(tt.cfg)
			for i := 0; i < 3; i++ {
				resp, err := app.Test(httptest.NewRequest("POST", "/posts", nil))
				require.NoError(t, err)
				assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
			}
		})
	}
}

func TestRateLimit_FailClosed(t *testing.T) {
	app := rateLimitedApp(RateLimitConfig{
		Limit: 1, Window: time.Minute, Env: "production", Policy: FailClosed,
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestContextAndStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seenRequestID string
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger(logger))
	app.Get("/ok", func(c *fiber.Ctx) error {
		seenRequestID = observability.RequestIDFrom(c.UserContext())
		return c.SendString("ok")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return models.NewNotFoundError("Post")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, seenRequestID)
	assert.Equal(t, seenRequestID, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Contains(t, buf.String(), `"msg":"request processed"`)
	assert.Contains(t, buf.String(), `"path":"/ok"`)

	buf.Reset()
	_, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"request failed"`)
	assert.Contains(t, buf.String(), `"status":404`)
}

func TestTracingMiddleware_SetsTraceHeaderWhenSampled(t *testing.T) {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName: "test", Enabled: false,
	})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	// The no-op provider yields invalid span contexts, so no header is emitted.
	assert.Empty(t, resp.Header.Get("X-Trace-ID"))
}

func TestInitMetrics_ReturnsSameInstance(t *testing.T) {
	assert.Same(t, InitMetrics("inkwell-test"), InitMetrics("inkwell-test"))
}
