package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOrigin(method, path, origin string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     string
		origin      string
		wantOrigin  string
		wantCredits string
	}{
		{name: "listed origin", allowed: "http://localhost:3000", origin: "http://localhost:3000", wantOrigin: "http://localhost:3000", wantCredits: "true"},
		{name: "second listed origin", allowed: "http://localhost:3000, https://blog.example.com/", origin: "https://blog.example.com", wantOrigin: "https://blog.example.com", wantCredits: "true"},
		{name: "unlisted origin", allowed: "http://localhost:3000", origin: "http://evil.example.com", wantOrigin: ""},
		{name: "wildcard", allowed: "*", origin: "http://anything.example.com", wantOrigin: "*"},
		{name: "empty allow-list", allowed: "", origin: "http://localhost:3000", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AllowedOrigins = tt.allowed
			app := newTestApp(t, cfg, nil)

			resp, err := app.Test(withOrigin(http.MethodGet, "/api/posts", tt.origin), -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			// Same-origin style requests are always served.
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
			if tt.wantCredits != "" {
				assert.Equal(t, tt.wantCredits, resp.Header.Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCORS_NoOriginHeader(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	resp, err := app.Test(withOrigin(http.MethodGet, "/api/posts", ""), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	req := withOrigin(http.MethodOptions, "/api/posts/abc", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	resp, err := app.Test(withOrigin(http.MethodGet, "/api", ""), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.RateLimitPerMinute = 3
	app := newTestApp(t, cfg, nil)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(withOrigin(http.MethodGet, "/api/posts", "http://localhost:3000"), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(withOrigin(http.MethodGet, "/api/posts", "http://localhost:3000"), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Too many requests, please try again later.", body["error"])

	// Preflight is never limited.
	preflight := withOrigin(http.MethodOptions, "/api/posts", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preResp, err := app.Test(preflight, -1)
	require.NoError(t, err)
	defer func() { _ = preResp.Body.Close() }()
	assert.Equal(t, fiber.StatusNoContent, preResp.StatusCode)
}

func TestGlobalRateLimit_BypassedOutsideProduction(t *testing.T) {
	for _, env := range []string{"development", "test"} {
		t.Run(env, func(t *testing.T) {
			cfg := testConfig()
			cfg.Env = env
			cfg.RateLimitPerMinute = 1
			app := newTestApp(t, cfg, nil)

			for i := 0; i < 3; i++ {
				resp, _ := doJSON(t, app, http.MethodGet, "/api/posts", nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		})
	}
}

func TestCreateRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.Env = "production"
	cfg.CreateRateLimitPerMinute = 1
	app := newTestApp(t, cfg, rdb)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/posts", PostRequest{Title: "A", Content: "x"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts", PostRequest{Title: "B", Content: "y"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Reads are unaffected.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadinessCheck(t *testing.T) {
	t.Run("store up, redis disabled", func(t *testing.T) {
		app := newTestApp(t, testConfig(), nil)
		resp, raw := doJSON(t, app, http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "healthy", body.Checks["database"])
		assert.Equal(t, "disabled", body.Checks["redis"])
	})

	t.Run("redis down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = rdb.Close() })

		app := newTestApp(t, testConfig(), rdb)
		mr.Close()

		resp, raw := doJSON(t, app, http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(raw), `"redis":"unhealthy"`)
	})

	t.Run("no store", func(t *testing.T) {
		app := newMockApp("test", new(MockPostRepository))
		resp, raw := doJSON(t, app, http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(raw), `"database":"unavailable"`)
	})

	t.Run("liveness", func(t *testing.T) {
		app := newMockApp("test", new(MockPostRepository))
		resp, _ := doJSON(t, app, http.MethodGet, "/health/live", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
