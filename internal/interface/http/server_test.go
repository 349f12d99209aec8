package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypet/studypet-hub/internal/interface/http/handlers"
)

func newTestServer(t *testing.T, cfg Config, deps Dependencies) http.Handler {
	t.Helper()
	return NewServer(cfg, deps).Handler()
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestServer_Health(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("0.1.0")
	healthy := true
	checker.AddCheck("store", func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})

	h := newTestServer(t, DefaultConfig(), Dependencies{HealthChecker: checker})

	rec, body := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec, body = get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, body.Success)

	rec, _ = get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = get(t, h, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsAndRoot(t *testing.T) {
	h := newTestServer(t, DefaultConfig(), Dependencies{
		Version: "0.1.0",
		Metrics: func() map[string]interface{} {
			return map[string]interface{}{"scheduler": map[string]int{"executions": 3}}
		},
	})

	rec, body := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]interface{})
	assert.Contains(t, data, "scheduler")
	assert.Contains(t, data, "uptime_seconds")

	_, body = get(t, h, "/")
	assert.Equal(t, "0.1.0", body.Data.(map[string]interface{})["version"])
}

func TestServer_KeepsRequestID(t *testing.T) {
	h := newTestServer(t, DefaultConfig(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_RateLimitPerIP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	h := newTestServer(t, cfg, Dependencies{})

	for i := 0; i < 2; i++ {
		rec, _ := get(t, h, "/live")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := get(t, h, "/live")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "rate_limit_exceeded", body.Error.Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Forwarded-For", "192.0.2.7, 10.0.0.1")
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))
}
