package gin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
)

func newTestServer(checks map[string]HealthChecker) *Server {
	cfg := &Config{ServiceName: "legal-indexer", ServiceVersion: "test"}
	return NewServer(cfg, logger.NewNop(), func(r *gin.Engine) {
		RegisterHealthRoutes(r, cfg, checks)
		r.GET("/panic", func(*gin.Context) { panic("boom") })
	})
}

func TestHealth_AggregatesChecks(t *testing.T) {
	srv := newTestServer(map[string]HealthChecker{
		"ledger": PingChecker("ledger", HealthStatusUnhealthy, func() error { return nil }),
		"redis":  PingChecker("redis", HealthStatusDegraded, func() error { return errors.New("refused") }),
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, HealthStatusDegraded, body.Status)
	assert.Equal(t, HealthStatusHealthy, body.Checks["ledger"].Status)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestHealth_UnhealthyReturns503(t *testing.T) {
	srv := newTestServer(map[string]HealthChecker{
		"backend": PingChecker("backend", HealthStatusUnhealthy, func() error { return errors.New("down") }),
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddleware_PropagatesHeader(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest(http.MethodHead, "/health", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestRequestIDMiddleware_StoresRequestLogger(t *testing.T) {
	var got logger.Logger
	cfg := &Config{ServiceName: "legal-indexer"}
	srv := NewServer(cfg, logger.NewNop(), func(r *gin.Engine) {
		r.GET("/probe", func(c *gin.Context) {
			got = logger.FromContext(c.Request.Context())
			c.Status(http.StatusNoContent)
		})
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.NotSame(t, logger.FromContext(context.Background()), got)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5s", formatUptime(5*time.Second))
	assert.Equal(t, "2m 3s", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1h 1m", formatUptime(time.Hour+time.Minute))
	assert.Equal(t, "1d 0h 0m", formatUptime(24*time.Hour))
}
