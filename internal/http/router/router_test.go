package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "coaching_portal_backend/internal/http"
	"coaching_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	rps   float64
	burst int
}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return "test-secret" }
func (c testConfig) GetRateLimitRPS() float64 { return c.rps }
func (c testConfig) GetRateLimitBurst() int   { return c.burst }

type stubHealth struct{ err error }

func (h stubHealth) Ping(context.Context) error { return h.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	return newEngineWithConfig(health, testConfig{})
}

func newEngineWithConfig(health apphttp.HealthChecker, cfg testConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.Nop(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newEngine(stubHealth{}), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(newEngine(stubHealth{err: errors.New("down")}), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestModuleRoutesRequireAuth(t *testing.T) {
	rec := serve(newEngine(stubHealth{}), httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := serve(newEngine(stubHealth{}), req)
	require.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitUsesConfiguredBurst(t *testing.T) {
	engine := newEngineWithConfig(stubHealth{}, testConfig{rps: 0.01, burst: 1})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
