package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/config"
	"github.com/SirPen9uin/shop-api/internal/server"
	"github.com/SirPen9uin/shop-api/pkg/health"
	"github.com/SirPen9uin/shop-api/pkg/metrics"
)

func newServer(t *testing.T) (*health.Checker, http.Handler) {
	t.Helper()
	cfg := config.Config{
		AppName:                      "shop-api",
		Port:                         3001,
		HttpServerReadTimeoutSeconds: 7,
		MaxHeaderBytes:               1024,
	}
	checker := health.NewChecker("test")
	e := server.New(cfg, ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}), checker)

	assert.Equal(t, ":3001", e.Server.Addr)
	assert.Equal(t, "7s", e.Server.ReadTimeout.String())
	assert.Equal(t, 1024, e.Server.MaxHeaderBytes)
	return checker, e
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Probes(t *testing.T) {
	checker, h := newServer(t)

	assert.Equal(t, http.StatusOK, get(h, "/api/v1/health/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/api/v1/health/ready").Code)

	checker.SetReady(true)
	rec := get(h, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Metrics(t *testing.T) {
	_, h := newServer(t)

	metrics.RecordPriceListImport("succeeded", 0.2)

	rec := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), `shop_pricelist_imports_total{status="succeeded"}`)
	assert.Contains(t, rec.Body.String(), "shop_pricelist_import_duration_seconds_count")
}

func TestServer_UnknownRoute(t *testing.T) {
	_, h := newServer(t)

	rec := get(h, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_id")
}
