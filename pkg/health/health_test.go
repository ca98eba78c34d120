package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/pkg/health"
)

func get(t *testing.T, e *echo.Echo, path string) (int, health.Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestChecker_Liveness(t *testing.T) {
	e := echo.New()
	checker := health.NewChecker("1.2.3")
	checker.AddCheck("database", func(context.Context) error { return errors.New("down") })
	checker.RegisterRoutes(e)

	code, resp := get(t, e, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestChecker_ReadinessWaitsForStartup(t *testing.T) {
	e := echo.New()
	checker := health.NewChecker("dev")
	checker.AddCheck("database", func(context.Context) error { return nil })
	checker.RegisterRoutes(e)

	code, resp := get(t, e, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks, "startup")

	checker.SetReady(true)
	code, resp = get(t, e, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusHealthy, resp.Checks["database"].Status)
}

func TestChecker_OverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]health.Check
		code   int
		status health.Status
	}{
		{
			name: "healthy",
			checks: map[string]health.Check{
				"database": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return nil },
			},
			code:   http.StatusOK,
			status: health.StatusHealthy,
		},
		{
			name: "degraded",
			checks: map[string]health.Check{
				"database":          func(context.Context) error { return nil },
				"identity_consumer": func(context.Context) error { return health.Degraded("consumer disabled") },
			},
			code:   http.StatusOK,
			status: health.StatusDegraded,
		},
		{
			name: "unhealthy",
			checks: map[string]health.Check{
				"database":          func(context.Context) error { return errors.New("connection refused") },
				"identity_consumer": func(context.Context) error { return health.Degraded("consumer disabled") },
			},
			code:   http.StatusServiceUnavailable,
			status: health.StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			checker := health.NewChecker("dev")
			for name, check := range tt.checks {
				checker.AddCheck(name, check)
			}
			checker.RegisterRoutes(e)

			code, resp := get(t, e, "/api/v1/health")
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, health.PingCheck(pinger{})(context.Background()))
	assert.Error(t, health.PingCheck(pinger{err: errors.New("down")})(context.Background()))
}
