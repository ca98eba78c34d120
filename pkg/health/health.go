// Package health serves liveness and readiness probes for the service.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const checkTimeout = 5 * time.Second

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Response struct {
	Status     Status                 `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// Check reports the health of one dependency. An error built with Degraded
// marks the dependency degraded rather than unhealthy.
type Check func(ctx context.Context) error

type degradedError struct{ msg string }

func (e degradedError) Error() string { return e.msg }

// Degraded wraps a message as a degraded (non-fatal) check result.
func Degraded(msg string) error {
	return degradedError{msg: msg}
}

// Pinger is satisfied by the database handle and the redis client.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingCheck checks a dependency through its ping.
func PingCheck(p Pinger) Check {
	return func(ctx context.Context) error {
		return p.PingContext(ctx)
	}
}

type Checker struct {
	startTime time.Time
	version   string

	mu     sync.RWMutex
	ready  bool
	names  []string
	checks map[string]Check
}

func NewChecker(version string) *Checker {
	return &Checker{
		startTime: time.Now(),
		version:   version,
		checks:    make(map[string]Check),
	}
}

// AddCheck registers a named readiness check.
func (c *Checker) AddCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.checks[name]; !ok {
		c.names = append(c.names, name)
	}
	c.checks[name] = check
}

func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// LivenessHandler reports that the process is up.
func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Version:    c.version,
		Uptime:     c.uptime(),
		ReportedAt: time.Now(),
	})
}

// ReadinessHandler reports whether the service should receive traffic.
func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			Version:    c.version,
			ReportedAt: time.Now(),
			Checks: map[string]CheckResult{
				"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
			},
		})
	}
	return c.HealthHandler(ctx)
}

func (c *Checker) HealthHandler(ctx echo.Context) error {
	resp := c.Report(ctx.Request().Context())

	statusCode := http.StatusOK
	if resp.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	return ctx.JSON(statusCode, resp)
}

// Report runs every check and folds them into one response.
func (c *Checker) Report(ctx context.Context) Response {
	checks := c.runChecks(ctx)
	return Response{
		Status:     overallStatus(checks),
		Version:    c.version,
		Uptime:     c.uptime(),
		Checks:     checks,
		ReportedAt: time.Now(),
	}
}

func (c *Checker) runChecks(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	names := append([]string(nil), c.names...)
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(names))
	for _, name := range names {
		results[name] = runCheck(ctx, checks[name])
	}
	return results
}

func runCheck(ctx context.Context, check Check) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := check(ctx)
	latency := time.Since(start).String()
	if err == nil {
		return CheckResult{Status: StatusHealthy, Latency: latency}
	}
	if _, ok := err.(degradedError); ok {
		return CheckResult{Status: StatusDegraded, Message: err.Error(), Latency: latency}
	}
	return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Latency: latency}
}

func overallStatus(checks map[string]CheckResult) Status {
	status := StatusHealthy
	for _, check := range checks {
		switch check.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

func (c *Checker) uptime() string {
	return time.Since(c.startTime).Round(time.Second).String()
}

// RegisterRoutes registers the health routes under /api/v1/health.
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	health := e.Group("/api/v1/health")

	health.GET("", c.HealthHandler)

	// Kubernetes-style probes
	health.GET("/live", c.LivenessHandler)
	health.GET("/ready", c.ReadinessHandler)
}
