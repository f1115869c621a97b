package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// Pinger checks that a dependency is reachable
type Pinger func(ctx context.Context) error

type check struct {
	name string
	ping Pinger
}

// Checker handles health check endpoints
type Checker struct {
	checks    []check
	version   string
	startTime time.Time
	ready     atomic.Bool
}

// NewChecker creates a new health checker
func NewChecker(version string) *Checker {
	return &Checker{
		version:   version,
		startTime: time.Now(),
	}
}

// AddCheck registers a dependency check. A nil pinger reports the dependency as not configured.
func (c *Checker) AddCheck(name string, ping Pinger) *Checker {
	c.checks = append(c.checks, check{name: name, ping: ping})
	return c
}

// SetReady sets the readiness state
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// RegisterRoutes registers health check endpoints
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health pings every registered dependency and reports 503 if any of them fails
func (c *Checker) Health(ctx echo.Context) error {
	status := &HealthStatus{
		Status:     statusHealthy,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult, len(c.checks)),
		ReportedAt: time.Now(),
	}

	for _, chk := range c.checks {
		result := chk.run(ctx.Request().Context())
		if result.Status != statusHealthy {
			status.Status = statusUnhealthy
		}
		status.Checks[chk.name] = result
	}

	if status.Status != statusHealthy {
		return ctx.JSON(http.StatusServiceUnavailable, status)
	}
	return ctx.JSON(http.StatusOK, status)
}

func (chk check) run(ctx context.Context) *CheckResult {
	if chk.ping == nil {
		return &CheckResult{Status: statusUnhealthy, Message: chk.name + " not configured"}
	}

	start := time.Now()
	if err := chk.ping(ctx); err != nil {
		return &CheckResult{Status: statusUnhealthy, Message: err.Error()}
	}
	return &CheckResult{Status: statusHealthy, Latency: time.Since(start).String()}
}

// Live returns the liveness status (is the service running)
func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready returns the readiness status (is the service ready to accept traffic)
func (c *Checker) Ready(ctx echo.Context) error {
	if c.ready.Load() {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
