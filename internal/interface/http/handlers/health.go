// Package handlers contains the health checks served by the HTTP server.
package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// HealthChecker is what the server needs from a checker.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc returns nil when the component is usable.
type HealthCheckFunc func(ctx context.Context) error

// Overall service states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthStatus is the aggregated result served on /health.
//
// A failing critical check (the store, the scheduler) makes the service
// unhealthy and not ready. A failing optional check (the Redis cache) only
// marks it degraded: progression reads and writes keep working without it.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type registeredCheck struct {
	fn       HealthCheckFunc
	optional bool
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// CompositeHealthChecker runs every registered check concurrently.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]registeredCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a checker with a 5s per-check timeout.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]registeredCheck),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the per-check timeout.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck registers a critical check, replacing one with the same name.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(name, check, false)
}

// AddOptionalCheck registers a check whose failure only degrades the service.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(name, check, true)
}

func (c *CompositeHealthChecker) add(name string, check HealthCheckFunc, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check, optional: optional}
}

// RemoveCheck unregisters a check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check runs all checks and aggregates them.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusOK,
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := runCheck(ctx, check, timeout)

			mu.Lock()
			status.Checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	var failed, degraded []string
	for name, result := range status.Checks {
		switch {
		case result.Healthy:
		case result.Optional:
			degraded = append(degraded, name)
		default:
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	sort.Strings(degraded)

	switch {
	case len(failed) > 0:
		status.Status = StatusDown
		status.Healthy = false
		status.Ready = false
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	case len(degraded) > 0:
		status.Status = StatusDegraded
		status.Message = "Running degraded: " + strings.Join(degraded, ", ")
	default:
		status.Message = "All checks passed"
	}

	return status
}

func runCheck(ctx context.Context, check registeredCheck, timeout time.Duration) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := check.fn(checkCtx)

	result := CheckResult{
		Healthy:  err == nil,
		Optional: check.optional,
		Message:  "OK",
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

var (
	errSchedulerStopped = errors.New("scheduler is not running")
	errBreakerOpen      = errors.New("circuit breaker is open")
)

// Pinger is implemented by the postgres, sqlite and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck creates a health check that pings a store or cache.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// NewSchedulerCheck reports unhealthy when the scheduler loop has stopped.
func NewSchedulerCheck(running func() bool) HealthCheckFunc {
	return func(context.Context) error {
		if !running() {
			return errSchedulerStopped
		}
		return nil
	}
}

// NewBreakerCheck fails while open reports true.
func NewBreakerCheck(open func() bool) HealthCheckFunc {
	return func(context.Context) error {
		if open() {
			return errBreakerOpen
		}
		return nil
	}
}
