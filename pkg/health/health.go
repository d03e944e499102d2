// Package health runs registered dependency probes concurrently and serves
// the aggregate as liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check is a function that probes a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// DefaultCheckTimeout bounds each probe when the Checker has no other limit.
const DefaultCheckTimeout = 3 * time.Second

// Checker runs registered checks concurrently. Each check gets its own
// deadline so one hung dependency cannot stall the whole report.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]Check
	checkTimeout time.Duration
	last         Status
	logger       *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks:       make(map[string]Check),
		checkTimeout: DefaultCheckTimeout,
		logger:       slog.Default().With("component", "health"),
	}
}

// Pinger is any dependency that can be probed with a round trip: posting
// stores, the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports down when p.Ping fails.
func PingCheck(p Pinger) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := p.Ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// OptionalCheck wraps check so a failure only degrades the report. Used for
// dependencies the service can run without, such as analytics transport.
func OptionalCheck(check Check) Check {
	return func(ctx context.Context) ComponentHealth {
		result := check(ctx)
		if result.Status == StatusDown {
			result.Status = StatusDegraded
		}
		return result
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check and reports the worst component status. The
// first time the overall status changes it is logged.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]Check, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	timeout := c.checkTimeout
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			results[i] = check(checkCtx)
			results[i].Latency = time.Since(start).Round(time.Millisecond).String()
		}()
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, result := range results {
		report.Components[names[i]] = result
		switch {
		case result.Status == StatusDown:
			report.Status = StatusDown
		case result.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		}
	}

	c.mu.Lock()
	changed := c.last != "" && c.last != report.Status
	c.last = report.Status
	c.mu.Unlock()
	if changed {
		c.logger.Warn("health status changed", "status", report.Status, "components", report.Components)
	}
	return report
}

// Mount registers GET /health/live and GET /health/ready on mux.
func (c *Checker) Mount(mux *http.ServeMux) {
	mux.Handle("GET /health/live", c.LiveHandler())
	mux.Handle("GET /health/ready", c.ReadyHandler())
}

// LiveHandler answers 200 as long as the process serves HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.write(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 only when a required component is down; a
// degraded report still counts as ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		c.write(w, status, report)
	}
}

func (c *Checker) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.logger.Error("failed to write health response", "error", err)
	}
}
