// Package health runs registered dependency checks in parallel and serves
// the aggregate as liveness and readiness probes. A required dependency that
// fails marks the service down; an optional one only degrades it.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check probes one dependency. It should return promptly once ctx is done.
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

// PingCheck adapts a ping function. A failing required dependency reports
// StatusDown, a failing optional one StatusDegraded.
func PingCheck(ping func(ctx context.Context) error, required bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDegraded
			if required {
				status = StatusDown
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Checker runs the registered checks. Each check gets at most CheckTimeout.
type Checker struct {
	CheckTimeout time.Duration

	mu      sync.RWMutex
	checks  map[string]Check
	started time.Time
	logger  *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		CheckTimeout: 2 * time.Second,
		checks:       make(map[string]Check),
		started:      time.Now(),
		logger:       slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently. The overall status is the worst
// component status; a check that overruns CheckTimeout is judged by what it
// returns after its context expires.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]Check, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.CheckTimeout)
			defer cancel()
			start := time.Now()
			results[i] = check(cctx)
			results[i].Latency = time.Since(start).Round(time.Millisecond).String()
			return nil
		})
	}
	g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, res := range results {
		report.Components[names[i]] = res
		switch {
		case res.Status == StatusDown:
			report.Status = StatusDown
		case res.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		}
		if res.Status != StatusUp {
			c.logger.Warn("health check not up", "check", names[i], "status", res.Status, "message", res.Message)
		}
	}
	return report
}

// LiveHandler answers 200 as long as the process serves HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler fails the probe only on StatusDown; a degraded service still
// answers queries.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
