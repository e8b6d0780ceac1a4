// Package health runs liveness and readiness checks and exposes them over
// HTTP and the grpc.health.v1 protocol.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// Check is a single named check. A nil error means healthy.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a plain function to Check.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string                    { return c.name }
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckResult is the outcome of one check run.
type CheckResult struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// HealthStatus aggregates a check run.
type HealthStatus struct {
	Healthy bool
	Checks  []CheckResult
}

// HealthChecker owns the registered checks. A check only reports unhealthy
// after failureThreshold consecutive failures.
type HealthChecker struct {
	mu               sync.RWMutex
	liveness         []Check
	readiness        []Check
	failures         map[string]int
	timeout          time.Duration
	failureThreshold int
	logger           logger.Logger
}

type Option func(*HealthChecker)

// WithTimeout bounds every individual check. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(h *HealthChecker) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(h *HealthChecker) { h.logger = l }
}

// WithFailureThreshold sets how many consecutive failures flip a check. Default 3.
func WithFailureThreshold(n int) Option {
	return func(h *HealthChecker) {
		if n > 0 {
			h.failureThreshold = n
		}
	}
}

func New(opts ...Option) *HealthChecker {
	h := &HealthChecker{
		failures:         make(map[string]int),
		timeout:          5 * time.Second,
		failureThreshold: 3,
		logger:           logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck registers a check deciding whether the process should be restarted.
func (h *HealthChecker) AddLivenessCheck(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, c)
}

// AddReadinessCheck registers a check deciding whether the bot can take traffic.
func (h *HealthChecker) AddReadinessCheck(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, c)
}

func (h *HealthChecker) CheckLiveness(ctx context.Context) (*HealthStatus, error) {
	h.mu.RLock()
	checks := append([]Check(nil), h.liveness...)
	h.mu.RUnlock()
	return h.run(ctx, checks)
}

func (h *HealthChecker) CheckReadiness(ctx context.Context) (*HealthStatus, error) {
	h.mu.RLock()
	checks := append([]Check(nil), h.readiness...)
	h.mu.RUnlock()
	return h.run(ctx, checks)
}

func (h *HealthChecker) run(ctx context.Context, checks []Check) (*HealthStatus, error) {
	status := &HealthStatus{Healthy: true, Checks: make([]CheckResult, len(checks))}

	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			status.Checks[i] = h.runOne(ctx, c)
		}(i, c)
	}
	wg.Wait()

	var failed []string
	for _, r := range status.Checks {
		if !r.Healthy {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		status.Healthy = false
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

func (h *HealthChecker) runOne(parent context.Context, c Check) CheckResult {
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	res := CheckResult{Name: c.Name(), Healthy: true, Latency: time.Since(start)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		h.failures[res.Name] = 0
		return res
	}

	h.failures[res.Name]++
	n := h.failures[res.Name]
	fields := []logger.LogField{
		logger.StringField("check", res.Name),
		logger.ErrorField(err),
		logger.IntField("failures", n),
	}
	if n < h.failureThreshold {
		h.logger.Debug("Health check failed below threshold", fields...)
		return res
	}

	res.Healthy = false
	res.Error = err.Error()
	h.logger.Warn("Health check failed", fields...)
	return res
}
