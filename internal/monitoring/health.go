// Package monitoring assembles the bot's liveness and readiness checks.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/attendance_bot/pkg/health"
	"github.com/lewisedginton/attendance_bot/pkg/health/checkers"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// Health status constants
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusReady     = "ready"
	statusNotReady  = "not_ready"
)

var (
	errSlackDisconnected = errors.New("slack socket mode not connected")
	errShuttingDown      = errors.New("shutting down")
)

// ReadyReporter is implemented by connectors that know whether they are connected.
type ReadyReporter interface {
	Ready() bool
}

// Config holds configuration for the health monitor
type Config struct {
	Logger  logger.Logger
	Version string
	// Store is pinged for readiness.
	Store checkers.Pinger
	// Slack is optional; leave nil when the connector is disabled.
	Slack ReadyReporter
	// WebhookURL, when set, is checked for reachability.
	WebhookURL       string
	Timeout          time.Duration
	FailureThreshold int
}

// HealthMonitor manages health checks and monitoring endpoints for the application
type HealthMonitor struct {
	checker      *health.HealthChecker
	logger       logger.Logger
	version      string
	startTime    time.Time
	shuttingDown atomic.Bool
}

func NewHealthMonitor(cfg Config) *HealthMonitor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	failureThreshold := cfg.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 3
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	hm := &HealthMonitor{
		checker: health.New(
			health.WithLogger(cfg.Logger),
			health.WithTimeout(timeout),
			health.WithFailureThreshold(failureThreshold),
		),
		logger:    cfg.Logger,
		version:   version,
		startTime: time.Now(),
	}

	hm.checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	hm.checker.AddReadinessCheck(health.NewCheckFunc("shutdown", func(context.Context) error {
		if hm.shuttingDown.Load() {
			return errShuttingDown
		}
		return nil
	}))
	if cfg.Store != nil {
		hm.checker.AddReadinessCheck(checkers.NewPingChecker("database", cfg.Store))
	}
	if cfg.Slack != nil {
		slack := cfg.Slack
		hm.checker.AddReadinessCheck(health.NewCheckFunc("slack_connector", func(context.Context) error {
			if !slack.Ready() {
				return errSlackDisconnected
			}
			return nil
		}))
	}
	if cfg.WebhookURL != "" {
		hm.checker.AddReadinessCheck(checkers.NewHTTPChecker("llm_webhook", cfg.WebhookURL, &http.Client{Timeout: timeout}))
	}
	return hm
}

// Checker exposes the underlying checker, e.g. for the gRPC health service.
func (hm *HealthMonitor) Checker() *health.HealthChecker {
	return hm.checker
}

// MarkShuttingDown fails readiness from now on so traffic drains first.
func (hm *HealthMonitor) MarkShuttingDown() {
	hm.shuttingDown.Store(true)
}

// HealthHandler returns a combined health endpoint that includes both liveness and readiness
// GET /health - Returns comprehensive health status
func (hm *HealthMonitor) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		livenessStatus, livenessErr := hm.checker.CheckLiveness(ctx)
		readinessStatus, readinessErr := hm.checker.CheckReadiness(ctx)

		liveness := map[string]interface{}{"status": statusHealthy, "checks": livenessStatus.Checks}
		readiness := map[string]interface{}{"status": statusReady, "checks": readinessStatus.Checks}
		response := map[string]interface{}{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"version":   hm.version,
			"liveness":  liveness,
			"readiness": readiness,
		}

		code := http.StatusOK
		if livenessErr != nil {
			liveness["status"] = statusUnhealthy
			liveness["error"] = livenessErr.Error()
			code = http.StatusServiceUnavailable
		}
		if readinessErr != nil {
			readiness["status"] = statusNotReady
			readiness["error"] = readinessErr.Error()
			code = http.StatusServiceUnavailable
		}
		if code != http.StatusOK {
			response["status"] = statusUnhealthy
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			hm.logger.Error("Failed to encode health response", logger.ErrorField(err))
		}
	}
}

// Register mounts /health, /health/live and /health/ready on r.
func (hm *HealthMonitor) Register(r chi.Router) {
	r.Get("/health", hm.HealthHandler())
	r.Get("/health/live", hm.checker.LivenessHandler())
	r.Get("/health/ready", hm.checker.ReadinessHandler())
}
