// Package httpmiddleware assembles the chi middleware stack used by the API.
package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/unrolled/secure"
)

// Config selects which layers ApplyToRouter installs.
type Config struct {
	Logger   logger.Logger
	CORS     *CORSConfig
	Security *secure.Options
	Timeout  time.Duration
	// Metrics, when set, wraps every request (see metrics.HTTPMiddleware).
	Metrics func(http.Handler) http.Handler

	EnableCorrelationID bool
	EnableLogging       bool
	EnableRecovery      bool
	EnableCORS          bool
	EnableSecurity      bool
	EnableCompression   bool
	EnableHeartbeat     bool
	EnableRealIP        bool
	EnableTimeout       bool
}

// DefaultConfig enables everything except logging and metrics, which need
// their collaborators set explicitly.
func DefaultConfig() Config {
	cors := DefaultCORSConfig()
	return Config{
		CORS:    &cors,
		Timeout: 60 * time.Second,

		EnableCorrelationID: true,
		EnableRecovery:      true,
		EnableCORS:          true,
		EnableSecurity:      true,
		EnableCompression:   true,
		EnableHeartbeat:     true,
		EnableRealIP:        true,
		EnableTimeout:       true,
	}
}

// ApplyToRouter installs the configured layers, outermost first:
// correlation ID, security headers, real IP, metrics, logging, recovery,
// CORS, timeout, compression and the /ping heartbeat.
func ApplyToRouter(router chi.Router, cfg Config) {
	if cfg.EnableCorrelationID {
		router.Use(CorrelationID)
	}
	if cfg.EnableSecurity {
		router.Use(Security(cfg.Security))
	}
	if cfg.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics)
	}
	if cfg.EnableLogging && cfg.Logger != nil {
		router.Use(cfg.Logger.HTTPMiddleware)
	}
	if cfg.EnableRecovery {
		router.Use(Recovery(cfg.Logger))
	}
	if cfg.EnableCORS && cfg.CORS != nil {
		router.Use(CORS(*cfg.CORS))
	}
	if cfg.EnableTimeout && cfg.Timeout > 0 {
		router.Use(middleware.Timeout(cfg.Timeout))
	}
	if cfg.EnableCompression {
		router.Use(middleware.Compress(5))
	}
	if cfg.EnableHeartbeat {
		router.Use(middleware.Heartbeat("/ping"))
	}
}
