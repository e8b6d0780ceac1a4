package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/attendance_bot/internal/bot"
	"github.com/lewisedginton/attendance_bot/internal/monitoring"
	"github.com/lewisedginton/attendance_bot/internal/query"
	"github.com/lewisedginton/attendance_bot/pkg/httpmiddleware"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

const maxBodyBytes = 64 << 10

// QueryRunner parses and executes a natural-language query.
type QueryRunner interface {
	Run(ctx context.Context, text string) (query.Params, string, error)
}

// APIConfig wires the JSON API.
type APIConfig struct {
	Classifier     bot.Classifier
	Extractor      bot.Extractor
	Queries        QueryRunner
	Health         *monitoring.HealthMonitor
	Logger         logger.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Timeout        time.Duration
}

type api struct {
	cfg APIConfig
	log logger.Logger
}

type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Params query.Params `json:"params"`
	Text   string       `json:"text"`
}

// NewAPI builds the router serving /api/v1 and the health endpoints.
func NewAPI(cfg APIConfig) http.Handler {
	a := &api{cfg: cfg, log: cfg.Logger}

	mw := httpmiddleware.DefaultConfig()
	mw.Logger = cfg.Logger
	mw.EnableLogging = true
	if cfg.Timeout > 0 {
		mw.Timeout = cfg.Timeout
	}
	if len(cfg.AllowedOrigins) > 0 {
		mw.CORS.AllowedOrigins = cfg.AllowedOrigins
	}
	if cfg.Metrics != nil && cfg.Metrics.TotalHTTPRequestsCounter != nil {
		mw.Metrics = cfg.Metrics.HTTPMiddleware()
	}

	r := chi.NewRouter()
	httpmiddleware.ApplyToRouter(r, mw)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/classify", a.classify)
		r.Post("/extract", a.extract)
		r.Post("/query", a.query)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		a.fail(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		a.fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (a *api) classify(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !a.decode(w, r, &req) || !a.require(w, req.Message, "Message is required") {
		return
	}
	out, err := a.cfg.Classifier.Classify(r.Context(), req.Message)
	if err != nil {
		a.internal(w, r, "classify", err)
		return
	}
	a.ok(w, out)
}

func (a *api) extract(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !a.decode(w, r, &req) || !a.require(w, req.Message, "Message is required") {
		return
	}
	out, err := a.cfg.Extractor.Extract(r.Context(), req.Message)
	if err != nil {
		a.internal(w, r, "extract", err)
		return
	}
	a.ok(w, out)
}

func (a *api) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !a.decode(w, r, &req) || !a.require(w, req.Query, "Query is required") {
		return
	}
	params, text, err := a.cfg.Queries.Run(r.Context(), req.Query)
	if err != nil {
		a.internal(w, r, "query", err)
		return
	}
	a.ok(w, queryResponse{Params: params, Text: text})
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		a.fail(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (a *api) require(w http.ResponseWriter, value, msg string) bool {
	if strings.TrimSpace(value) == "" {
		a.fail(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (a *api) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.GetLoggerFromContext(r.Context(), a.log).Error("API request failed",
		logger.StringField("operation", op), logger.ErrorField(err))
	a.fail(w, http.StatusInternalServerError, strings.SplitN(err.Error(), "\n", 2)[0])
}

func (a *api) ok(w http.ResponseWriter, data interface{}) {
	a.write(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (a *api) fail(w http.ResponseWriter, code int, msg string) {
	a.write(w, code, envelope{Success: false, Error: msg})
}

func (a *api) write(w http.ResponseWriter, code int, body envelope) {
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("Failed to encode response", logger.ErrorField(err))
	}
}
