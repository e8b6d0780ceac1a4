// Package metrics exposes Prometheus collectors for the API surface and the
// attendance pipeline on a private registry.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	subsystem       = "app"
	domainSubsystem = "attendance"
)

var durationBuckets = []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0}

// Metrics groups every collector the bot registers.
// All Observe* helpers are safe to call on a nil *Metrics.
type Metrics struct {
	reg *prometheus.Registry
	mu  sync.Mutex

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPRequestsCounters     map[int]prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram

	TotalGrpcRequestsCounter prometheus.Counter
	GrpcRequestsCounters     map[int]prometheus.Counter

	Messages    *prometheus.CounterVec
	LLMRequests *prometheus.CounterVec
	Fallbacks   *prometheus.CounterVec
	Queries     *prometheus.CounterVec
	Reconciles  *prometheus.CounterVec

	log logger.Logger
}

// NewMetrics builds the registry. Domain counters are always registered; the
// HTTP and gRPC families only when asked for.
func NewMetrics(httpCounters, grpcCounters bool, l logger.Logger) *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry(), log: l}

	if httpCounters {
		m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_http_requests",
			Help:      "Total HTTP requests",
		})
		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   durationBuckets,
		})
		m.HTTPRequestsCounters = make(map[int]prometheus.Counter)
		m.reg.MustRegister(m.TotalHTTPRequestsCounter, m.HTTPDurationHistogram)
	}
	if grpcCounters {
		m.TotalGrpcRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_grpc_requests",
			Help:      "Total gRPC requests",
		})
		m.GrpcRequestsCounters = make(map[int]prometheus.Counter)
		m.reg.MustRegister(m.TotalGrpcRequestsCounter)
	}

	m.Messages = m.counterVec("messages_total", "Slack messages processed, by outcome", "outcome")
	m.LLMRequests = m.counterVec("llm_requests_total", "LLM completions, by provider, task and result", "provider", "task", "result")
	m.Fallbacks = m.counterVec("fallbacks_total", "Deterministic fallbacks taken, by task", "task")
	m.Queries = m.counterVec("queries_total", "Natural-language queries answered, by query type", "type")
	m.Reconciles = m.counterVec("reconcile_total", "Record reconciliation actions", "action")
	return m
}

func (m *Metrics) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: domainSubsystem,
		Name:      name,
		Help:      help,
	}, labels)
	m.reg.MustRegister(c)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen serves /metrics on port until ctx is cancelled.
func (m *Metrics) Listen(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", http.NotFoundHandler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		m.log.Info("Starting metrics listener", logger.IntField("port", port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		m.log.Info("Stopping metrics listener")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// AddCustomMetric registers an extra collector on the private registry.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

func (m *Metrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLM(provider, task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LLMRequests.WithLabelValues(provider, task, result).Inc()
}

func (m *Metrics) ObserveFallback(task string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(task).Inc()
}

func (m *Metrics) ObserveQuery(queryType string) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(queryType).Inc()
}

func (m *Metrics) ObserveReconcile(action string) {
	if m == nil {
		return
	}
	m.Reconciles.WithLabelValues(action).Inc()
}

// IncrementHTTPResponseCounter bumps the per-status counter, creating it on first use.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	m.mu.Lock()
	c, ok := m.HTTPRequestsCounters[code]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      fmt.Sprintf("total_%d_http_responses", code),
			Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
		})
		m.reg.MustRegister(c)
		m.HTTPRequestsCounters[code] = c
	}
	m.mu.Unlock()
	c.Inc()
}

// IncrementGrpcResponseCounter bumps the per-code counter, creating it on first use.
func (m *Metrics) IncrementGrpcResponseCounter(code codes.Code) {
	m.mu.Lock()
	c, ok := m.GrpcRequestsCounters[int(code)]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      fmt.Sprintf("total_%d_grpc_responses", code),
			Help:      fmt.Sprintf("Total %s gRPC responses returned", code.String()),
		})
		m.reg.MustRegister(c)
		m.GrpcRequestsCounters[int(code)] = c
	}
	m.mu.Unlock()
	c.Inc()
}

// GrpcRequestsInterceptor counts unary gRPC calls by status code.
// Note: interface{} usage required by gRPC library signature
func (m *Metrics) GrpcRequestsInterceptor(
	ctx context.Context,
	req interface{},
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	m.TotalGrpcRequestsCounter.Inc()
	resp, err := handler(ctx, req)
	m.IncrementGrpcResponseCounter(status.Code(err))
	return resp, err
}

// HTTPMiddleware records request counts and latency.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
