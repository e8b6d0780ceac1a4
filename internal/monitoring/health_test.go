package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type readyFlag struct{ atomic.Bool }

func (r *readyFlag) Ready() bool { return r.Load() }

func get(t *testing.T, h http.Handler, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthMonitor(t *testing.T) {
	slack := &readyFlag{}
	db := &pinger{}
	hm := NewHealthMonitor(Config{
		Logger:           logger.NewNopLogger(),
		Version:          "1.2.3",
		Store:            db,
		Slack:            slack,
		FailureThreshold: 1,
	})
	r := chi.NewRouter()
	hm.Register(r)

	code, _ := get(t, r, "/health/live")
	assert.Equal(t, http.StatusOK, code)

	code, body := get(t, r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code, "slack not connected yet")
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "error", checks["slack_connector"].(map[string]interface{})["status"])
	assert.Equal(t, "ok", checks["database"].(map[string]interface{})["status"])

	slack.Store(true)
	code, _ = get(t, r, "/health/ready")
	assert.Equal(t, http.StatusOK, code)

	code, body = get(t, r, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	hm.MarkShuttingDown()
	code, body = get(t, r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "not_ready", body["readiness"].(map[string]interface{})["status"])
}

func TestHealthMonitorDatabaseAndWebhook(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer webhook.Close()

	hm := NewHealthMonitor(Config{
		Logger:           logger.NewNopLogger(),
		Store:            pinger{err: errors.New("connection refused")},
		WebhookURL:       webhook.URL,
		FailureThreshold: 1,
	})

	status, err := hm.Checker().CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
	assert.Contains(t, err.Error(), "llm_webhook")
	assert.False(t, status.Healthy)
}
