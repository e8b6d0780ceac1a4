package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheck struct {
	name  string
	err   error
	sleep time.Duration
}

func (s *stubCheck) Name() string { return s.name }

func (s *stubCheck) Check(ctx context.Context) error {
	if s.sleep > 0 {
		select {
		case <-time.After(s.sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestNewDefaults(t *testing.T) {
	h := New()
	assert.Equal(t, 5*time.Second, h.timeout)
	assert.Equal(t, 3, h.failureThreshold)

	h = New(WithTimeout(time.Second), WithFailureThreshold(0))
	assert.Equal(t, time.Second, h.timeout)
	assert.Equal(t, 3, h.failureThreshold, "non-positive threshold ignored")
}

func TestNoChecksIsHealthy(t *testing.T) {
	status, err := New().CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestFailureThreshold(t *testing.T) {
	check := &stubCheck{name: "database", err: errors.New("connection refused")}
	h := New(WithFailureThreshold(2))
	h.AddReadinessCheck(check)

	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err, "first failure is tolerated")
	assert.True(t, status.Healthy)

	status, err = h.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Equal(t, "connection refused", status.Checks[0].Error)

	check.err = nil
	status, err = h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestCheckTimeout(t *testing.T) {
	h := New(WithTimeout(20*time.Millisecond), WithFailureThreshold(1))
	h.AddLivenessCheck(&stubCheck{name: "slow", sleep: time.Second})

	start := time.Now()
	status, err := h.CheckLiveness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCheckFunc(t *testing.T) {
	c := NewCheckFunc("slack", func(context.Context) error { return nil })
	assert.Equal(t, "slack", c.Name())
	assert.NoError(t, c.Check(context.Background()))
}

func TestHandlers(t *testing.T) {
	h := New(WithFailureThreshold(1))
	h.AddLivenessCheck(&stubCheck{name: "process"})
	h.AddReadinessCheck(&stubCheck{name: "database", err: errors.New("down")})

	rec := httptest.NewRecorder()
	h.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var live HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	assert.Equal(t, "healthy", live.Status)
	assert.Equal(t, "ok", live.Checks["process"].Status)

	rec = httptest.NewRecorder()
	h.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var ready HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "unhealthy", ready.Status)
	assert.Equal(t, "error", ready.Checks["database"].Status)
	assert.Equal(t, "down", ready.Checks["database"].Error)
	assert.Contains(t, ready.Message, "database")
}
