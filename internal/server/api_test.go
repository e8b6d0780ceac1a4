package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/classifier"
	"github.com/lewisedginton/attendance_bot/internal/extractor"
	"github.com/lewisedginton/attendance_bot/internal/monitoring"
	"github.com/lewisedginton/attendance_bot/internal/persistence/sqlite"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/internal/query"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

type failingQueries struct{}

func (failingQueries) Run(context.Context, string) (query.Params, string, error) {
	return query.Params{}, "", errors.New("search failed\nwith detail")
}

type response struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp string          `json:"timestamp"`
}

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNopLogger()

	store, err := sqlite.Open(ctx, ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p, err := prompts.Load(ctx, nil, log)
	require.NoError(t, err)

	return NewAPI(APIConfig{
		Classifier: classifier.New(nil, p, log, nil),
		Extractor:  extractor.New(nil, p, log, nil),
		Queries:    query.NewService(nil, p, store, log, nil),
		Health: monitoring.NewHealthMonitor(monitoring.Config{
			Logger:           log,
			Version:          "test",
			Store:            store,
			FailureThreshold: 1,
		}),
		Logger: log,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestAPIClassify(t *testing.T) {
	h := newTestAPI(t)

	code, out := do(t, h, http.MethodPost, "/api/v1/classify", `{"message":"working from home today"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Timestamp)

	var c attendance.Classification
	require.NoError(t, json.Unmarshal(out.Data, &c))
	assert.Equal(t, attendance.CategoryWFH, c.Category)
	assert.Equal(t, attendance.SourceFallback, c.Source)
}

func TestAPIExtract(t *testing.T) {
	h := newTestAPI(t)

	code, out := do(t, h, http.MethodPost, "/api/v1/extract", `{"message":"on leave today, feeling sick"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)

	var d attendance.Details
	require.NoError(t, json.Unmarshal(out.Data, &d))
	assert.Equal(t, "on leave today, feeling sick", d.OriginalMessage)
	assert.False(t, d.StartDate.IsZero())
}

func TestAPIQuery(t *testing.T) {
	h := newTestAPI(t)

	code, out := do(t, h, http.MethodPost, "/api/v1/query", `{"query":"who is on leave today"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)

	var q struct {
		Params query.Params `json:"params"`
		Text   string       `json:"text"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &q))
	assert.NotEmpty(t, q.Text)
}

func TestAPIValidation(t *testing.T) {
	h := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
		errMsg string
	}{
		{"invalid json", http.MethodPost, "/api/v1/classify", `{"message":`, http.StatusBadRequest, "Invalid JSON body"},
		{"blank message", http.MethodPost, "/api/v1/extract", `{"message":"   "}`, http.StatusBadRequest, "Message is required"},
		{"blank query", http.MethodPost, "/api/v1/query", `{}`, http.StatusBadRequest, "Query is required"},
		{"unknown route", http.MethodGet, "/api/v1/nope", ``, http.StatusNotFound, "Endpoint not found"},
		{"wrong method", http.MethodGet, "/api/v1/classify", ``, http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			assert.False(t, out.Success)
			assert.Equal(t, tt.errMsg, out.Error)
		})
	}
}

func TestAPIInternalError(t *testing.T) {
	log := logger.NewNopLogger()
	h := NewAPI(APIConfig{Queries: failingQueries{}, Logger: log})

	code, out := do(t, h, http.MethodPost, "/api/v1/query", `{"query":"who is out"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "search failed", out.Error)
}

func TestAPIHealthRoutes(t *testing.T) {
	h := newTestAPI(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
