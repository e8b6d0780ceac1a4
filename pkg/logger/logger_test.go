package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: InfoLevel, Service: "attendance-bot", Output: &buf})

	l.Info("record stored", UserIDField("U123"), CategoryField("wfh"), ConfidenceField(0.8))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["msg"] != "record stored" {
		t.Errorf("unexpected msg %v", e["msg"])
	}
	if e["service"] != "attendance-bot" {
		t.Errorf("unexpected service %v", e["service"])
	}
	if e["user_id"] != "U123" || e["category"] != "wfh" || e["confidence"] != "0.8" {
		t.Errorf("missing fields: %v", e)
	}
	if e["level"] != "info" {
		t.Errorf("unexpected level %v", e["level"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: WarnLevel, Output: &buf})

	l.Debug("nope")
	l.Info("nope")
	l.Warn("yes")
	l.Error("yes")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestWithFieldsIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Output: &buf})
	child := base.WithFields(StringField("k", "v"))

	base.Info("base")
	child.Info("child")

	entries := decodeLines(t, &buf)
	if _, ok := entries[0]["k"]; ok {
		t.Error("parent logger picked up child field")
	}
	if entries[1]["k"] != "v" {
		t.Error("child logger lost its field")
	}
}

func TestCallSiteFieldsOverrideInherited(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Output: &buf}).WithFields(StringField("stage", "classify"))
	l.Info("x", StringField("stage", "extract"))

	if got := decodeLines(t, &buf)[0]["stage"]; got != "extract" {
		t.Errorf("expected call-site value, got %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldHelpers(t *testing.T) {
	if f := Field("d", 2*time.Second); f.Value != "2s" {
		t.Errorf("duration stringified as %q", f.Value)
	}
	if f := Field("n", 42); f.Value != "42" {
		t.Errorf("int stringified as %q", f.Value)
	}
	if f := ErrorField(nil); f.Value != "<nil>" {
		t.Errorf("nil error stringified as %q", f.Value)
	}
	if f := ErrorField(errors.New("boom")); f.Key != "error" || f.Value != "boom" {
		t.Errorf("unexpected error field %+v", f)
	}
	if f := RecordIDField(7); f.Value != "7" {
		t.Errorf("record id stringified as %q", f.Value)
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	t.Run("reuses context value", func(t *testing.T) {
		ctx := WithCorrelationIDContext(context.Background(), "abc")
		_, id := EnsureCorrelationID(ctx)
		if id != "abc" {
			t.Errorf("expected abc, got %s", id)
		}
	})

	t.Run("reads valid uuid from metadata", func(t *testing.T) {
		want := uuid.New().String()
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(CorrelationIDMetadataKey, want))
		ctx, id := EnsureCorrelationID(ctx)
		if id != want || GetCorrelationIDFromContext(ctx) != want {
			t.Errorf("expected %s, got %s", want, id)
		}
	})

	t.Run("generates when metadata is garbage", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(CorrelationIDMetadataKey, "not-a-uuid"))
		_, id := EnsureCorrelationID(ctx)
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("expected generated uuid, got %s", id)
		}
	})
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Output: &buf})

	var seen string
	h := l.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query", nil))

	if seen == "" {
		t.Fatal("correlation id not propagated to handler")
	}
	entries := decodeLines(t, &buf)
	last := entries[len(entries)-1]
	if last["http_status"] != "418" || last["response_bytes"] != "2" || last["correlation_id"] != seen {
		t.Errorf("unexpected response log %v", last)
	}
}

func TestGrpcRequestsInterceptor(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Output: &buf})
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := l.GrpcRequestsInterceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		if GetCorrelationIDFromContext(ctx) == "" {
			t.Error("handler context lacks correlation id")
		}
		return nil, errors.New("down")
	})
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	entries := decodeLines(t, &buf)
	if entries[0]["grpc_method"] != info.FullMethod || entries[0]["level"] != "error" {
		t.Errorf("unexpected entry %v", entries[0])
	}
}
