package logger

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// HTTPMiddleware logs every request with its status, size and latency.
func (l *logger) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r, id := EnsureHTTPCorrelationID(r)

		reqLog := l.WithFields(
			ClientIPField(r.RemoteAddr),
			HTTPMethodField(r.Method),
			HTTPPathField(r.URL.Path),
			CorrelationIDField(id),
		)
		reqLog.Debug("HTTP request received")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		reqLog.Info("HTTP response sent",
			HTTPStatusField(rec.status),
			IntField("response_bytes", rec.bytes),
			DurationField("duration", time.Since(start)),
		)
	})
}

// GrpcRequestsInterceptor logs unary gRPC calls.
// Note: interface{} usage required by gRPC library signature
func (l *logger) GrpcRequestsInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	ctx, id := EnsureCorrelationID(ctx)
	callLog := l.WithFields(GrpcMethodField(info.FullMethod), CorrelationIDField(id))

	resp, err := handler(ctx, req)

	fields := []LogField{
		DurationField("duration", time.Since(start)),
		StringField("grpc_code", status.Code(err).String()),
	}
	if err != nil {
		callLog.Error("gRPC request failed", append(fields, ErrorField(err))...)
	} else {
		callLog.Debug("gRPC request completed", fields...)
	}
	return resp, err
}
