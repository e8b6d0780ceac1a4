package httpmiddleware

import (
	"net/http"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// CorrelationID puts a correlation ID on the request context and echoes it
// in the response. A well-formed incoming X-Correlation-ID is kept.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, id := logger.EnsureHTTPCorrelationID(r)
		w.Header().Set(logger.CorrelationIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
