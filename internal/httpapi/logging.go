package httpapi

import (
	"expvar"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	requestsTotal   = expvar.NewInt("requests_total")
	requestsErrors  = expvar.NewInt("requests_errors_total")
	requestsLimited = expvar.NewInt("requests_rate_limited_total")
	clockActions    = expvar.NewInt("clock_actions_total")
	clockFailures   = expvar.NewInt("clock_failures_total")
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware assigns an X-Request-ID when the caller sent none, echoes
// it on the response and tags the active span with it.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("portal.request_id", requestID))

		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		duration := time.Since(start)
		requestsTotal.Add(1)
		if writer.status >= http.StatusBadRequest {
			requestsErrors.Add(1)
		}
		if writer.status == http.StatusTooManyRequests {
			requestsLimited.Add(1)
		}
		log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s", r.Method, r.URL.Path, writer.status, duration.Milliseconds(), requestID)
	})
}
