package middleware

import (
	"net/http"

	"github.com/R3E-Network/model_layer/internal/logging"
)

// TraceHeader carries the trace id in both directions.
const TraceHeader = "X-Trace-ID"

// TracingMiddleware adds a trace ID to every request
type TracingMiddleware struct{}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware() *TracingMiddleware {
	return &TracingMiddleware{}
}

// Handler returns the tracing middleware handler
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Generate or extract trace ID
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" || len(traceID) > 128 {
			traceID = logging.NewTraceID()
		}

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), traceID)))
	})
}
