package middleware

import (
	"net/http"

	"github.com/davidbz/ember/internal/observability"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Trace gives every request a trace, span and request id. A request id sent
// by the caller is kept so a client can follow its turn through the relay.
// Health probes are not logged.
func Trace() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := observability.GenerateTraceID()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = observability.GenerateRequestID()
			}

			ctx := observability.WithTraceID(r.Context(), traceID)
			ctx = observability.WithSpanID(ctx, observability.GenerateSpanID())
			ctx = observability.WithRequestID(ctx, requestID)

			w.Header().Set("X-Trace-Id", traceID)
			w.Header().Set(RequestIDHeader, requestID)

			if r.URL.Path != "/health" {
				observability.FromContext(ctx).Info("request started",
					observability.String("method", r.Method),
					observability.String("path", r.URL.Path),
					observability.String("remote_addr", r.RemoteAddr),
				)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
