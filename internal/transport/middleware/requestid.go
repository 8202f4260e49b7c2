package middleware

import (
	"net/http"

	"github.com/frahmantamala/herasat/pkg/logger"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// RequestID tags the request with a trace id, taken from the caller when
// present, and binds it to the context logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = middleware.GetReqID(r.Context())
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(traceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
