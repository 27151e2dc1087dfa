package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/service-desk/pkg/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

// RequestID reuses an inbound X-Trace-ID or mints one, and exposes it both to
// the context logger and to chi's request id lookup.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, traceID)
		ctx = logger.With(ctx, "traceID", traceID)

		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
