package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

const panicPage = `<!doctype html><html><head><title>Server error</title></head>` +
	`<body><h1>Something went wrong</h1><p>The error has been logged. <a href="/dashboard">Back to the dashboard</a></p></body></html>`

// RecoveryMiddleware provides panic recovery with detailed logging
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"url", r.URL.String(),
						"stack", string(debug.Stack()))

					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(panicPage))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
