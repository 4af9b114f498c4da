package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"pathway/internal/httputil"
)

// Recovery converts a panic anywhere below it into a problem response
// instead of tearing down the connection without a reply.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("recovered from panic",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"stack", string(debug.Stack()),
					)

					httputil.RespondError(w, http.StatusInternalServerError, "unexpected server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
