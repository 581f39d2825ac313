package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/identity/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, trace_id and
// span_id (and user_id once Auth has run) in the request context. Mount it
// after RequestLogging and Tracing; handlers read it with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
