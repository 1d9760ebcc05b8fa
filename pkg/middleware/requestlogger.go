package middleware

import (
	"log/slog"
	"net/http"

	"github.com/X-culture24/my-farm/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, user_id and
// trace ids in the request context. Mount it after RequestLogging, Tracing
// and Auth so those fields are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logger.UserIDFromContext(ctx) == "" {
				if id := UserIDFromContext(ctx); id != "" {
					ctx = logger.WithUserID(ctx, id)
				}
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
