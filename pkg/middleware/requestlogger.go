package middleware

import (
	"log/slog"
	"net/http"

	"github.com/fieldmarket/marketplace/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// actor_id, trace_id, and span_id, and stores it in context so handlers can
// retrieve it with logger.FromContext.
//
// Mount AFTER RequestLogging (sets correlation_id) and Tracing (sets the span
// context). The actor id comes from the X-Consumer-ID or X-Seller-ID header,
// whichever is present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			actorID := r.Header.Get("X-Consumer-ID")
			if actorID == "" {
				actorID = r.Header.Get("X-Seller-ID")
			}
			if actorID != "" {
				ctx = logger.WithActorID(ctx, actorID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
