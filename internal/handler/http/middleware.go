package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/pkg/httputil"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const actorKey contextKey = "actor"

// actorFromHeaders resolves the caller from the identity headers injected by
// the gateway after authentication. X-Consumer-ID wins if both are present.
func actorFromHeaders(r *http.Request) (domain.Actor, bool) {
	if id := r.Header.Get("X-Consumer-ID"); id != "" {
		return domain.ConsumerActor(id), true
	}
	if id := r.Header.Get("X-Seller-ID"); id != "" {
		return domain.SellerActor(id), true
	}
	return domain.Actor{}, false
}

// RequireActor rejects requests carrying neither identity header and stores
// the resolved actor in the request context.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromHeaders(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// RequireConsumer allows only consumer actors through.
func RequireConsumer(next http.Handler) http.Handler {
	return requireKind(domain.ActorConsumer, "consumer identity required", next)
}

// RequireSeller allows only seller actors through.
func RequireSeller(next http.Handler) http.Handler {
	return requireKind(domain.ActorSeller, "seller identity required", next)
}

func requireKind(kind domain.ActorKind, message string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromHeaders(r)
		if !ok || actor.Kind != kind {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// actorFromContext extracts the authenticated actor placed by the middleware.
func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok && actor.ID != ""
}

// ContentTypeJSON enforces that requests with a body are JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
