// Package admin guards operator endpoints with a shared token.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/platform/httputil"
	"relaygate/pkg/requestcontext"
)

const (
	HeaderAdminToken = "X-Admin-Token"
	HeaderActorID    = "X-Admin-Actor-ID"

	// UnknownActor is recorded when an admin call names no actor.
	UnknownActor = "unknown"

	maxActorIDLength = 64
)

type contextKeyAdminActorID struct{}

// GetAdminActorID returns the actor recorded by RequireAdminToken, or "" off
// the admin routes.
func GetAdminActorID(ctx context.Context) string {
	actorID, _ := ctx.Value(contextKeyAdminActorID{}).(string)
	return actorID
}

// WithAdminActorID stores actorID the way RequireAdminToken does.
func WithAdminActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyAdminActorID{}, actorID)
}

// RequireAdminToken admits requests presenting expectedToken either in
// X-Admin-Token or as a bearer token. An empty expectedToken locks the routes.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !tokenMatches(presentedToken(r), expectedToken) {
				logger.WarnContext(ctx, "admin_token_rejected",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdminActorID(ctx, actorID(r))))
		})
	}
}

func presentedToken(r *http.Request) string {
	if token := r.Header.Get(HeaderAdminToken); token != "" {
		return token
	}
	if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(auth)
	}
	return ""
}

func tokenMatches(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

func actorID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if id == "" {
		return UnknownActor
	}
	if len(id) > maxActorIDLength {
		id = id[:maxActorIDLength]
	}
	return id
}
