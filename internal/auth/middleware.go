package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type contextKey string

const actorKey contextKey = "actor"

// Authenticator resolves a plain bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, plain string) (*models.User, error)
}

// Middleware resolves the bearer token, when present, and stores the actor
// in the request context. Requests with a bad token continue anonymously;
// RequireActor turns them away on protected routes.
func Middleware(authn Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if errors.Is(err, ErrMissingToken) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				log.LogSecurity("BAD_AUTH_HEADER", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				next.ServeHTTP(w, r)
				return
			}

			user, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				if !errors.Is(err, utils.ErrUnauthenticated) {
					utils.WriteError(w, r, log, err)
					return
				}
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s", r.Method, r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user)))
		})
	}
}

// RequireActor answers 401 unless Middleware resolved an actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFrom(r.Context()) == nil {
			utils.WriteError(w, r, nil, utils.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithActor(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, actorKey, user)
}

// ActorFrom returns the authenticated user, or nil for anonymous requests.
func ActorFrom(ctx context.Context) *models.User {
	if user, ok := ctx.Value(actorKey).(*models.User); ok {
		return user
	}
	return nil
}
