package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
)

type contextKey string

const CallerKey contextKey = "caller"

// AuthValidator resolves a bearer token to an already-authenticated caller.
// Issuing and rotating tokens is an external collaborator's job.
type AuthValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.Caller, error)
}

// BearerAuth requires a valid bearer token and stores the caller in context.
func BearerAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				api.Error(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			caller, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalBearerAuth resolves a caller when a token is presented but lets
// anonymous requests through. Used for the public read tier of vector
// search; handlers decide what anonymous callers may see.
func OptionalBearerAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// GetCaller returns the caller from context; anonymous when unset.
func GetCaller(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(CallerKey).(domain.Caller)
	return caller
}
