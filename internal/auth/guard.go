package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cognito-labs/cognito-be/internal/models"
)

// accountKey is the context key for the resolved account.
type contextKey string

const accountKey = contextKey("account")

// Require resolves the request and checks, in order, that resolution
// succeeded, that the account is active, and that it holds the given scope.
// The first failing check wins. On success it returns the account unchanged.
func (rs *Resolver) Require(r *http.Request, scope string) (models.User, error) {
	user, err := rs.Resolve(r)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrInactiveAccount
	}
	if !user.HasScope(scope) {
		return models.User{}, &MissingScopeError{Scope: scope}
	}
	return user, nil
}

// RequireScope creates a middleware protecting routes with the scope check.
// The same guard serves any scope string, so admin-only and user-only
// routes share one implementation.
func (rs *Resolver) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := rs.Require(r, scope)
			if err != nil {
				WriteError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), accountKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext returns the account stored by RequireScope.
func AccountFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(accountKey).(models.User)
	return user, ok
}

// WriteError maps an auth failure to its HTTP response. Unauthenticated
// failures collapse to one opaque 401 body; forbidden responses keep their
// message since it only describes the caller's own account state.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, ErrUnauthenticated):
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated"})
	case errors.Is(err, ErrForbidden):
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
	}
}
