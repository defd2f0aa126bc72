package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cognito-labs/cognito-be/internal/models"
	"github.com/cognito-labs/cognito-be/internal/services"
)

// CookieName is the cookie carrying the access token.
const CookieName = "access_token"

// AccountStore is the slice of the user service the resolver needs.
type AccountStore interface {
	GetUserByID(id string) (models.User, error)
}

// Resolver turns an inbound request's cookie into a live account record.
type Resolver struct {
	codec *Codec
	store AccountStore
}

// NewResolver creates a Resolver backed by the given codec and store.
func NewResolver(codec *Codec, store AccountStore) *Resolver {
	return &Resolver{codec: codec, store: store}
}

// Resolve extracts the token from the request cookie, verifies it, and
// loads the referenced account. The returned record is the current database
// row, not the token's embedded snapshot, so a deactivation or scope change
// takes effect on the very next request. Read-only; store failures fail
// closed as unauthenticated.
func (rs *Resolver) Resolve(r *http.Request) (models.User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return models.User{}, ErrNoCredential
	}

	claims, err := rs.codec.Verify(cookie.Value)
	if err != nil {
		return models.User{}, ErrInvalidCredential
	}

	if claims.Subject == "" {
		return models.User{}, ErrMalformedSubject
	}

	user, err := rs.store.GetUserByID(claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return models.User{}, ErrAccountNotFound
		}
		log.Error().Err(err).Msg("Account lookup failed during session resolution")
		return models.User{}, fmt.Errorf("%w: account lookup failed", ErrUnauthenticated)
	}

	return user, nil
}
