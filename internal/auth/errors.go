package auth

import (
	"errors"
	"fmt"
)

// Authentication and authorization failures are returned as values so call
// sites dispatch with errors.Is / errors.As instead of inspecting strings.
var (
	// ErrUnauthenticated is the category for every failure to establish an
	// identity. Handlers surface it as a single opaque 401; the specific
	// cause below is for logs and the check-auth diagnostic only.
	ErrUnauthenticated = errors.New("not authenticated")

	ErrNoCredential      = fmt.Errorf("%w: no credential presented", ErrUnauthenticated)
	ErrInvalidCredential = fmt.Errorf("%w: invalid or expired credential", ErrUnauthenticated)
	ErrMalformedSubject  = fmt.Errorf("%w: malformed subject", ErrUnauthenticated)
	ErrAccountNotFound   = fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)

	// ErrForbidden is the category for an authenticated account that may not
	// perform the operation. Unlike 401s the message is shown to the caller,
	// it only reveals the caller's own account state.
	ErrForbidden = errors.New("forbidden")

	ErrInactiveAccount = fmt.Errorf("%w: please ask an admin to activate your account", ErrForbidden)
)

// MissingScopeError reports that the account does not hold a required scope.
type MissingScopeError struct {
	Scope string
}

func (e *MissingScopeError) Error() string {
	return fmt.Sprintf("forbidden: not enough permissions, required scope: %s", e.Scope)
}

func (e *MissingScopeError) Unwrap() error { return ErrForbidden }
