package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cognito-labs/cognito-be/internal/models"
	"github.com/cognito-labs/cognito-be/internal/services"
)

type fakeStore struct {
	users map[string]models.User
	err   error
}

func (f *fakeStore) GetUserByID(id string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return models.User{}, services.ErrUserNotFound
	}
	return user, nil
}

func requestWithToken(t *testing.T, codec *Codec, subjectID string, scopes []string, ttl time.Duration) *http.Request {
	t.Helper()
	tok, err := codec.Issue(subjectID, scopes, ttl)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	return r
}

func TestResolve_NoCookie(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(NewCodec([]byte("s")), &fakeStore{})
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := resolver.Resolve(r)
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated category, got %v", err)
	}
}

func TestResolve_ExpiredToken(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("s"))
	resolver := NewResolver(codec, &fakeStore{})
	r := requestWithToken(t, codec, "u1", nil, -1*time.Second)

	_, err := resolver.Resolve(r)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestResolve_AccountGone(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("s"))
	resolver := NewResolver(codec, &fakeStore{users: map[string]models.User{}})
	r := requestWithToken(t, codec, "deleted", nil, time.Hour)

	_, err := resolver.Resolve(r)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResolve_StoreFailureFailsClosed(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("s"))
	resolver := NewResolver(codec, &fakeStore{err: errors.New("db unreachable")})
	r := requestWithToken(t, codec, "u1", nil, time.Hour)

	_, err := resolver.Resolve(r)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("store failure must resolve as unauthenticated, got %v", err)
	}
}

func TestResolve_ReturnsLiveAccount(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("s"))
	store := &fakeStore{users: map[string]models.User{
		"u1": {ID: "u1", Username: "alice", Scopes: []string{models.ScopeUser}, IsActive: true},
	}}
	resolver := NewResolver(codec, store)

	// The token claims admin, but the live record only holds "user". The
	// resolver must hand back the live record.
	r := requestWithToken(t, codec, "u1", []string{models.ScopeAdmin}, time.Hour)

	user, err := resolver.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if user.HasScope(models.ScopeAdmin) {
		t.Fatalf("resolver trusted the embedded scopes claim: %v", user.Scopes)
	}
	if !user.HasScope(models.ScopeUser) {
		t.Fatalf("live scopes missing: %v", user.Scopes)
	}
}
