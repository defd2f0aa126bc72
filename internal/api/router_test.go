package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cognito-labs/cognito-be/internal/api/handlers"
	"github.com/cognito-labs/cognito-be/internal/auth"
	"github.com/cognito-labs/cognito-be/internal/config"
	"github.com/cognito-labs/cognito-be/internal/models"
	"github.com/cognito-labs/cognito-be/internal/services"
)

type memoryUserService struct {
	users map[string]models.User
}

func (m *memoryUserService) GetUserByID(id string) (models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return models.User{}, services.ErrUserNotFound
}

func (m *memoryUserService) GetUserByUsername(username string) (models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, services.ErrUserNotFound
}

func (m *memoryUserService) Register(username, password string) (models.User, error) {
	if _, err := m.GetUserByUsername(username); err == nil {
		return models.User{}, services.ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           fmt.Sprintf("id-%d", len(m.users)+1),
		Username:     username,
		PasswordHash: string(hash),
		Scopes:       []string{models.ScopeUser},
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserService) Authenticate(username, password string) (models.User, error) {
	user, err := m.GetUserByUsername(username)
	if err != nil {
		return models.User{}, services.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, services.ErrInvalidCredentials
	}
	return user, nil
}

func (m *memoryUserService) ListUsers() ([]models.User, error) {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *memoryUserService) CountUsers() (int, error) { return len(m.users), nil }

func (m *memoryUserService) SetActive(id string, active bool) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, services.ErrUserNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return u, nil
}

func setupRouter(t *testing.T) (http.Handler, *auth.Codec, *memoryUserService) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:                "router-secret",
		AccessTokenExpireMinutes: 60,
		Environment:              "development",
		CORSOrigins:              []string{"http://localhost:3000"},
	}
	svc := &memoryUserService{users: map[string]models.User{
		"admin-1": {ID: "admin-1", Username: "root", Scopes: []string{models.ScopeAdmin}, IsActive: true},
		"user-1":  {ID: "user-1", Username: "bob", Scopes: []string{models.ScopeUser}, IsActive: true},
		"user-2":  {ID: "user-2", Username: "carol", Scopes: []string{models.ScopeUser}, IsActive: false},
	}}
	codec := auth.NewCodec([]byte(cfg.JWTSecret))
	resolver := auth.NewResolver(codec, svc)
	authHandler := handlers.NewAuthHandler(svc, resolver, codec, cfg)
	adminHandler := handlers.NewAdminHandler(svc)
	return NewRouter(cfg, resolver, authHandler, adminHandler), codec, svc
}

func authedRequest(t *testing.T, codec *auth.Codec, method, path, subjectID string) *http.Request {
	t.Helper()
	tok, err := codec.Issue(subjectID, nil, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	return req
}

func TestAdminRoutes_RequireAdminScope(t *testing.T) {
	router, codec, _ := setupRouter(t)

	// Anonymous: 401.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Active end user: 403.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodGet, "/api/admin/users", "user-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin: 200 with the full user list.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodGet, "/api/admin/users", "admin-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Users, 3)
}

func TestToggleActivation(t *testing.T) {
	router, codec, svc := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodPatch, "/api/admin/users/user-2/activate", "admin-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.users["user-2"].IsActive)

	// Toggling again deactivates.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodPatch, "/api/admin/users/user-2/activate", "admin-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.users["user-2"].IsActive)

	// Unknown id: 404.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodPatch, "/api/admin/users/missing/activate", "admin-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedPing_RequiresActiveUserScope(t *testing.T) {
	router, codec, _ := setupRouter(t)

	// Active user with the user scope: 200.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodGet, "/api/protected/ping", "user-1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Inactive account is rejected before the scope check.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodGet, "/api/protected/ping", "user-2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminStats_CountsUsers(t *testing.T) {
	router, codec, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, codec, http.MethodGet, "/api/admin/stats", "admin-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats handlers.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 3, stats.TotalUsers)
}
