package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cognito-labs/cognito-be/internal/auth"
	"github.com/cognito-labs/cognito-be/internal/config"
	"github.com/cognito-labs/cognito-be/internal/services"
)

// AuthHandler handles registration, login, logout, and session
// introspection.
type AuthHandler struct {
	service  services.UserServiceProvider
	resolver *auth.Resolver
	codec    *auth.Codec
	cfg      *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider, resolver *auth.Resolver, codec *auth.Codec, cfg *config.Config) *AuthHandler {
	return &AuthHandler{service: service, resolver: resolver, codec: codec, cfg: cfg}
}

// CredentialsPayload defines the structure for login and registration
// requests.
type CredentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// Register handles new user registration. New accounts get the "user"
// scope and start inactive until an admin activates them.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Username == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Register(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			respondError(w, http.StatusBadRequest, "Username already registered")
			return
		}
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		respondError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login authenticates the user and sets the HTTP-only access token cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
			respondError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		log.Error().Err(err).Str("username", payload.Username).Msg("Authentication lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.codec.Issue(user.ID, user.Scopes, h.cfg.TokenTTL())
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue access token")
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.setSessionCookie(w, token)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    user,
	})
}

// Logout clears the access token cookie. The token itself stays valid
// until expiry; the server keeps no revocation state.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the resolved account for the current session. Any
// authenticated account may call it, active or not.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.Resolve(r)
	if err != nil {
		auth.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// CheckAuth is a debug endpoint reporting why a session does or does not
// resolve. It never errors; the reason string pinpoints the failing step
// to aid cookie/token debugging.
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": false,
			"reason":        "No access_token cookie found",
		})
		return
	}

	claims, err := h.codec.Verify(cookie.Value)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": false,
			"reason":        "Invalid or expired token",
			"has_token":     true,
		})
		return
	}

	if claims.Subject != "" {
		if user, err := h.service.GetUserByID(claims.Subject); err == nil {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"authenticated": true,
				"user":          user,
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": false,
		"reason":        "User not found",
		"user_id":       claims.Subject,
	})
}

// Ping is a trivial user-scoped endpoint confirming the guard chain.
func (h *AuthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.AccountFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Could not retrieve account from context")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message":  "pong",
		"username": user.Username,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
