package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cognito-labs/cognito-be/internal/api/handlers"
	"github.com/cognito-labs/cognito-be/internal/auth"
	"github.com/cognito-labs/cognito-be/internal/config"
	"github.com/cognito-labs/cognito-be/internal/models"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, resolver *auth.Resolver, authHandler *handlers.AuthHandler, adminHandler *handlers.AdminHandler) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS must allow credentials for the cookie to flow
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/logout", authHandler.Logout) // direct navigation
			r.Get("/me", authHandler.Me)
			r.Get("/check-auth", authHandler.CheckAuth)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(resolver.RequireScope(models.ScopeAdmin))
			r.Get("/users", adminHandler.ListUsers)
			r.Patch("/users/{id}/activate", adminHandler.ToggleActivation)
			r.Get("/stats", adminHandler.Stats)
		})

		r.Route("/protected", func(r chi.Router) {
			r.Use(resolver.RequireScope(models.ScopeUser))
			r.Get("/ping", authHandler.Ping)
		})
	})

	return r
}
