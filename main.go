package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cognito-labs/cognito-be/internal/api"
	"github.com/cognito-labs/cognito-be/internal/api/handlers"
	"github.com/cognito-labs/cognito-be/internal/auth"
	"github.com/cognito-labs/cognito-be/internal/config"
	"github.com/cognito-labs/cognito-be/internal/database"
	"github.com/cognito-labs/cognito-be/internal/logger"
	"github.com/cognito-labs/cognito-be/internal/monitoring"
	"github.com/cognito-labs/cognito-be/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	userService := services.NewUserService(db)
	adminService := services.NewAdminService(db, cfg.AdminUsername, cfg.AdminPassword)

	// Reconcile the admin account at boot. A failure here is logged but
	// does not abort startup: the database may just be momentarily down,
	// and the background loop retries until it succeeds.
	if err := adminService.EnsureAdmin(); err != nil {
		log.Error().Err(err).Msg("Admin reconciliation failed at startup, continuing degraded")
	}

	reconcileLoop, err := monitoring.NewReconcileLoop(adminService, cfg.ReconcileSchedule)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReconcileSchedule).Msg("Invalid reconcile schedule")
	}
	go reconcileLoop.Run()

	// Set up the auth chain: codec -> resolver -> guard middleware
	codec := auth.NewCodec([]byte(cfg.JWTSecret))
	resolver := auth.NewResolver(codec, userService)

	// Set up handlers and router
	authHandler := handlers.NewAuthHandler(userService, resolver, codec, cfg)
	adminHandler := handlers.NewAdminHandler(userService)
	router := api.NewRouter(cfg, resolver, authHandler, adminHandler)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reconcileLoop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
