// Command dbtool runs the out-of-band admin account maintenance
// operations. Each command is idempotent and safe to re-run.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cognito-labs/cognito-be/internal/config"
	"github.com/cognito-labs/cognito-be/internal/database"
	"github.com/cognito-labs/cognito-be/internal/logger"
	"github.com/cognito-labs/cognito-be/internal/services"
)

func usage() {
	fmt.Println("Usage: dbtool <command>")
	fmt.Println("Commands:")
	fmt.Println("  ensure-admin  - Ensure admin account exists and matches configuration")
	fmt.Println("  prune         - Remove duplicate admin accounts, fix data integrity")
	fmt.Println("  full          - Run both prune and ensure-admin")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_PATH  - SQLite database path (default: ./cognito.db)")
	fmt.Println("  ADMIN_USERNAME - Admin username (default: admin)")
	fmt.Println("  ADMIN_PASSWORD - Admin password")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := strings.ToLower(os.Args[1])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)
	log.Info().Str("database", cfg.DatabasePath).Str("admin_username", cfg.AdminUsername).Msg("Running database maintenance")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	adminService := services.NewAdminService(db, cfg.AdminUsername, cfg.AdminPassword)

	switch command {
	case "ensure-admin":
		err = adminService.EnsureAdmin()
	case "prune":
		err = adminService.Prune()
	case "full":
		err = adminService.Reconcile()
	default:
		log.Error().Str("command", command).Msg("Unknown command")
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Maintenance command failed")
	}
	log.Info().Str("command", command).Msg("Maintenance command completed successfully")
}
