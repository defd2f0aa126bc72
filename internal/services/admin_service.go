package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/cognito-labs/cognito-be/internal/models"
)

// AdminService reconciles the configured admin account against the store.
// Every operation is idempotent and safe to re-run: it repairs drift left
// by crashes, manual edits, or configuration changes. Each step commits
// before the next, so a crash mid-run leaves a recoverable state.
type AdminService struct {
	db            *sql.DB
	adminUsername string
	adminPassword string
}

// NewAdminService creates a new AdminService for the configured admin
// credentials.
func NewAdminService(db *sql.DB, adminUsername, adminPassword string) *AdminService {
	return &AdminService{db: db, adminUsername: adminUsername, adminPassword: adminPassword}
}

// Prune removes duplicate admin accounts, keeping the first by creation
// order, and forces the admin scope and active flag on any account holding
// the admin username. Duplicates are a data-integrity violation, not
// steady-state behavior, so the repair is logged as a warning.
func (s *AdminService) Prune() error {
	admins, err := s.findAllByUsername(s.adminUsername)
	if err != nil {
		log.Error().Err(err).Msg("Pruning failed to query admin accounts")
		return err
	}

	if len(admins) > 1 {
		log.Warn().Int("count", len(admins)).Str("username", s.adminUsername).
			Msg("Found duplicate admin accounts, keeping only the first one")
		keep := admins[0]
		_, err = s.db.Exec("DELETE FROM users WHERE username = ? AND id != ?", s.adminUsername, keep.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to remove duplicate admin accounts")
			return err
		}
		log.Info().Str("kept_id", keep.ID).Msg("Removed duplicate admin accounts")

		admins, err = s.findAllByUsername(s.adminUsername)
		if err != nil {
			return err
		}
	}

	for _, admin := range admins {
		if admin.HasScope(models.ScopeAdmin) {
			continue
		}
		scopesJSON, err := encodeScopes([]string{models.ScopeAdmin})
		if err != nil {
			return err
		}
		_, err = s.db.Exec(
			"UPDATE users SET scopes_json = ?, is_active = ?, updated_at = ? WHERE id = ?",
			scopesJSON, true, time.Now().UTC(), admin.ID,
		)
		if err != nil {
			log.Error().Err(err).Str("user_id", admin.ID).Msg("Failed to repair admin scopes")
			return err
		}
		log.Warn().Str("username", admin.Username).Msg("Repaired admin account scopes")
	}

	log.Debug().Msg("Admin account pruning completed")
	return nil
}

// EnsureAdmin guarantees exactly one admin account exists with the
// configured credentials, the admin scope, and the active flag set. It
// prunes first, then creates the account if absent, or updates only the
// fields that drifted from configuration.
func (s *AdminService) EnsureAdmin() error {
	if err := s.Prune(); err != nil {
		return err
	}

	admin, err := s.findFirstByUsername(s.adminUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.createAdmin()
		}
		log.Error().Err(err).Msg("Failed to load admin account")
		return err
	}

	return s.updateAdmin(admin)
}

// Reconcile runs the full maintenance pass: prune, then ensure.
func (s *AdminService) Reconcile() error {
	if err := s.Prune(); err != nil {
		return err
	}
	return s.EnsureAdmin()
}

func (s *AdminService) createAdmin() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	scopesJSON, err := encodeScopes([]string{models.ScopeAdmin})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		"INSERT INTO users(id, username, password_hash, scopes_json, is_active, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), s.adminUsername, string(hashedPassword), scopesJSON, true, now, now,
	)
	if err != nil {
		// A concurrent reconciler may have won the race; the unique index on
		// username turns the second insert into a constraint error.
		if strings.Contains(err.Error(), "UNIQUE") {
			log.Info().Str("username", s.adminUsername).Msg("Admin account created by a concurrent reconciler")
			return nil
		}
		log.Error().Err(err).Msg("Failed to create admin account")
		return err
	}

	log.Info().Str("username", s.adminUsername).Msg("Admin account created")
	return nil
}

func (s *AdminService) updateAdmin(admin models.User) error {
	passwordChanged := false
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(s.adminPassword)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			// Corrupt or foreign hash format: force a rehash instead of
			// failing the whole routine.
			log.Warn().Err(err).Msg("Admin password verification failed, forcing rehash")
		}
		passwordChanged = true
	}

	scopesOK := len(admin.Scopes) == 1 && admin.Scopes[0] == models.ScopeAdmin

	if !passwordChanged && scopesOK && admin.IsActive {
		log.Info().Str("username", s.adminUsername).Msg("Admin account already up to date")
		return nil
	}

	set := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if passwordChanged {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		set = append(set, "password_hash = ?")
		args = append(args, string(hashedPassword))
		log.Info().Str("username", s.adminUsername).Msg("Updating admin account password")
	}
	if !scopesOK {
		scopesJSON, err := encodeScopes([]string{models.ScopeAdmin})
		if err != nil {
			return err
		}
		set = append(set, "scopes_json = ?")
		args = append(args, scopesJSON)
		log.Info().Str("username", s.adminUsername).Msg("Resetting admin account scopes")
	}
	if !admin.IsActive {
		set = append(set, "is_active = ?")
		args = append(args, true)
		log.Info().Str("username", s.adminUsername).Msg("Activating admin account")
	}

	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC(), admin.ID)

	query := "UPDATE users SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := s.db.Exec(query, args...); err != nil {
		log.Error().Err(err).Msg("Failed to update admin account")
		return err
	}

	log.Info().Str("username", s.adminUsername).Msg("Admin account updated")
	return nil
}

// findAllByUsername returns every account holding the username, first by
// creation order. Duplicates can only exist if the unique index was added
// after bad data, but the reconciler still repairs them.
func (s *AdminService) findAllByUsername(username string) ([]models.User, error) {
	rows, err := s.db.Query("SELECT "+userColumns+" FROM users WHERE username = ? ORDER BY created_at, id", username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *AdminService) findFirstByUsername(username string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ? ORDER BY created_at, id LIMIT 1", username)
	return scanUser(row)
}
