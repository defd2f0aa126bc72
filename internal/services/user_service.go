package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cognito-labs/cognito-be/internal/models"
)

// Sentinel errors returned by the user service.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id string) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	Register(username, password string) (models.User, error)
	Authenticate(username, password string) (models.User, error)
	ListUsers() ([]models.User, error)
	CountUsers() (int, error)
	SetActive(id string, active bool) (models.User, error)
}

// UserService provides business logic for account management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, username, password_hash, scopes_json, is_active, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var scopesJSON string
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &scopesJSON, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	user.Scopes, err = decodeScopes(scopesJSON)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func encodeScopes(scopes []string) (string, error) {
	if scopes == nil {
		scopes = []string{}
	}
	data, err := json.Marshal(scopes)
	if err != nil {
		return "", fmt.Errorf("failed to encode scopes: %w", err)
	}
	return string(data), nil
}

func decodeScopes(raw string) ([]string, error) {
	var scopes []string
	if err := json.Unmarshal([]byte(raw), &scopes); err != nil {
		return nil, fmt.Errorf("failed to decode scopes: %w", err)
	}
	return scopes, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByUsername retrieves a single user by their username, including the password hash.
func (s *UserService) GetUserByUsername(username string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", username, ErrUserNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// Register creates a new end-user account. New accounts start with the
// "user" scope and inactive, so an admin must activate them before they
// can use protected operations.
func (s *UserService) Register(username, password string) (models.User, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", username).Scan(&exists)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrUsernameTaken
	}

	return s.createUser(username, password, []string{models.ScopeUser}, false)
}

// createUser inserts a fresh account, hashing the password.
func (s *UserService) createUser(username, password string, scopes []string, active bool) (models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	scopesJSON, err := encodeScopes(scopes)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		Scopes:       scopes,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Exec(
		"INSERT INTO users(id, username, password_hash, scopes_json, is_active, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.PasswordHash, scopesJSON, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		// The unique index on username is the backstop for concurrent writers.
		if strings.Contains(err.Error(), "UNIQUE") {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}

	return user, nil
}

// Authenticate verifies a user's credentials. Unknown username and wrong
// password yield the same error so callers cannot probe which was wrong.
func (s *UserService) Authenticate(username, password string) (models.User, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// ListUsers returns all accounts.
func (s *UserService) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at, id")
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

// CountUsers returns the total number of accounts.
func (s *UserService) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// SetActive flips an account's active flag and returns the updated record.
func (s *UserService) SetActive(id string, active bool) (models.User, error) {
	res, err := s.db.Exec("UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?", active, time.Now().UTC(), id)
	if err != nil {
		return models.User{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
	}
	return s.GetUserByID(id)
}
