package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string

	// JWT settings for the access token cookie.
	JWTSecret                string
	AccessTokenExpireMinutes int

	// Admin account reconciled at startup.
	AdminUsername string
	AdminPassword string

	Environment string // development or production
	LogLevel    string
	CORSOrigins []string

	// Schedule for the background reconciliation retry.
	ReconcileSchedule string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	ttlStr := getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "1440")
	ttl, err := strconv.Atoi(ttlStr)
	if err != nil {
		return nil, err
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		ServerPort:               port,
		DatabasePath:             getEnv("DATABASE_PATH", "./cognito.db"),
		JWTSecret:                getEnv("JWT_SECRET", "change-this-secret-key-in-production"),
		AccessTokenExpireMinutes: ttl,
		AdminUsername:            getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:            getEnv("ADMIN_PASSWORD", "change-this-password"),
		Environment:              getEnv("APP_ENV", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		CORSOrigins:              origins,
		ReconcileSchedule:        getEnv("RECONCILE_SCHEDULE", "@every 15m"),
	}, nil
}

// IsProduction reports whether the app runs in production mode.
// The access token cookie carries the Secure attribute only in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// TokenTTL returns the access token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
