package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Uploads  UploadsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
	// PublicBaseURL is the externally visible base URL of the server.
	// Image URLs are built from this value instead of inspecting the
	// Host header of each request.
	PublicBaseURL string
	// LoginPath is where unauthenticated page requests are redirected.
	LoginPath string
	// HomePath is where already-authenticated login requests are redirected.
	HomePath string
	// StaticDir is the directory holding the built frontend pages.
	StaticDir string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AuthConfig holds session and remember-token configuration
type AuthConfig struct {
	// SessionDuration is the rolling window a session stays valid after
	// its last verified request.
	SessionDuration time.Duration
	// RememberTokenDuration is the fixed lifetime of a remember token.
	RememberTokenDuration time.Duration
	// SecureCookies sets the Secure flag on auth cookies.
	SecureCookies bool
}

// UploadsConfig holds image storage configuration.
// Backend selects where image binaries live; the relative layout
// uploads/<orderID>/<stamp>-<name> is the same for both backends.
type UploadsConfig struct {
	// Backend is "local" or "s3".
	Backend string
	// Root is the directory holding the uploads/ tree for the local
	// backend. Stored image paths are relative to it.
	Root string

	// S3 settings, used when Backend is "s3".
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseSSL          bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			Port:          getEnv("SERVER_PORT", "8080"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
			LoginPath:     getEnv("LOGIN_PATH", "/"),
			HomePath:      getEnv("HOME_PATH", "/dashboard/add-order"),
			StaticDir:     getEnv("STATIC_DIR", "web"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "taller_ordenes"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			SessionDuration:       getDurationEnv("SESSION_DURATION", time.Hour),
			RememberTokenDuration: getDurationEnv("REMEMBER_TOKEN_DURATION", 30*24*time.Hour),
			SecureCookies:         getBoolEnv("SECURE_COOKIES", false),
		},
		Uploads: UploadsConfig{
			Backend:           getEnv("UPLOADS_BACKEND", "local"),
			Root:              getEnv("UPLOADS_ROOT", "public"),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3Region:          getEnv("S3_REGION", "us-east-1"),
			S3Bucket:          getEnv("S3_BUCKET", "taller-uploads"),
			S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			S3UseSSL:          getBoolEnv("S3_USE_SSL", false),
		},
	}
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns duration from environment variable or default.
// Plain integers are interpreted as seconds, matching the durations the
// original deployment configured.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getBoolEnv returns a boolean from environment variable or default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
