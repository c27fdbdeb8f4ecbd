package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string

		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
		ConnectRetries  int
		RetryDelay      time.Duration
	}

	Server struct {
		Port            string
		GinMode         string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Storage struct {
		Type       string
		SQLitePath string
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}

	Auth struct {
		TokenSecret string
		TokenTTL    time.Duration
	}

	Draw struct {
		AttemptsPerParticipant int
		SwapsPerParticipant    int
	}

	Log struct {
		Level string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "drawnames")
	config.DB.Password = getEnv("DB_PASSWORD", "drawnames_password")
	config.DB.Name = getEnv("DB_NAME", "drawnames_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	config.DB.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	config.DB.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 5)
	config.DB.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour)
	config.DB.ConnectRetries = getEnvAsInt("DB_CONNECT_RETRIES", 3)
	config.DB.RetryDelay = getEnvAsDuration("DB_RETRY_DELAY", 2*time.Second)

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	config.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	config.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)

	config.Storage.Type = getEnv("STORAGE_TYPE", "postgres")
	config.Storage.SQLitePath = getEnv("SQLITE_PATH", "./drawnames.db")

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "*")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization,X-Organizer-Key")

	config.Auth.TokenSecret = getEnv("TOKEN_SECRET", "")
	config.Auth.TokenTTL = getEnvAsDuration("TOKEN_TTL", 90*24*time.Hour)

	config.Draw.AttemptsPerParticipant = getEnvAsInt("DRAW_ATTEMPTS_PER_PARTICIPANT", 64)
	config.Draw.SwapsPerParticipant = getEnvAsInt("DRAW_SWAPS_PER_PARTICIPANT", 50)

	config.Log.Level = getEnv("LOG_LEVEL", "info")

	return config
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"postgres", "sqlite", "memory"}, c.Storage.Type) {
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Storage.Type == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for sqlite storage")
	}
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("TOKEN_SECRET must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Storage.Type == "postgres" && c.DB.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.DB.ConnectRetries < 1 {
		return fmt.Errorf("DB_CONNECT_RETRIES must be at least 1")
	}
	if c.Draw.AttemptsPerParticipant < 0 {
		return fmt.Errorf("DRAW_ATTEMPTS_PER_PARTICIPANT cannot be negative")
	}
	if c.Draw.SwapsPerParticipant < 0 {
		return fmt.Errorf("DRAW_SWAPS_PER_PARTICIPANT cannot be negative")
	}
	return nil
}

// GetDatabaseURL returns the database connection URL. Credentials are escaped.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     net.JoinHostPort(c.DB.Host, c.DB.Port),
		Path:     "/" + c.DB.Name,
		RawQuery: url.Values{"sslmode": {c.DB.SSLMode}}.Encode(),
	}
	return u.String()
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration parses values like "30s" or "2h"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
