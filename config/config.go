package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the telemetry API.
type Config struct {
	DatabaseURL string
	Port        int
	AppEnv      string
	LogLevel    string

	JWTSecret string
	TokenTTL  time.Duration

	AdminUsername string
	AdminPassword string

	DefaultPageSize int
	MaxPageSize     int

	Connect ConnectPolicy
}

// ConnectPolicy controls how the storage client retries its initial
// connection before giving up.
type ConnectPolicy struct {
	MaxAttempts uint64
	BackoffBase time.Duration
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:            8080,
		AppEnv:          "dev",
		LogLevel:        "info",
		TokenTTL:        12 * time.Hour,
		AdminUsername:   "admin",
		DefaultPageSize: 30,
		MaxPageSize:     100,
		Connect: ConnectPolicy{
			MaxAttempts: 5,
			BackoffBase: time.Second,
		},
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.AppEnv = env
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil && ttl > 0 {
			cfg.TokenTTL = ttl
		} else {
			return cfg, fmt.Errorf("invalid TOKEN_TTL: %s", ttlStr)
		}
	}

	if user := os.Getenv("ADMIN_USERNAME"); user != "" {
		cfg.AdminUsername = user
	}
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	if sizeStr := os.Getenv("DEFAULT_PAGE_SIZE"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 && size <= cfg.MaxPageSize {
			cfg.DefaultPageSize = size
		} else {
			return cfg, fmt.Errorf("invalid DEFAULT_PAGE_SIZE: %s", sizeStr)
		}
	}

	if attemptsStr := os.Getenv("DB_CONNECT_MAX_ATTEMPTS"); attemptsStr != "" {
		if attempts, err := strconv.ParseUint(attemptsStr, 10, 64); err == nil && attempts > 0 {
			cfg.Connect.MaxAttempts = attempts
		} else {
			return cfg, fmt.Errorf("invalid DB_CONNECT_MAX_ATTEMPTS: %s", attemptsStr)
		}
	}

	if backoffStr := os.Getenv("DB_CONNECT_BACKOFF"); backoffStr != "" {
		if base, err := time.ParseDuration(backoffStr); err == nil && base > 0 {
			cfg.Connect.BackoffBase = base
		} else {
			return cfg, fmt.Errorf("invalid DB_CONNECT_BACKOFF: %s", backoffStr)
		}
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
