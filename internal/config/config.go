package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	JWTTTL        time.Duration
	UploadDir     string
	MetricsPrefix string
}

// Load reads configuration from the environment and performs minimal
// validation. DATABASE_URL wins over the discrete DB_* variables.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		UploadDir:     fallback(os.Getenv("UPLOAD_DIR"), "uploads"),
		MetricsPrefix: fallback(os.Getenv("METRICS_PREFIX"), "servigo"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL or DB_* variables are required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	hours := fallback(os.Getenv("JWT_TTL_HOURS"), "72")
	if ttl, err := strconv.Atoi(hours); err == nil && ttl > 0 {
		cfg.JWTTTL = time.Duration(ttl) * time.Hour
	} else {
		cfg.JWTTTL = 72 * time.Hour
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func dsnFromParts() string {
	user := os.Getenv("DB_USER")
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if user == "" || host == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user,
		os.Getenv("DB_PASSWORD"),
		host,
		fallback(os.Getenv("DB_PORT"), "5432"),
		name,
	)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
