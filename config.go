package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const devJWTSecret = "kanban-dev-secret"

// Config is the server configuration, read from the environment.
type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	PublicKey   string
	CORSOrigins []string
	SessionTTL  time.Duration
	LogLevel    zerolog.Level
	LogFormat   string
}

// LoadEnv loads environment variables from a .env file. A missing file
// is not an error; variables already set in the environment win.
func LoadEnv(filename string) error {
	if err := godotenv.Load(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return nil
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		DBPath:      getEnv("DB_PATH", "./kanban.db"),
		JWTSecret:   getEnv("JWT_SECRET", devJWTSecret),
		PublicKey:   os.Getenv("PUBLIC_KEY"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "console")),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: must be positive, got %s", ttl)
	}
	cfg.SessionTTL = ttl

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want console or json", cfg.LogFormat)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return cfg, nil
}

// DevSecret reports whether the built-in signing secret is in use.
func (c *Config) DevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
