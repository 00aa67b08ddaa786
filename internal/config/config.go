// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/rent"
)

// Backend names which storage implementation serves slots.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
)

type Config struct {
	Addr      string
	LogLevel  slog.Leveler
	LogFormat string // json | text
	// ProgramID seeds every derived address. It must not change over a deployment's lifetime.
	ProgramID string

	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AllowedOrigins []string
	Rent           rent.Schedule
}

// Backend picks the storage backend: postgres, then sqlite, then redis, else memory.
func (c Config) Backend() Backend {
	switch {
	case c.DatabaseURL != "":
		return BackendPostgres
	case c.SQLitePath != "":
		return BackendSQLite
	case c.RedisURL != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Addr:           get("ADDR", ":8080"),
		LogLevel:       ParseLogLevel(get("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(get("LOG_FORMAT", "json")),
		ProgramID:      get("PROGRAM_ID", address.DefaultProgramID),
		DatabaseURL:    get("DATABASE_URL", ""),
		SQLitePath:     get("SQLITE_PATH", ""),
		RedisURL:       get("REDIS_URL", ""),
		JWTSecret:      get("JWT_HS256_SECRET", ""),
		JWTIssuer:      get("JWT_ISSUER", ""),
		JWTAudience:    get("JWT_AUDIENCE", ""),
		AllowedOrigins: parseList(get("ALLOWED_ORIGINS", "")),
		Rent:           rent.DefaultSchedule(),
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	cfg.Rent.Currency = strings.ToUpper(get("RENT_CURRENCY", cfg.Rent.Currency))
	var err error
	if cfg.Rent.BaseMinor, err = parseInt(get("RENT_BASE_MINOR", ""), cfg.Rent.BaseMinor); err != nil {
		return Config{}, fmt.Errorf("RENT_BASE_MINOR: %w", err)
	}
	if cfg.Rent.PerByteMinor, err = parseInt(get("RENT_PER_BYTE_MINOR", ""), cfg.Rent.PerByteMinor); err != nil {
		return Config{}, fmt.Errorf("RENT_PER_BYTE_MINOR: %w", err)
	}
	if err := cfg.Rent.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseLogLevel maps env values to slog.Leveler
func ParseLogLevel(s string) slog.Leveler {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "ERR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to stdout.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
