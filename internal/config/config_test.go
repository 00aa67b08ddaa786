package config

import (
	"log/slog"
	"testing"

	"github.com/tinoosan/journal/internal/address"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.LogFormat != "json" || cfg.ProgramID != address.DefaultProgramID {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
	if cfg.Backend() != BackendMemory {
		t.Fatalf("expected memory backend, got %s", cfg.Backend())
	}
	if cfg.Rent.Currency != "USD" || cfg.Rent.PerByteMinor != 1 || cfg.Rent.BaseMinor != 0 {
		t.Fatalf("unexpected rent schedule: %+v", cfg.Rent)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"ADDR":                ":9090",
		"LOG_LEVEL":           "debug",
		"LOG_FORMAT":          "TEXT",
		"PROGRAM_ID":          "prog",
		"SQLITE_PATH":         "/tmp/j.db",
		"REDIS_URL":           "redis://localhost:6379/0",
		"ALLOWED_ORIGINS":     "https://a.example, https://b.example,,",
		"RENT_CURRENCY":       "eur",
		"RENT_BASE_MINOR":     "128",
		"RENT_PER_BYTE_MINOR": "3",
	}))
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.LogFormat != "text" || cfg.ProgramID != "prog" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
	if cfg.Backend() != BackendSQLite {
		t.Fatalf("sqlite must win over redis, got %s", cfg.Backend())
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.Rent.Currency != "EUR" || cfg.Rent.BaseMinor != 128 || cfg.Rent.PerByteMinor != 3 {
		t.Fatalf("unexpected rent: %+v", cfg.Rent)
	}
}

func TestFromEnv_BackendPrecedence(t *testing.T) {
	cfg, _ := FromEnv(envMap(map[string]string{"DATABASE_URL": "postgres://x", "SQLITE_PATH": "a.db"}))
	if cfg.Backend() != BackendPostgres {
		t.Fatalf("postgres must win, got %s", cfg.Backend())
	}
	cfg, _ = FromEnv(envMap(map[string]string{"REDIS_URL": "redis://x"}))
	if cfg.Backend() != BackendRedis {
		t.Fatalf("expected redis, got %s", cfg.Backend())
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := []map[string]string{
		{"LOG_FORMAT": "xml"},
		{"RENT_BASE_MINOR": "abc"},
		{"RENT_PER_BYTE_MINOR": "-1"},
		{"RENT_CURRENCY": "ZZZ"},
	}
	for _, env := range cases {
		if _, err := FromEnv(envMap(env)); err == nil {
			t.Fatalf("expected error for %v", env)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG": slog.LevelDebug, "warn": slog.LevelWarn, "WARNING": slog.LevelWarn,
		"err": slog.LevelError, "ERROR": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
