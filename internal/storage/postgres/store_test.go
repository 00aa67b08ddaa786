package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tinoosan/journal/internal/storage"
	"github.com/tinoosan/journal/internal/storage/storagetest"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.pool.Exec(ctx, `truncate table journal_slots`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func TestStore_Conformance(t *testing.T) {
	dsn := getTestDSN(t)
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		s := mustOpen(t, dsn)
		truncateAll(t, s)
		t.Cleanup(s.Close)
		return s
	})
}

func TestStore_Ready(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
}
