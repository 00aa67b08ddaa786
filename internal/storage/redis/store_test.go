package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/tinoosan/journal/internal/storage"
	"github.com/tinoosan/journal/internal/storage/storagetest"
)

func getTestURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set; skipping Redis store tests")
	}
	return url
}

func TestStore_Conformance(t *testing.T) {
	url := getTestURL(t)
	opts, err := goredis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		client := goredis.NewClient(opts)
		t.Cleanup(func() { _ = client.Close() })
		// a fresh prefix per test keeps runs isolated without flushing the db
		return New(client, "journaltest:"+uuid.NewString()+":")
	})
}

func TestOpen_Ready(t *testing.T) {
	url := getTestURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestOpen_BadURL(t *testing.T) {
	if _, err := Open(context.Background(), "not-a-url"); err == nil {
		t.Fatalf("expected error for bad url")
	}
}
