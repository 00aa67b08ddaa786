package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/storage"
	"github.com/tinoosan/journal/internal/storage/storagetest"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend { return createTestStore(t) })
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	var addr address.Address
	addr[31] = 7
	payer := uuid.New()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	err = s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, 3, payer); err != nil {
			return err
		}
		return tx.Put(ctx, addr, []byte("abc"))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = createReopened(t, path)
	sl, err := s.Lookup(ctx, addr)
	if err != nil {
		t.Fatalf("lookup after reopen: %v", err)
	}
	if string(sl.Data) != "abc" || sl.Payer != payer {
		t.Fatalf("unexpected slot after reopen: %+v", sl)
	}
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func createReopened(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
