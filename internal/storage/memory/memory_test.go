package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/storage"
	"github.com/tinoosan/journal/internal/storage/storagetest"
)

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend { return New() })
}

func TestStore_LookupReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	var addr address.Address
	addr[0] = 1
	if err := s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, 2, uuid.New()); err != nil {
			return err
		}
		return tx.Put(ctx, addr, []byte("ok"))
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	sl, err := s.Lookup(ctx, addr)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	sl.Data[0] = 'X'
	again, _ := s.Lookup(ctx, addr)
	if string(again.Data) != "ok" {
		t.Fatalf("lookup leaked internal buffer: %q", again.Data)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 slot, got %d", s.Len())
	}
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after reset")
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().Update(ctx, func(storage.Tx) error { called = true; return nil })
	if err == nil || called {
		t.Fatalf("expected cancelled update to fail without running fn")
	}
}
