package memory

// Package memory provides an in-memory slot backend used for development and tests.
// Writes are staged per transaction and applied only when the transaction succeeds.
import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/errs"
	"github.com/tinoosan/journal/internal/storage"
)

// Store is an in-memory slot backend.
// A single RWMutex serializes write transactions and guards reads.
type Store struct {
	mu    sync.RWMutex
	slots map[address.Address]storage.Slot
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{slots: make(map[address.Address]storage.Slot)}
}

// Reset drops every slot.
func (s *Store) Reset() {
	s.mu.Lock()
	s.slots = map[address.Address]storage.Slot{}
	s.mu.Unlock()
}

// Len reports the number of live slots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Lookup implements storage.Backend.
func (s *Store) Lookup(_ context.Context, addr address.Address) (storage.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[addr]
	if !ok {
		return storage.Slot{}, errs.ErrNotFound
	}
	return cloneSlot(sl), nil
}

// Update implements storage.Backend.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &tx{base: s.slots, staged: make(map[address.Address]*storage.Slot)}
	if err := fn(tx); err != nil {
		return err
	}
	for addr, sl := range tx.staged {
		if sl == nil {
			if old, ok := s.slots[addr]; ok {
				clear(old.Data)
			}
			delete(s.slots, addr)
			continue
		}
		s.slots[addr] = *sl
	}
	return nil
}

// tx reads through staged writes to the committed map. Caller holds s.mu.
type tx struct {
	base map[address.Address]storage.Slot
	// staged holds pending writes; a nil value marks a deletion.
	staged map[address.Address]*storage.Slot
}

func (t *tx) current(addr address.Address) (*storage.Slot, bool) {
	if sl, ok := t.staged[addr]; ok {
		return sl, sl != nil
	}
	sl, ok := t.base[addr]
	if !ok {
		return nil, false
	}
	c := cloneSlot(sl)
	return &c, true
}

func (t *tx) Get(_ context.Context, addr address.Address) (storage.Slot, error) {
	sl, ok := t.current(addr)
	if !ok {
		return storage.Slot{}, errs.ErrNotFound
	}
	return cloneSlot(*sl), nil
}

func (t *tx) Allocate(_ context.Context, addr address.Address, size int, payer uuid.UUID) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	if _, ok := t.current(addr); ok {
		return errs.ErrAlreadyExists
	}
	t.staged[addr] = &storage.Slot{Address: addr, Payer: payer, Data: make([]byte, size)}
	return nil
}

func (t *tx) Put(_ context.Context, addr address.Address, data []byte) error {
	sl, ok := t.current(addr)
	if !ok {
		return errs.ErrNotFound
	}
	if len(data) != len(sl.Data) {
		return fmt.Errorf("%w: put of %d bytes into %d byte slot", errs.ErrInvalid, len(data), len(sl.Data))
	}
	sl.Data = append([]byte(nil), data...)
	t.staged[addr] = sl
	return nil
}

func (t *tx) Resize(_ context.Context, addr address.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	sl, ok := t.current(addr)
	if !ok {
		return errs.ErrNotFound
	}
	sl.Data = storage.Resized(sl.Data, size)
	t.staged[addr] = sl
	return nil
}

func (t *tx) Delete(_ context.Context, addr address.Address) (storage.Slot, error) {
	sl, ok := t.current(addr)
	if !ok {
		return storage.Slot{}, errs.ErrNotFound
	}
	t.staged[addr] = nil
	return *sl, nil
}

func cloneSlot(sl storage.Slot) storage.Slot {
	sl.Data = append([]byte(nil), sl.Data...)
	return sl
}
