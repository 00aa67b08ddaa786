// Package storage defines the byte-addressable slot backend the record store
// runs on. Backends own atomicity: every mutation happens inside Update and
// is applied all-or-nothing.
package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/tinoosan/journal/internal/address"
)

// Slot is one allocated storage location.
type Slot struct {
	Address address.Address
	// Payer funded the allocation and is refunded when the slot is released.
	Payer uuid.UUID
	Data  []byte
}

// Size returns the allocated byte length.
func (s Slot) Size() int { return len(s.Data) }

// Tx exposes slot operations inside a single backend transaction.
type Tx interface {
	// Get returns the slot at addr or errs.ErrNotFound.
	Get(ctx context.Context, addr address.Address) (Slot, error)
	// Allocate creates a zero-filled slot of size bytes funded by payer.
	// It returns errs.ErrAlreadyExists if addr is occupied.
	Allocate(ctx context.Context, addr address.Address, size int, payer uuid.UUID) error
	// Put overwrites the whole slot. len(data) must equal the slot size.
	Put(ctx context.Context, addr address.Address, data []byte) error
	// Resize truncates or zero-extends the slot to size bytes.
	Resize(ctx context.Context, addr address.Address, size int) error
	// Delete zeroes and releases the slot, returning what it held.
	Delete(ctx context.Context, addr address.Address) (Slot, error)
}

// Backend is a persistent slot store.
type Backend interface {
	// Lookup reads a slot outside of any write transaction.
	Lookup(ctx context.Context, addr address.Address) (Slot, error)
	// Update runs fn in a transaction and commits iff fn returns nil.
	// Transactions touching the same address are serialized.
	Update(ctx context.Context, fn func(Tx) error) error
}

// ReadyChecker is optionally implemented by backends to report connectivity.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Resized returns data truncated or zero-extended to size, always as a new slice.
func Resized(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}
