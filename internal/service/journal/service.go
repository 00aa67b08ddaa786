// Package journal implements the journal entry record store: create, update
// and delete of entries keyed by (title, owner), with the storage address
// derived from that key so a caller can only reach its own slots.
package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/errs"
	"github.com/tinoosan/journal/internal/record"
	"github.com/tinoosan/journal/internal/storage"
)

// Accountant is told when storage is funded or released. Calls happen after
// the storage transaction commits; failures are logged, never rolled back.
type Accountant interface {
	Funded(ctx context.Context, payer uuid.UUID, addr address.Address, bytes int) error
	Released(ctx context.Context, payee uuid.UUID, addr address.Address, bytes int, closed bool) error
}

// Service exposes the record lifecycle.
type Service interface {
	Create(ctx context.Context, caller uuid.UUID, title, message string) (record.JournalEntry, error)
	Update(ctx context.Context, caller uuid.UUID, title, message string) (record.JournalEntry, error)
	Delete(ctx context.Context, caller uuid.UUID, title string) error
	Get(ctx context.Context, owner uuid.UUID, title string) (record.JournalEntry, error)
	Address(owner uuid.UUID, title string) address.Address
}

// Option configures the service.
type Option func(*service)

// WithAccountant reports allocations and releases to a.
func WithAccountant(a Accountant) Option { return func(s *service) { s.accountant = a } }

// WithLogger sets the logger used for post-commit accounting failures.
func WithLogger(l *slog.Logger) Option { return func(s *service) { s.log = l } }

type service struct {
	backend    storage.Backend
	deriver    address.Deriver
	accountant Accountant
	log        *slog.Logger
}

func New(backend storage.Backend, deriver address.Deriver, opts ...Option) Service {
	s := &service{backend: backend, deriver: deriver, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Address(owner uuid.UUID, title string) address.Address {
	return s.deriver.Derive(title, owner)
}

func (s *service) Create(ctx context.Context, caller uuid.UUID, title, message string) (record.JournalEntry, error) {
	if caller == uuid.Nil {
		return record.JournalEntry{}, errs.ErrUnauthenticated
	}
	entry := record.JournalEntry{Owner: caller, Title: title, Message: message}
	if err := entry.Validate(); err != nil {
		return record.JournalEntry{}, err
	}
	addr := s.Address(caller, title)
	data := record.Encode(entry)

	err := s.backend.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, len(data), caller); err != nil {
			return err
		}
		return tx.Put(ctx, addr, data)
	})
	if err != nil {
		return record.JournalEntry{}, fmt.Errorf("create %q: %w", title, err)
	}
	s.funded(ctx, caller, addr, len(data))
	return entry, nil
}

func (s *service) Update(ctx context.Context, caller uuid.UUID, title, message string) (record.JournalEntry, error) {
	if caller == uuid.Nil {
		return record.JournalEntry{}, errs.ErrUnauthenticated
	}
	if err := record.ValidateMessage(message); err != nil {
		return record.JournalEntry{}, err
	}
	addr := s.Address(caller, title)

	var next record.JournalEntry
	var oldSize, newSize int
	err := s.backend.Update(ctx, func(tx storage.Tx) error {
		sl, cur, err := s.load(ctx, tx, addr, caller, title)
		if err != nil {
			return err
		}
		next = cur
		next.Message = message
		data := record.Encode(next)
		oldSize, newSize = sl.Size(), len(data)
		if newSize != oldSize {
			if err := tx.Resize(ctx, addr, newSize); err != nil {
				return err
			}
		}
		// clear before rewrite
		if err := tx.Put(ctx, addr, make([]byte, newSize)); err != nil {
			return err
		}
		return tx.Put(ctx, addr, data)
	})
	if err != nil {
		return record.JournalEntry{}, fmt.Errorf("update %q: %w", title, err)
	}
	switch {
	case newSize > oldSize:
		s.funded(ctx, caller, addr, newSize-oldSize)
	case newSize < oldSize:
		s.released(ctx, caller, addr, oldSize-newSize, false)
	}
	return next, nil
}

func (s *service) Delete(ctx context.Context, caller uuid.UUID, title string) error {
	if caller == uuid.Nil {
		return errs.ErrUnauthenticated
	}
	addr := s.Address(caller, title)

	var released storage.Slot
	err := s.backend.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := s.load(ctx, tx, addr, caller, title); err != nil {
			return err
		}
		var err error
		released, err = tx.Delete(ctx, addr)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", title, err)
	}
	s.released(ctx, released.Payer, addr, released.Size(), true)
	return nil
}

func (s *service) Get(ctx context.Context, owner uuid.UUID, title string) (record.JournalEntry, error) {
	addr := s.Address(owner, title)
	sl, err := s.backend.Lookup(ctx, addr)
	if err != nil {
		return record.JournalEntry{}, err
	}
	entry, err := record.Decode(sl.Data)
	if err != nil {
		return record.JournalEntry{}, err
	}
	if entry.Owner != owner || entry.Title != title {
		return record.JournalEntry{}, fmt.Errorf("%w: slot %s holds a different key", errs.ErrCorrupt, addr)
	}
	return entry, nil
}

// load reads and decodes the slot at addr and checks that the stored owner
// is caller. The derived address already binds the caller; the field check
// covers backends where the address alone is not proof of ownership.
func (s *service) load(ctx context.Context, tx storage.Tx, addr address.Address, caller uuid.UUID, title string) (storage.Slot, record.JournalEntry, error) {
	sl, err := tx.Get(ctx, addr)
	if err != nil {
		return storage.Slot{}, record.JournalEntry{}, err
	}
	entry, err := record.Decode(sl.Data)
	if err != nil {
		return storage.Slot{}, record.JournalEntry{}, err
	}
	if entry.Owner != caller {
		return storage.Slot{}, record.JournalEntry{}, errs.ErrUnauthorized
	}
	if entry.Title != title {
		return storage.Slot{}, record.JournalEntry{}, fmt.Errorf("%w: slot %s holds a different title", errs.ErrCorrupt, addr)
	}
	return sl, entry, nil
}

func (s *service) funded(ctx context.Context, payer uuid.UUID, addr address.Address, n int) {
	if s.accountant == nil {
		return
	}
	if err := s.accountant.Funded(ctx, payer, addr, n); err != nil {
		s.log.Warn("storage funding not recorded", "payer", payer.String(), "address", addr.String(), "bytes", n, "err", err)
	}
}

func (s *service) released(ctx context.Context, payee uuid.UUID, addr address.Address, n int, closed bool) {
	if s.accountant == nil {
		return
	}
	if err := s.accountant.Released(ctx, payee, addr, n, closed); err != nil {
		s.log.Warn("storage release not recorded", "payee", payee.String(), "address", addr.String(), "bytes", n, "err", err)
	}
}
