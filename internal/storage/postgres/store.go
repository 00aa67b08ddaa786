package postgres

// Package postgres provides a pgx-backed slot backend. Each Update runs in a
// single pgx transaction; rows read inside it are locked with FOR UPDATE so
// concurrent writers to the same address are serialized.

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/errs"
	"github.com/tinoosan/journal/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate creates the slot table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Lookup implements storage.Backend.
func (s *Store) Lookup(ctx context.Context, addr address.Address) (storage.Slot, error) {
	return scanSlot(addr, s.pool.QueryRow(ctx, `select payer, data from journal_slots where address = $1`, addr[:]))
}

// Update implements storage.Backend.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	ptx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ptx.Rollback(ctx) }()
	if err := fn(&tx{tx: ptx}); err != nil {
		return err
	}
	return ptx.Commit(ctx)
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) Get(ctx context.Context, addr address.Address) (storage.Slot, error) {
	return scanSlot(addr, t.tx.QueryRow(ctx, `select payer, data from journal_slots where address = $1 for update`, addr[:]))
}

func (t *tx) Allocate(ctx context.Context, addr address.Address, size int, payer uuid.UUID) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	ct, err := t.tx.Exec(ctx, `
        insert into journal_slots (address, payer, data)
        values ($1, $2, $3)
        on conflict (address) do nothing
    `, addr[:], payer, make([]byte, size))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrAlreadyExists
	}
	return nil
}

func (t *tx) Put(ctx context.Context, addr address.Address, data []byte) error {
	sl, err := t.Get(ctx, addr)
	if err != nil {
		return err
	}
	if len(data) != sl.Size() {
		return fmt.Errorf("%w: put of %d bytes into %d byte slot", errs.ErrInvalid, len(data), sl.Size())
	}
	return t.write(ctx, addr, data)
}

func (t *tx) Resize(ctx context.Context, addr address.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	sl, err := t.Get(ctx, addr)
	if err != nil {
		return err
	}
	return t.write(ctx, addr, storage.Resized(sl.Data, size))
}

func (t *tx) Delete(ctx context.Context, addr address.Address) (storage.Slot, error) {
	return scanSlot(addr, t.tx.QueryRow(ctx, `delete from journal_slots where address = $1 returning payer, data`, addr[:]))
}

func (t *tx) write(ctx context.Context, addr address.Address, data []byte) error {
	ct, err := t.tx.Exec(ctx, `update journal_slots set data = $2, updated_at = now() where address = $1`, addr[:], data)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanSlot(addr address.Address, row pgx.Row) (storage.Slot, error) {
	sl := storage.Slot{Address: addr}
	err := row.Scan(&sl.Payer, &sl.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Slot{}, errs.ErrNotFound
	}
	if err != nil {
		return storage.Slot{}, err
	}
	return sl, nil
}

var _ storage.Backend = (*Store)(nil)
