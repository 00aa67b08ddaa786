// Package sqlite provides a single-file slot backend on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/errs"
	"github.com/tinoosan/journal/internal/retry"
	"github.com/tinoosan/journal/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a database/sql handle limited to one connection, so write
// transactions are serialized by the pool itself.
type Store struct {
	db    *sql.DB
	retry retry.Config
}

// Open creates or opens the database at path and applies the schema.
//
// The database is configured with WAL journaling, a 5 second busy timeout
// and a single open connection.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	cfg := retry.DefaultConfig()
	cfg.ShouldRetry = isBusy
	return &Store{db: db, retry: cfg}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ready pings the database.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

// Lookup implements storage.Backend.
func (s *Store) Lookup(ctx context.Context, addr address.Address) (storage.Slot, error) {
	return scanSlot(addr, s.db.QueryRowContext(ctx, `SELECT payer, data FROM journal_slots WHERE address = ?`, addr[:]))
}

// Update implements storage.Backend. Starting the transaction is retried
// while another process holds the write lock.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	var stx *sql.Tx
	err := retry.Do(ctx, s.retry, func() error {
		var beginErr error
		stx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = stx.Rollback() }()
	if err := fn(&tx{tx: stx}); err != nil {
		return err
	}
	return stx.Commit()
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) Get(ctx context.Context, addr address.Address) (storage.Slot, error) {
	return scanSlot(addr, t.tx.QueryRowContext(ctx, `SELECT payer, data FROM journal_slots WHERE address = ?`, addr[:]))
}

func (t *tx) Allocate(ctx context.Context, addr address.Address, size int, payer uuid.UUID) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO journal_slots (address, payer, data) VALUES (?, ?, ?) ON CONFLICT (address) DO NOTHING`,
		addr[:], payer.String(), make([]byte, size))
	if err != nil {
		return fmt.Errorf("failed to allocate slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
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
	sl, err := t.Get(ctx, addr)
	if err != nil {
		return storage.Slot{}, err
	}
	// overwrite before delete so freed pages never hold the old record
	if err := t.write(ctx, addr, make([]byte, sl.Size())); err != nil {
		return storage.Slot{}, err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM journal_slots WHERE address = ?`, addr[:]); err != nil {
		return storage.Slot{}, fmt.Errorf("failed to delete slot: %w", err)
	}
	return sl, nil
}

func (t *tx) write(ctx context.Context, addr address.Address, data []byte) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE journal_slots SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE address = ?`, data, addr[:])
	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanSlot(addr address.Address, row *sql.Row) (storage.Slot, error) {
	var payer string
	sl := storage.Slot{Address: addr}
	err := row.Scan(&payer, &sl.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Slot{}, errs.ErrNotFound
	}
	if err != nil {
		return storage.Slot{}, fmt.Errorf("failed to scan slot: %w", err)
	}
	sl.Payer, err = uuid.Parse(payer)
	if err != nil {
		return storage.Slot{}, fmt.Errorf("failed to parse payer: %w", err)
	}
	if sl.Data == nil {
		sl.Data = []byte{}
	}
	return sl, nil
}

var _ storage.Backend = (*Store)(nil)
