// Package redis provides a slot backend on Redis. Each slot is a hash with
// payer and data fields. Updates use optimistic WATCH/MULTI transactions and
// are re-run when a watched key changes underneath them.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/errs"
	"github.com/tinoosan/journal/internal/retry"
	"github.com/tinoosan/journal/internal/storage"
)

// DefaultPrefix namespaces slot keys.
const DefaultPrefix = "journal:slot:"

const (
	fieldPayer = "payer"
	fieldData  = "data"
)

// Store is a Redis-backed slot backend.
type Store struct {
	client *goredis.Client
	prefix string
	retry  retry.Config
}

// Open parses a redis:// URL, connects and pings.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, DefaultPrefix), nil
}

// New wraps an existing client. Keys are stored under prefix.
func New(client *goredis.Client, prefix string) *Store {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 10
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, goredis.TxFailedErr) }
	return &Store{client: client, prefix: prefix, retry: cfg}
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

// Ready pings the server.
func (s *Store) Ready(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) key(addr address.Address) string { return s.prefix + addr.String() }

// Lookup implements storage.Backend.
func (s *Store) Lookup(ctx context.Context, addr address.Address) (storage.Slot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(addr)).Result()
	if err != nil {
		return storage.Slot{}, err
	}
	return decodeSlot(addr, fields)
}

// Update implements storage.Backend. fn may run more than once if a
// concurrent writer touches a key it read.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	return retry.Do(ctx, s.retry, func() error {
		return s.client.Watch(ctx, func(rtx *goredis.Tx) error {
			t := &tx{store: s, rtx: rtx, staged: make(map[address.Address]*storage.Slot)}
			if err := fn(t); err != nil {
				return err
			}
			if len(t.staged) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				for addr, sl := range t.staged {
					key := s.key(addr)
					p.Del(ctx, key)
					if sl != nil {
						p.HSet(ctx, key, fieldPayer, sl.Payer.String(), fieldData, sl.Data)
					}
				}
				return nil
			})
			return err
		})
	})
}

type tx struct {
	store  *Store
	rtx    *goredis.Tx
	staged map[address.Address]*storage.Slot
}

func (t *tx) current(ctx context.Context, addr address.Address) (*storage.Slot, error) {
	if sl, ok := t.staged[addr]; ok {
		if sl == nil {
			return nil, errs.ErrNotFound
		}
		return sl, nil
	}
	key := t.store.key(addr)
	if err := t.rtx.Watch(ctx, key).Err(); err != nil {
		return nil, err
	}
	fields, err := t.rtx.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	sl, err := decodeSlot(addr, fields)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (t *tx) Get(ctx context.Context, addr address.Address) (storage.Slot, error) {
	sl, err := t.current(ctx, addr)
	if err != nil {
		return storage.Slot{}, err
	}
	out := *sl
	out.Data = append([]byte(nil), sl.Data...)
	return out, nil
}

func (t *tx) Allocate(ctx context.Context, addr address.Address, size int, payer uuid.UUID) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	_, err := t.current(ctx, addr)
	if err == nil {
		return errs.ErrAlreadyExists
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	t.staged[addr] = &storage.Slot{Address: addr, Payer: payer, Data: make([]byte, size)}
	return nil
}

func (t *tx) Put(ctx context.Context, addr address.Address, data []byte) error {
	sl, err := t.current(ctx, addr)
	if err != nil {
		return err
	}
	if len(data) != sl.Size() {
		return fmt.Errorf("%w: put of %d bytes into %d byte slot", errs.ErrInvalid, len(data), sl.Size())
	}
	next := *sl
	next.Data = append([]byte(nil), data...)
	t.staged[addr] = &next
	return nil
}

func (t *tx) Resize(ctx context.Context, addr address.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size", errs.ErrInvalid)
	}
	sl, err := t.current(ctx, addr)
	if err != nil {
		return err
	}
	next := *sl
	next.Data = storage.Resized(sl.Data, size)
	t.staged[addr] = &next
	return nil
}

func (t *tx) Delete(ctx context.Context, addr address.Address) (storage.Slot, error) {
	sl, err := t.current(ctx, addr)
	if err != nil {
		return storage.Slot{}, err
	}
	t.staged[addr] = nil
	return *sl, nil
}

func decodeSlot(addr address.Address, fields map[string]string) (storage.Slot, error) {
	if len(fields) == 0 {
		return storage.Slot{}, errs.ErrNotFound
	}
	payer, err := uuid.Parse(fields[fieldPayer])
	if err != nil {
		return storage.Slot{}, fmt.Errorf("%w: slot payer: %v", errs.ErrCorrupt, err)
	}
	return storage.Slot{Address: addr, Payer: payer, Data: []byte(fields[fieldData])}, nil
}

var _ storage.Backend = (*Store)(nil)
