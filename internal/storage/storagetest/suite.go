// Package storagetest holds the behaviour every storage.Backend must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/errs"
	"github.com/tinoosan/journal/internal/storage"
)

var errAbort = errors.New("abort")

// Run exercises b. newBackend must return an empty backend for each call.
func Run(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Run("AllocateGetPut", func(t *testing.T) { testAllocateGetPut(t, newBackend(t)) })
	t.Run("AllocateOccupied", func(t *testing.T) { testAllocateOccupied(t, newBackend(t)) })
	t.Run("MissingSlot", func(t *testing.T) { testMissingSlot(t, newBackend(t)) })
	t.Run("PutSizeMismatch", func(t *testing.T) { testPutSizeMismatch(t, newBackend(t)) })
	t.Run("Resize", func(t *testing.T) { testResize(t, newBackend(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newBackend(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newBackend(t)) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, newBackend(t)) })
	t.Run("SerializedAllocate", func(t *testing.T) { testSerializedAllocate(t, newBackend(t)) })
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func randomAddress() address.Address {
	var a address.Address
	id1, id2 := uuid.New(), uuid.New()
	copy(a[:16], id1[:])
	copy(a[16:], id2[:])
	return a
}

func testAllocateGetPut(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr, payer := randomAddress(), uuid.New()

	err := b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, 4, payer); err != nil {
			return err
		}
		sl, err := tx.Get(ctx, addr)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte{0, 0, 0, 0}, sl.Data, "new slots are zero-filled")
		return tx.Put(ctx, addr, []byte("abcd"))
	})
	require.NoError(t, err)

	sl, err := b.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, addr, sl.Address)
	assert.Equal(t, payer, sl.Payer)
	assert.Equal(t, []byte("abcd"), sl.Data)
	assert.Equal(t, 4, sl.Size())
}

func testAllocateOccupied(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr, payer := randomAddress(), uuid.New()
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, 2, payer); err != nil {
			return err
		}
		return tx.Put(ctx, addr, []byte("hi"))
	}))

	err := b.Update(ctx, func(tx storage.Tx) error { return tx.Allocate(ctx, addr, 8, uuid.New()) })
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	sl, err := b.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), sl.Data)
	assert.Equal(t, payer, sl.Payer)
}

func testMissingSlot(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr := randomAddress()

	_, err := b.Lookup(ctx, addr)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	err = b.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.Get(ctx, addr)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.ErrorIs(t, tx.Put(ctx, addr, []byte("x")), errs.ErrNotFound)
		assert.ErrorIs(t, tx.Resize(ctx, addr, 3), errs.ErrNotFound)
		_, err = tx.Delete(ctx, addr)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testPutSizeMismatch(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr := randomAddress()
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error { return tx.Allocate(ctx, addr, 3, uuid.New()) }))

	err := b.Update(ctx, func(tx storage.Tx) error { return tx.Put(ctx, addr, []byte("toolong")) })
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func testResize(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr := randomAddress()
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, 4, uuid.New()); err != nil {
			return err
		}
		return tx.Put(ctx, addr, []byte("abcd"))
	}))

	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error { return tx.Resize(ctx, addr, 2) }))
	sl, err := b.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), sl.Data)

	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error { return tx.Resize(ctx, addr, 5) }))
	sl, err = b.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 0, 0, 0}, sl.Data, "grown region is zeroed, no stale tail")
}

func testDelete(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr, payer := randomAddress(), uuid.New()
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, addr, 3, payer); err != nil {
			return err
		}
		return tx.Put(ctx, addr, []byte("xyz"))
	}))

	var released storage.Slot
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		var err error
		released, err = tx.Delete(ctx, addr)
		return err
	}))
	assert.Equal(t, payer, released.Payer)
	assert.Equal(t, 3, released.Size())

	_, err := b.Lookup(ctx, addr)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// the address is free again
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error { return tx.Allocate(ctx, addr, 1, payer) }))
	sl, err := b.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, sl.Data)
}

func testRollback(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	kept, dropped := randomAddress(), randomAddress()
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, kept, 2, uuid.New()); err != nil {
			return err
		}
		return tx.Put(ctx, kept, []byte("ok"))
	}))

	err := b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Allocate(ctx, dropped, 1, uuid.New()); err != nil {
			return err
		}
		if err := tx.Put(ctx, kept, []byte("no")); err != nil {
			return err
		}
		if _, err := tx.Delete(ctx, kept); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = b.Lookup(ctx, dropped)
	assert.ErrorIs(t, err, errs.ErrNotFound, "aborted allocation must not persist")
	sl, err := b.Lookup(ctx, kept)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), sl.Data, "aborted writes must not persist")
}

func testReadYourWrites(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr := randomAddress()
	err := b.Update(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.Allocate(ctx, addr, 2, uuid.New()))
		require.NoError(t, tx.Put(ctx, addr, []byte("v1")))
		sl, err := tx.Get(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), sl.Data)
		_, err = tx.Delete(ctx, addr)
		require.NoError(t, err)
		_, err = tx.Get(ctx, addr)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		return tx.Allocate(ctx, addr, 1, uuid.New())
	})
	require.NoError(t, err)

	sl, err := b.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 1, sl.Size())
}

func testSerializedAllocate(t *testing.T, b storage.Backend) {
	ctx := testContext(t)
	addr := randomAddress()
	const writers = 8

	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- b.Update(ctx, func(tx storage.Tx) error { return tx.Allocate(ctx, addr, 1, uuid.New()) })
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	}
	assert.Equal(t, 1, wins, "exactly one concurrent allocation may win")
}
