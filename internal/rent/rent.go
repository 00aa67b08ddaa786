// Package rent prices slot storage and tracks the deposits each identity
// holds. It is the host-side counterpart of the record store: the store only
// reports when bytes are funded or released.
package rent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/journal/internal/address"
)

// Schedule prices an allocation as BaseMinor + PerByteMinor*size minor units.
type Schedule struct {
	Currency     string
	BaseMinor    int64
	PerByteMinor int64
}

// DefaultSchedule charges one minor unit per byte.
func DefaultSchedule() Schedule {
	return Schedule{Currency: "USD", PerByteMinor: 1}
}

// Validate rejects unknown currencies and negative prices.
func (s Schedule) Validate() error {
	if _, err := money.ParseCurr(s.Currency); err != nil {
		return fmt.Errorf("rent currency %q: %w", s.Currency, err)
	}
	if s.BaseMinor < 0 || s.PerByteMinor < 0 {
		return errors.New("rent prices must be non-negative")
	}
	return nil
}

// Zero returns a zero amount in the schedule currency.
func (s Schedule) Zero() (money.Amount, error) {
	return money.NewAmountFromMinorUnits(s.Currency, 0)
}

// Deposit returns the amount held for a slot of size bytes.
// The base charge applies once per slot, so callers pricing a resize delta
// use PerByte instead.
func (s Schedule) Deposit(size int) (money.Amount, error) {
	if size < 0 {
		return money.Amount{}, errors.New("negative size")
	}
	return money.NewAmountFromMinorUnits(s.Currency, s.BaseMinor+s.PerByteMinor*int64(size))
}

// PerByte returns the amount for n bytes without the base charge.
func (s Schedule) PerByte(n int) (money.Amount, error) {
	if n < 0 {
		return money.Amount{}, errors.New("negative size")
	}
	return money.NewAmountFromMinorUnits(s.Currency, s.PerByteMinor*int64(n))
}

// Book is an in-memory deposit ledger keyed by identity.
type Book struct {
	schedule Schedule
	mu       sync.Mutex
	held     map[uuid.UUID]money.Amount
	// slots tracks which addresses already paid the base charge.
	slots map[address.Address]struct{}
}

// NewBook constructs a Book priced by schedule.
func NewBook(schedule Schedule) (*Book, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &Book{
		schedule: schedule,
		held:     make(map[uuid.UUID]money.Amount),
		slots:    make(map[address.Address]struct{}),
	}, nil
}

// Schedule returns the pricing in force.
func (b *Book) Schedule() Schedule { return b.schedule }

// Funded records that payer funded bytes more storage at addr. The first
// funding of an address also charges the base amount.
func (b *Book) Funded(_ context.Context, payer uuid.UUID, addr address.Address, bytes int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	amt, err := b.schedule.PerByte(bytes)
	if err != nil {
		return err
	}
	if _, ok := b.slots[addr]; !ok {
		base, err := money.NewAmountFromMinorUnits(b.schedule.Currency, b.schedule.BaseMinor)
		if err != nil {
			return err
		}
		if amt, err = amt.Add(base); err != nil {
			return err
		}
		b.slots[addr] = struct{}{}
	}
	return b.adjustLocked(payer, amt, false)
}

// Released records that bytes of storage at addr were returned to payee.
// closed marks the slot as gone so its base charge is refunded too.
func (b *Book) Released(_ context.Context, payee uuid.UUID, addr address.Address, bytes int, closed bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	amt, err := b.schedule.PerByte(bytes)
	if err != nil {
		return err
	}
	if _, ok := b.slots[addr]; ok && closed {
		base, err := money.NewAmountFromMinorUnits(b.schedule.Currency, b.schedule.BaseMinor)
		if err != nil {
			return err
		}
		if amt, err = amt.Add(base); err != nil {
			return err
		}
		delete(b.slots, addr)
	}
	return b.adjustLocked(payee, amt, true)
}

// Held returns the deposit currently held on behalf of id.
func (b *Book) Held(id uuid.UUID) (money.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amt, ok := b.held[id]; ok {
		return amt, nil
	}
	return b.schedule.Zero()
}

func (b *Book) adjustLocked(id uuid.UUID, amt money.Amount, refund bool) error {
	cur, ok := b.held[id]
	if !ok {
		zero, err := b.schedule.Zero()
		if err != nil {
			return err
		}
		cur = zero
	}
	var next money.Amount
	var err error
	if refund {
		next, err = cur.Sub(amt)
	} else {
		next, err = cur.Add(amt)
	}
	if err != nil {
		return err
	}
	if next.IsNeg() {
		return fmt.Errorf("refund of %s exceeds held %s", amt, cur)
	}
	b.held[id] = next
	return nil
}
