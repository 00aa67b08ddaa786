// Package address derives the storage address of a journal entry from its
// title and owner. The address doubles as the authorization boundary: a
// caller can only ever resolve slots seeded with its own identity.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DefaultProgramID is the identifier the record program was first deployed under.
const DefaultProgramID = "5Bww75bUi5z4efKDNH9EJQf7Vk1HFjwkCe4261ifrY2x"

// marker separates derived addresses from any other sha256 use of the same seeds.
const marker = "JournalEntryAddress"

// Size is the byte length of an Address.
const Size = sha256.Size

// Address identifies a storage slot.
type Address [Size]byte

// String returns the lowercase hex form.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// MarshalText implements encoding.TextMarshaler so addresses render as hex in JSON.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address: %w", err)
	}
	if len(b) != Size {
		return a, fmt.Errorf("invalid address: %d bytes, want %d", len(b), Size)
	}
	copy(a[:], b)
	return a, nil
}

// Deriver computes addresses under a fixed program id.
type Deriver struct {
	programID []byte
}

// NewDeriver binds a deriver to programID. The id is copied and never changes.
func NewDeriver(programID string) (Deriver, error) {
	if programID == "" {
		return Deriver{}, errors.New("program id is required")
	}
	return Deriver{programID: []byte(programID)}, nil
}

// ProgramID returns the program id the deriver was built with.
func (d Deriver) ProgramID() string { return string(d.programID) }

// Derive returns sha256(title || owner || programID || marker).
// Owner, program id and marker have fixed lengths for a given Deriver, so
// the concatenation is unambiguous.
func (d Deriver) Derive(title string, owner uuid.UUID) Address {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write(owner[:])
	h.Write(d.programID)
	h.Write([]byte(marker))
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}
