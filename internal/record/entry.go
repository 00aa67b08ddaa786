// Package record defines the journal entry stored in a slot and its byte framing.
package record

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tinoosan/journal/internal/errs"
)

const (
	// MaxTitleLen bounds the title in bytes, not runes.
	MaxTitleLen = 50
	// MaxMessageLen bounds the message in bytes, not runes.
	MaxMessageLen = 1000
)

// JournalEntry is the single record type. Owner and Title form its key and
// never change after creation; Message is replaced wholesale on update.
type JournalEntry struct {
	Owner   uuid.UUID
	Title   string
	Message string
}

// ValidateTitle enforces the title bound.
func ValidateTitle(title string) error {
	if len(title) > MaxTitleLen {
		return fmt.Errorf("%w: title is %d bytes, max %d", errs.ErrFieldTooLong, len(title), MaxTitleLen)
	}
	return nil
}

// ValidateMessage enforces the message bound.
func ValidateMessage(message string) error {
	if len(message) > MaxMessageLen {
		return fmt.Errorf("%w: message is %d bytes, max %d", errs.ErrFieldTooLong, len(message), MaxMessageLen)
	}
	return nil
}

// Validate checks both bounds of e.
func (e JournalEntry) Validate() error {
	if err := ValidateTitle(e.Title); err != nil {
		return err
	}
	return ValidateMessage(e.Message)
}
