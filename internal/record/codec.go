package record

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/tinoosan/journal/internal/errs"
)

// Slot layout:
//
//	[0:8)    discriminator
//	[8:24)   owner
//	u32 LE   title length, then title bytes
//	u32 LE   message length, then message bytes
//
// Anything after the message must be zero.
const (
	discriminatorLen = 8
	ownerLen         = 16
	lenPrefix        = 4
	headerLen        = discriminatorLen + ownerLen
)

// MaxSize is the slot size of an entry with both fields at their bounds.
const MaxSize = headerLen + lenPrefix + MaxTitleLen + lenPrefix + MaxMessageLen

var discriminator = func() [discriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:JournalEntryState"))
	var d [discriminatorLen]byte
	copy(d[:], sum[:discriminatorLen])
	return d
}()

// EncodedSize returns the exact number of bytes Encode produces.
func EncodedSize(title, message string) int {
	return headerLen + lenPrefix + len(title) + lenPrefix + len(message)
}

// Encode frames e into a freshly allocated buffer of EncodedSize bytes.
func Encode(e JournalEntry) []byte {
	buf := make([]byte, EncodedSize(e.Title, e.Message))
	copy(buf, discriminator[:])
	copy(buf[discriminatorLen:], e.Owner[:])
	off := headerLen
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.Title)))
	off += lenPrefix
	off += copy(buf[off:], e.Title)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.Message)))
	off += lenPrefix
	copy(buf[off:], e.Message)
	return buf
}

// Decode parses slot bytes produced by Encode.
func Decode(b []byte) (JournalEntry, error) {
	if len(b) < headerLen+2*lenPrefix {
		return JournalEntry{}, fmt.Errorf("%w: slot is %d bytes", errs.ErrCorrupt, len(b))
	}
	if [discriminatorLen]byte(b[:discriminatorLen]) != discriminator {
		return JournalEntry{}, fmt.Errorf("%w: bad discriminator", errs.ErrCorrupt)
	}
	var e JournalEntry
	e.Owner = uuid.UUID(b[discriminatorLen:headerLen])
	off := headerLen

	title, off, err := readField(b, off, MaxTitleLen, "title")
	if err != nil {
		return JournalEntry{}, err
	}
	message, off, err := readField(b, off, MaxMessageLen, "message")
	if err != nil {
		return JournalEntry{}, err
	}
	for _, c := range b[off:] {
		if c != 0 {
			return JournalEntry{}, fmt.Errorf("%w: non-zero trailing bytes", errs.ErrCorrupt)
		}
	}
	e.Title = title
	e.Message = message
	return e, nil
}

func readField(b []byte, off, limit int, name string) (string, int, error) {
	if len(b)-off < lenPrefix {
		return "", off, fmt.Errorf("%w: truncated %s length", errs.ErrCorrupt, name)
	}
	n := int(binary.LittleEndian.Uint32(b[off:]))
	off += lenPrefix
	if n > limit {
		return "", off, fmt.Errorf("%w: %s length %d exceeds %d", errs.ErrCorrupt, name, n, limit)
	}
	if len(b)-off < n {
		return "", off, fmt.Errorf("%w: truncated %s", errs.ErrCorrupt, name)
	}
	return string(b[off : off+n]), off + n, nil
}
