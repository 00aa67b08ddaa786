package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound      = errors.New("not_found")
	ErrAlreadyExists = errors.New("already_exists")
	ErrInvalid       = errors.New("invalid")
	// ErrFieldTooLong is returned when a title or message exceeds its byte bound.
	ErrFieldTooLong = errors.New("field_too_long")
	// ErrUnauthenticated means no verified caller identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the caller is verified but does not own the record.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCorrupt indicates slot bytes that do not decode to a record.
	ErrCorrupt = errors.New("corrupt")
)
