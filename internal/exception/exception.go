package exception

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers bad input, non-2xx discovery responses and
	// connection failures.
	ErrValidation = errors.New("ingest: validation failed")
	// ErrIO covers local I/O failures.
	ErrIO = errors.New("ingest: io failure")
	// ErrDecode covers malformed frames and payloads.
	ErrDecode = errors.New("ingest: payload decode failed")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IOf wraps ErrIO with a formatted message.
func IOf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrIO, fmt.Sprintf(format, args...))
}

// Decodef wraps ErrDecode with a formatted message.
func Decodef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}
