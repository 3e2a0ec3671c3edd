package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// record set or entry does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty purpose, distance out of range).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when an operation does not match the current
// session state, e.g. saving an entry that is not being edited.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrCorrupt is returned by repos when stored data exists but cannot be
// parsed back into entries.
var ErrCorrupt = errors.New("corrupt record data")

// Field-level validation failures. Each wraps ErrValidation so callers can
// match either the specific rule or the whole class.
var (
	ErrDateTooLong      = fmt.Errorf("%w: date must be at most %d characters", ErrValidation, MaxTextLen)
	ErrEmptyDetails     = fmt.Errorf("%w: travelling details are required", ErrValidation)
	ErrDetailsTooLong   = fmt.Errorf("%w: travelling details must be at most %d characters", ErrValidation, MaxTextLen)
	ErrEmptyPurpose     = fmt.Errorf("%w: purpose is required", ErrValidation)
	ErrPurposeTooLong   = fmt.Errorf("%w: purpose must be at most %d characters", ErrValidation, MaxTextLen)
	ErrTotalOutOfRange  = fmt.Errorf("%w: total km must be between %d and %d", ErrValidation, MinTotalKM, MaxTotalKM)
	ErrKMPrecision      = fmt.Errorf("%w: km values allow at most %d decimal places", ErrValidation, KMScale)
	ErrNegativeBaseline = fmt.Errorf("%w: home to office km must not be negative", ErrValidation)
)

// ErrStaleEntry is returned when an entry opened for editing or deletion
// no longer holds the values it had when it was opened, for instance
// because an earlier entry was deleted and serials shifted.
var ErrStaleEntry = fmt.Errorf("%w: entry changed since it was opened", ErrConflict)
