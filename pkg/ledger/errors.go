package ledger

import (
	"errors"
	"fmt"
)

// Error classes shared by stores and the client. Callers match them with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrTransport      = errors.New("transport error")
	ErrOutOfRange     = errors.New("index out of range")
	ErrNotImplemented = errors.New("not implemented")
)

// Constraint names reported by ValidationError.
const (
	ConstraintPrefix = "prefix"
	ConstraintLength = "length"
	ConstraintHex    = "hex"
	ConstraintRange  = "range"
)

// ValidationError reports which constraint a caller-supplied field violated.
type ValidationError struct {
	Field      string
	Constraint string
	Msg        string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%s): %s", e.Field, e.Constraint, e.Msg)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// OutOfRangeError is returned when reading at or past the end of a store.
type OutOfRangeError struct {
	Index uint64
	Total uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range (total %d)", e.Index, e.Total)
}

// Is matches ErrOutOfRange.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}
