package registry

import (
	"errors"
	"strings"
)

// ErrIncompatibleClass is returned when a switch is blocked before any
// mutation: the endpoint kinds of a relationship have no overlap with
// what the target class allows.
var ErrIncompatibleClass = errors.New("incompatible class")

// ErrKindMismatch is returned when the target class is of a different
// entity kind than the entity being switched.
var ErrKindMismatch = errors.New("target class kind does not match entity kind")

// ValidationError reports every rule violation of a property bag. The
// list is always complete; validation never stops at the first error.
type ValidationError struct {
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
