package store

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("store: invalid input")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("store: not found")
)

// ValidationError reports an identifier or value that cannot be stored.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is match against ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Code is picked up by the handler summary logger as err_code.
func (e *ValidationError) Code() string { return "validation" }

// Kinds name what a NotFoundError or ValidationError is about.
const (
	KindPlayer      = "player"
	KindEvent       = "event"
	KindAssociation = "association"
	KindPoints      = "points"
)

// NotFoundError reports a player, animation or association that does not exist.
type NotFoundError struct {
	Kind   string
	Player string
	Event  string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case KindPlayer:
		return fmt.Sprintf("store: player %q not found", e.Player)
	case KindEvent:
		return fmt.Sprintf("store: animation %q not found", e.Event)
	default:
		return fmt.Sprintf("store: player %q is not registered for %q", e.Player, e.Event)
	}
}

// Is lets errors.Is match against ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Code is picked up by the handler summary logger as err_code.
func (e *NotFoundError) Code() string { return "not_found" }

// PersistError wraps a failed snapshot write. Memory already holds the change,
// so callers must surface it to the operator.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("store: persist snapshot %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Code is picked up by the handler summary logger as err_code.
func (e *PersistError) Code() string { return "persist" }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsPersist reports whether err is (or wraps) a PersistError.
func IsPersist(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
