package checklist

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrStore         = errors.New("store failure")
)

// Error is the error type returned by the services in this package. Kind
// is one of the Err* sentinels; Err, when set, is the underlying cause and
// is reachable through errors.Unwrap and errors.As.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// ValidationError reports malformed input.
func ValidationError(op string, err error) error {
	return &Error{Kind: ErrValidation, Op: op, Err: err}
}

// NotFoundError reports a missing document.
func NotFoundError(op, msg string) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: msg}
}

// AuthorizationError reports a caller acting on data it does not own.
func AuthorizationError(op, msg string) error {
	return &Error{Kind: ErrAuthorization, Op: op, Msg: msg}
}

// ConflictError reports a write that would replace an existing list the
// caller did not confirm overwriting.
func ConflictError(op, msg string) error {
	return &Error{Kind: ErrConflict, Op: op, Msg: msg}
}

// StoreError wraps a backend failure. The cause is passed through as is.
func StoreError(op string, err error) error {
	return &Error{Kind: ErrStore, Op: op, Err: err}
}
