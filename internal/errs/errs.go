// Package errs defines the error taxonomy shared by every notebook package.
//
// Four kinds exist:
//   - Usage: the caller violated the integration contract (bad record key,
//     Finish without phase reports, Finish called twice)
//   - Derivation: phase reports handed to the outcome automaton are malformed
//   - Serialization: a value could not be encoded under the active policy
//   - Storage: a backend failed to connect, create its schema, read or write
//
// None of these are retried anywhere in the module.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind string

const (
	// Usage indicates the caller broke the integration contract.
	Usage Kind = "USAGE"

	// Derivation indicates malformed or missing phase reports.
	Derivation Kind = "DERIVATION"

	// Serialization indicates an unencodable value.
	Serialization Kind = "SERIALIZATION"

	// Storage indicates a backend failure.
	Storage Kind = "STORAGE"
)

// Error is the structured error returned by notebook packages.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op names the operation that failed, e.g. "record experiment".
	Op string

	// Msg is a human-readable description. Optional when Err is set.
	Msg string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
// Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsUsage reports whether err is a Usage error.
func IsUsage(err error) bool { return KindOf(err) == Usage }

// IsDerivation reports whether err is a Derivation error.
func IsDerivation(err error) bool { return KindOf(err) == Derivation }

// IsSerialization reports whether err is a Serialization error.
func IsSerialization(err error) bool { return KindOf(err) == Serialization }

// IsStorage reports whether err is a Storage error.
func IsStorage(err error) bool { return KindOf(err) == Storage }
