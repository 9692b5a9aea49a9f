// Package apperr defines the error-kind taxonomy shared across the
// prepare and run phases: ConfigError, IngestError, BuildError,
// StoreError, RouteError, ExecError, FallbackError.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of the propagation policy:
// prepare-fatal kinds abort the whole run, run-phase kinds are recorded
// per-query and do not stop sibling queries.
type Kind int

const (
	// Config covers missing directories and malformed flags. Fatal at
	// process start.
	Config Kind = iota
	// Ingest covers unreadable input files, schema mismatches, and
	// unparseable timestamps. Fatal in prepare.
	Ingest
	// Build covers fold/merge invariant violations. Fatal in prepare;
	// no cube is persisted when this occurs.
	Build
	// Store covers missing/corrupt cube files or a timezone mismatch
	// between a cube family and the run-time pin. Fatal at run start.
	Store
	// Route covers the case where no cube matches and the fallback is
	// unavailable. Per-query.
	Route
	// Exec covers mismatched columns, unsupported operators, or
	// arithmetic underflow detected by the executor. Per-query.
	Exec
	// Fallback covers errors surfaced by the underlying relational
	// executor. Per-query.
	Fallback
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Ingest:
		return "IngestError"
	case Build:
		return "BuildError"
	case Store:
		return "StoreError"
	case Route:
		return "RouteError"
	case Exec:
		return "ExecError"
	case Fallback:
		return "FallbackError"
	default:
		return "UnknownError"
	}
}

// Fatal reports whether an error of this kind must abort the whole
// prepare or run phase rather than being recorded per-query.
func (k Kind) Fatal() bool {
	switch k {
	case Config, Ingest, Build, Store:
		return true
	default:
		return false
	}
}

// Error wraps a Kind, a short contextual message, and an optional cause.
type Error struct {
	Kind    Kind
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap constructs an *Error around an existing cause.
func Wrap(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ErrTimeDecode (the TimeDecodeError case) is returned by the
// time-dimension encoder when ts is out of representable range. It is
// always wrapped as an Ingest error.
var ErrTimeDecode = errors.New("timestamp out of representable range")
