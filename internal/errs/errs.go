// Package errs implements the error taxonomy of §7: a small set of kinds
// (not Go types) that every fallible operation in the pipeline classifies
// itself into, so logs and metrics can be grouped by category without
// parsing message strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the six categories named in §7.
type Kind string

const (
	// KindConfig: malformed or semantically invalid configuration. Fatal at
	// startup (§7).
	KindConfig Kind = "config"
	// KindTransport: bus or webhook I/O failure. Recovered locally via
	// retry; escalates the process to Degraded on sustained failure.
	KindTransport Kind = "transport"
	// KindValidation: telemetry rejected before reaching the engine.
	KindValidation Kind = "validation"
	// KindStorage: persistence failed; the anomaly is still dispatched.
	KindStorage Kind = "storage"
	// KindDetector: an individual detector raised an internal error; other
	// detectors still run.
	KindDetector Kind = "detector"
	// KindState: baseline snapshot corrupted at restore.
	KindState Kind = "state"
)

// Error wraps an underlying error with its §7 category.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// New wraps err under kind. Returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Wrap is New with an added format string, following ariadne's
// fmt.Errorf("...: %w", err) idiom.
func Wrap(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or any error it wraps) was classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
