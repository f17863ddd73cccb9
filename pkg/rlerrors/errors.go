// Package rlerrors provides the structured error taxonomy shared by every
// comparer: a single tagged error type whose Kind is one of the six values
// the redline system recognizes, plus helpers for wrapping and classifying
// underlying failures.
package rlerrors

import (
	"fmt"
	"strings"
)

// Kind classifies a redline error into one of the six kinds the system
// recognizes. Only BrokenReference is ever recovered locally; every other
// kind is fatal to the comparison in progress.
type Kind string

const (
	// MalformedPackage means a ZIP/OPC invariant was violated or a
	// required part is missing. Fatal; no change set is produced.
	MalformedPackage Kind = "MalformedPackage"

	// UnsupportedContent means a part uses an extension point the
	// comparer does not understand well enough to diff correctly. Fatal.
	UnsupportedContent Kind = "UnsupportedContent"

	// BrokenReference means a relationship targets a part that does not
	// exist. Recovered locally (the referent is treated as absent); no
	// comparer returns this kind or records a warning for it.
	BrokenReference Kind = "BrokenReference"

	// InvalidSetting means a numeric threshold fell outside [0,1] or a
	// tolerance was negative. Fatal before any comparison work begins.
	InvalidSetting Kind = "InvalidSetting"

	// Cancelled means the caller's cancellation signal was observed.
	// Propagated upward with no output.
	Cancelled Kind = "Cancelled"

	// Internal means an invariant inside the core was violated. Fatal,
	// with a stable error code for the caller to log.
	Internal Kind = "Internal"
)

// Error is the single typed error surfaced to callers. It never carries a
// partial ChangeSet alongside it.
type Error struct {
	Kind    Kind
	Op      string         // the operation that failed, e.g. "wml.Canonicalize"
	Message string         // operator-readable message
	Err     error          // wrapped underlying error, if any
	Context map[string]any // optional structured context
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Err))
	}
	if len(e.Context) > 0 {
		var ctx []string
		for k, v := range e.Context {
			ctx = append(ctx, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(ctx, ", ")))
	}
	return strings.Join(parts, " | ")
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an *Error with a formatted message and no wrapped cause.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err under the given kind and operation. Returns nil if err is
// nil, so call sites can write `return rlerrors.Wrap(err, ...)` unconditionally.
func Wrap(err error, kind Kind, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WrapContext wraps err with additional structured context.
func WrapContext(err error, kind Kind, op string, context map[string]any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err, Context: context}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of err if it is an *Error, or Internal otherwise —
// callers that must classify an arbitrary error (e.g. at a process boundary)
// use this rather than a failed type assertion.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Internal
}
