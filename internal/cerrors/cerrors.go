// Package cerrors is the compiler's error taxonomy (spec.md §7). It is a
// direct descendant of sentra's internal/errors.SentraError: a tagged Kind,
// a source location, and an Error() string renderer. Unlike the teacher,
// every Kind here is fatal — there is no recovery, matching §7.
package cerrors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the §7 error taxonomy.
type Kind string

const (
	ParseError      Kind = "ParseError"
	UndeclaredIdent Kind = "UndeclaredIdent"
	Redeclaration   Kind = "Redeclaration"
	NotConstant     Kind = "NotConstant"
	IndexMismatch   Kind = "IndexMismatch"
	RawIRParseError Kind = "RawIRParseError"
	IOError         Kind = "IOError"
	// Unreachable is the "unimplemented-kind assertion" / internal
	// invariant bucket: its firing is a compiler bug, not a user error.
	Unreachable Kind = "Unreachable"
)

// SourceLocation pinpoints a diagnostic in the input file.
type SourceLocation struct {
	File string
	Line int
	Col  int
}

// Error is a fatal compiler diagnostic.
type Error struct {
	Kind     Kind
	Message  string
	Location SourceLocation
	cause    error // non-nil only for Kind == Unreachable, carries a stack trace
}

func (e *Error) Error() string {
	if e.Location.File == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s\n  at %s:%d:%d", e.Kind, e.Message, e.Location.File, e.Location.Line, e.Location.Col)
}

// Unwrap exposes the pkg/errors stack trace on Bug()-constructed errors.
func (e *Error) Unwrap() error { return e.cause }

// Loc builds a SourceLocation; a convenience so call sites read like
// cerrors.New(cerrors.UndeclaredIdent, "...", cerrors.Loc(file, line, col)).
func Loc(file string, line, col int) SourceLocation {
	return SourceLocation{File: file, Line: line, Col: col}
}

// New creates a user-facing fatal diagnostic (any Kind except Unreachable).
func New(kind Kind, message string, loc SourceLocation) *Error {
	return &Error{Kind: kind, Message: message, Location: loc}
}

// Bug constructs an Unreachable diagnostic for a failed internal invariant,
// wrapping with a pkg/errors stack trace — the Go-idiomatic analogue of the
// teacher's SentraError.CallStack for reporting a compiler bug (SPEC_FULL.md
// §7.E).
func Bug(format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:    Unreachable,
		Message: msg,
		cause:   pkgerrors.New(msg),
	}
}

// StackTrace returns the formatted stack, if this is a Bug()-constructed
// error; empty otherwise.
func (e *Error) StackTrace() string {
	type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
	if st, ok := e.cause.(stackTracer); ok {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
