// Package fault owns the error taxonomy shared by every pipeline stage.
//
// Ownership boundary:
// - stable error kinds
// - structured error value with field context
//
// Callers branch on Kind (IsKind / errors.As), never on Error() text.
package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindIO         Kind = "IOError"
	KindAllocation Kind = "AllocationError"
	KindXMLSyntax  Kind = "XMLSyntaxError"
	KindSchema     Kind = "SchemaError"
	KindFormat     Kind = "FormatError"
	KindRange      Kind = "RangeError"
	KindCapacity   Kind = "CapacityError"
	KindEncode     Kind = "EncodeError"
	KindConfig     Kind = "ConfigError"
)

// Error is the structured error carried out of every stage.
//
// Field names the record field (or path) being processed when known.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, field, msg string) error {
	return &Error{Kind: kind, Field: field, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, field, format string, args ...any) error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a structured error around cause.
func Wrap(kind Kind, field, msg string, cause error) error {
	if cause == nil {
		return New(kind, field, msg)
	}
	return &Error{Kind: kind, Field: field, Message: msg, Cause: cause}
}

// WithField re-labels a structured error with the record field it belongs to.
// Errors that are not *Error, or that already carry a field, are returned as is.
func WithField(err error, field string) error {
	var e *Error
	if !errors.As(err, &e) || e.Field != "" {
		return err
	}
	out := *e
	out.Field = field
	return &out
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
