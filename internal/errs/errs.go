package errs

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Wrap adds context and preserves the error chain (errors.Is/As works).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context and preserves the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	args = append(args, err)
	return fmt.Errorf(format+": %w", args...)
}

// WithStack captures a stack trace once, at the root cause boundary.
func WithStack(err error) error {
	if err == nil {
		return nil
	}

	var se *StackError
	if errors.As(err, &se) {
		return err
	}

	return &StackError{
		err:   err,
		stack: debug.Stack(),
	}
}

// StackError wraps an error and stores a stack trace.
type StackError struct {
	err   error
	stack []byte
}

func (e *StackError) Error() string { return e.err.Error() }
func (e *StackError) Unwrap() error { return e.err }
func (e *StackError) Stack() []byte { return e.stack }

// Kind classifies failures surfaced by the marketplace core.
type Kind string

const (
	KindInternal            Kind = "internal"
	KindValidation          Kind = "validation"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindMatchingUnavailable Kind = "matching_unavailable"
)

// Stable codes callers may switch on.
const (
	CodeInvalidInput           = "InvalidInput"
	CodeDuplicateQuote         = "DuplicateQuote"
	CodeQuoteNoLongerAvailable = "QuoteNoLongerAvailable"
	CodeJobNotOpen             = "JobNotOpen"
	CodeInvalidTransition      = "InvalidTransition"
	CodeDuplicateRating        = "DuplicateRating"
	CodeDuplicateContractor    = "DuplicateContractor"
	CodeNotFound               = "NotFound"
	CodeNotOwner               = "NotOwner"
	CodeMatchingUnavailable    = "MatchingUnavailable"
)

// Error is a typed failure with a kind and a stable code.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, code string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, CodeInvalidInput, nil, format, args...)
}

func Conflict(code string, format string, args ...any) error {
	return newError(KindConflict, code, nil, format, args...)
}

func NotFound(err error, format string, args ...any) error {
	return newError(KindNotFound, CodeNotFound, err, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, CodeNotOwner, nil, format, args...)
}

func MatchingUnavailable(err error, format string, args ...any) error {
	return newError(KindMatchingUnavailable, CodeMatchingUnavailable, err, format, args...)
}

// KindOf returns the kind of the first typed error in the chain.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first typed error in the chain, or "".
func CodeOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return ""
}

// IsCode reports whether the chain carries a typed error with the code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Loggable makes slog encode the error as structured fields.
// Usage: slog.Any("err", errs.Loggable(err))
type loggable struct{ err error }

func Loggable(err error) slog.LogValuer { return loggable{err: err} }

func (l loggable) LogValue() slog.Value {
	if l.err == nil {
		return slog.GroupValue()
	}

	attrs := []slog.Attr{
		slog.String("message", l.err.Error()),
		slog.Any("chain", ErrorChainStrings(l.err)),
	}
	if kind := KindOf(l.err); kind != KindInternal {
		attrs = append(attrs, slog.String("kind", string(kind)), slog.String("code", CodeOf(l.err)))
	}

	var se *StackError
	if errors.As(l.err, &se) {
		attrs = append(attrs, slog.String("stack", string(se.Stack())))
	}

	return slog.GroupValue(attrs...)
}

// ErrorChainStrings returns the unwrap chain as strings (outer -> inner).
func ErrorChainStrings(err error) []string {
	if err == nil {
		return nil
	}

	out := make([]string, 0, 8)
	for e := err; e != nil; e = errors.Unwrap(e) {
		out = append(out, e.Error())
	}
	return out
}
