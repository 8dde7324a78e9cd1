// Package errdef defines the error kinds shared by every quartz package.
//
// Errors are created with New, which wraps one of the sentinel kinds so callers
// can classify failures with errors.Is while still getting a readable message:
//
//	err := errdef.New(errdef.ErrNotFound, "no endpoint at %s", handle)
//	errors.Is(err, errdef.ErrNotFound) // true
package errdef

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing handle, scope, history entry or field.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a creation collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrMalformedInput reports invalid user input: URLs, header names or values,
	// methods, unreadable cookie sources.
	ErrMalformedInput = errors.New("malformed input")

	// ErrPersistence reports a filesystem read or write failure.
	ErrPersistence = errors.New("persistence failure")

	// ErrTransport reports a network or protocol failure. Non-2xx statuses are
	// never transport failures.
	ErrTransport = errors.New("transport failure")

	// ErrTooManyRedirects reports a redirect chain longer than the configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrUnknownField reports a history projection key with no accessor.
	ErrUnknownField = fmt.Errorf("unknown field: %w", ErrNotFound)
)

type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

// New returns an error of the given kind with a formatted message.
func New(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that also wraps cause. It returns nil
// when cause is nil.
func Wrap(kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), err: cause}
}

// Persist wraps a filesystem error as ErrPersistence.
func Persist(cause error, format string, args ...any) error {
	return Wrap(ErrPersistence, cause, format, args...)
}

// Is reports whether err is of the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
