// Package errors provides sentinel errors that carry a cause and some context
// without losing their identity for errors.Is.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New sentinel Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is a sentinel error which may be decorated with a cause (Wrap) or
// some extra context (WrapMessage).
//
// Decorating returns a copy: the sentinel itself is never mutated and the copy
// still matches the sentinel with errors.Is.
type Error struct {
	msg    string
	detail string
	err    error
	kind   *Error
}

// Error message
func (e *Error) Error() string {
	msg := e.msg
	if e.detail != "" {
		msg += ": " + e.detail
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error
func (e *Error) Wrap(err error) *Error {
	c := e.clone()
	c.err = err
	return c
}

// WrapMessage adds some formatted context to the error
func (e *Error) WrapMessage(format string, args ...interface{}) *Error {
	c := e.clone()
	if c.detail != "" {
		c.detail += ", "
	}
	c.detail += fmt.Sprintf(format, args...)
	return c
}

func (e *Error) clone() *Error {
	c := *e
	if e.kind == nil {
		c.kind = e
	}
	return &c
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.root() == t.root()
}

func (e *Error) root() *Error {
	if e.kind != nil {
		return e.kind
	}
	return e
}

// As finds the first error in err's chain that matches target
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
