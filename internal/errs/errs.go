// Package errs defines the typed error values shared by the fulfillment
// services. Every business rejection carries a Kind so transports can map it
// without string matching, and a retry hint for callers.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindNotFound               Kind = "not_found"
	KindForbidden              Kind = "forbidden"
	KindInvariantViolation     Kind = "invariant_violation"
	KindInactiveReference      Kind = "inactive_reference"
	KindConcurrentModification Kind = "concurrent_modification"
)

// Error is a classified business error.
type Error struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, errs.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Retryable reports whether repeating the same request may succeed.
// NotFound is retryable because reads can lag writes on replicated stores.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindNotFound, KindConcurrentModification:
		return true
	default:
		return false
	}
}

// Kind sentinels for errors.Is.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrInvariantViolation     = &Error{Kind: KindInvariantViolation}
	ErrInactiveReference      = &Error{Kind: KindInactiveReference}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
)

func Validation(field, code, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   strings.TrimSpace(field),
		Code:    strings.TrimSpace(code),
		Message: message,
	}
}

func Required(field string) *Error {
	return Validation(field, "required", field+" is required")
}

func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    entity + "_not_found",
		Message: fmt.Sprintf("%s not found: %v", entity, id),
	}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: message}
}

// Transition reports a status change the role is not allowed to make.
func Transition(role string, entity string, id any, from, to string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Code:    "invalid_transition",
		Message: fmt.Sprintf("%s %v: transition %s -> %s not allowed for role %s", entity, id, from, to, role),
	}
}

func Invariant(code, message string) *Error {
	return &Error{Kind: KindInvariantViolation, Code: code, Message: message}
}

func InactiveReference(entity string, id any) *Error {
	return &Error{
		Kind:    KindInactiveReference,
		Code:    entity + "_inactive",
		Message: fmt.Sprintf("%s inactive: %v", entity, id),
	}
}

func ConcurrentModification(entity string, id any) *Error {
	return &Error{
		Kind:    KindConcurrentModification,
		Code:    "concurrent_modification",
		Message: fmt.Sprintf("%s %v was modified concurrently, retry", entity, id),
	}
}

// KindOf returns the classification of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Retryable()
	}
	return false
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}
