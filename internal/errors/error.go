package errors

import (
	"fmt"
	"strconv"
)

// Category represents the type of error.
type Category string

const (
	CategoryLookup  Category = "lookup"
	CategoryRuntime Category = "runtime"
	CategoryFetch   Category = "fetch"
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
)

// ReaError is a structured error with a code, the registry key it concerns
// and an optional wrapped cause.
type ReaError struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Key is the registry key (store or service) involved, if any.
	Key string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ReaError) Error() string {
	msg := e.Message
	if e.Key != "" {
		msg += ": " + strconv.Quote(e.Key)
	}
	if e.Wrapped != nil && e.Wrapped.Error() != e.Message {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ReaError) Unwrap() error {
	return e.Wrapped
}

// WithKey records the registry key the error concerns.
func (e *ReaError) WithKey(key string) *ReaError {
	e.Key = key
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ReaError) WithSuggestion(s string) *ReaError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ReaError) WithDetail(d string) *ReaError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *ReaError) Wrap(err error) *ReaError {
	e.Wrapped = err
	return e
}

// New creates a ReaError from a registered error code.
func New(code string) *ReaError {
	template, ok := registry[code]
	if !ok {
		return &ReaError{
			Code:    code,
			Message: "unknown error",
		}
	}
	return &ReaError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new ReaError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ReaError {
	return &ReaError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ReaError.
// Errors that already are a *ReaError are returned unchanged.
func FromError(err error, code string) *ReaError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*ReaError); ok {
		return re
	}
	return New(code).Wrap(err)
}

// FromPanic converts a recovered panic value into an error.
// Values that already are errors are returned as-is so callers can still
// match them with errors.Is.
func FromPanic(v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case error:
		return x
	case string:
		return fmt.Errorf("%s", x)
	default:
		return fmt.Errorf("%v", x)
	}
}
