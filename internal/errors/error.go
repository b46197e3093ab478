package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryProtocol Category = "protocol"
	CategoryDispatch Category = "dispatch"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// SiloError is a structured error with a stable code, explanation and fix hints.
type SiloError struct {
	// Code is a unique error identifier (e.g., "S001").
	Code string

	// Category is the error type (protocol, dispatch, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code showing the correct approach.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SiloError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SiloError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion replaces the fix suggestion.
func (e *SiloError) WithSuggestion(s string) *SiloError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *SiloError) WithExample(ex string) *SiloError {
	e.Example = ex
	return e
}

// WithDetail replaces the detailed explanation.
func (e *SiloError) WithDetail(d string) *SiloError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *SiloError) Wrap(err error) *SiloError {
	e.Wrapped = err
	return e
}

// New creates a SiloError from a registered error code.
func New(code string) *SiloError {
	template, ok := registry[code]
	if !ok {
		return &SiloError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SiloError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new SiloError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SiloError {
	return &SiloError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SiloError.
func FromError(err error, code string) *SiloError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SiloError); ok {
		return se
	}
	return New(code).Wrap(err)
}
