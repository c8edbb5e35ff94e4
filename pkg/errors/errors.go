// Package errors provides structured error types for wordstree.
//
// Every failure the loaders surface to callers carries a machine-readable
// code so that the web and rendering layers can tell a missing tree apart
// from a corrupt one without parsing messages.
//
// # Error Codes
//
//   - NOT_FOUND: a requested tree, document or zoom level is absent
//   - CORRUPT_DATA: stored branches violate the breadth-first ordering
//   - MISSING_DEPENDENCY: a tile was saved before its zoom level
//   - INVALID_*: a required argument was missing or malformed
//   - UNSUPPORTED: the backend does not implement the operation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "tree %d does not exist", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing tree
//	}
//
//	// Wrap storage errors
//	err := errors.Wrap(errors.ErrCodeCorruptData, origErr, "document %q", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeMissingDependency Code = "MISSING_DEPENDENCY"

	// Integrity errors
	ErrCodeCorruptData Code = "CORRUPT_DATA"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
