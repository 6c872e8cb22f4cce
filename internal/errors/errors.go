// Package errors provides structured error types for the Tessera
// partitioning core. All errors carry a category, code, and message for
// consistent handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by failure kind.
type ErrorCategory string

const (
	// ErrCategoryDefinition covers malformed or self-contradictory bound
	// declarations. Always fatal to the build that encountered them.
	ErrCategoryDefinition ErrorCategory = "DEFINITION"

	// ErrCategoryOverlap covers candidate bounds that conflict with an
	// existing partition. Fatal to the DDL operation.
	ErrCategoryOverlap ErrorCategory = "OVERLAP"

	// ErrCategoryRouting covers rows that match no partition. Not a
	// system fault; surfaced to the statement level.
	ErrCategoryRouting ErrorCategory = "ROUTING"

	// ErrCategoryCatalog covers catalog access failures.
	ErrCategoryCatalog ErrorCategory = "CATALOG"

	// ErrCategoryInternal covers caller contract breaches: the inputs
	// were invalid before they reached this core.
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Definition codes
	CodeEmptyRange          = "EMPTY_RANGE"
	CodeDuplicateNull       = "DUPLICATE_NULL"
	CodeWrongComponentCount = "WRONG_COMPONENT_COUNT"
	CodeBadDeclaration      = "BAD_DECLARATION"

	// Overlap codes
	CodeBoundOverlap = "BOUND_OVERLAP"

	// Routing codes
	CodeNoPartition = "NO_PARTITION"

	// Catalog codes
	CodeTableNotFound = "TABLE_NOT_FOUND"
	CodeCatalogIO     = "CATALOG_IO"

	// Internal codes
	CodeStrategyMismatch = "STRATEGY_MISMATCH"
	CodeUnexpected       = "UNEXPECTED"
)

// Error is the structured error type used throughout the system.
type Error struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category ErrorCategory, code, message string) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(category ErrorCategory, code, format string, args ...interface{}) *Error {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a structured Error.
func GetCategory(err error) ErrorCategory {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a structured Error.
func GetCode(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRoutingFailure reports whether the error chain is a routing failure,
// which callers surface as a user-visible error rather than a fault.
func IsRoutingFailure(err error) bool {
	return GetCategory(err) == ErrCategoryRouting
}

// Convenience constructors for common errors.

func NewDefinitionError(code, format string, args ...interface{}) *Error {
	return Newf(ErrCategoryDefinition, code, format, args...)
}

func NewOverlapError(format string, args ...interface{}) *Error {
	return Newf(ErrCategoryOverlap, CodeBoundOverlap, format, args...)
}

func NewRoutingError(format string, args ...interface{}) *Error {
	return Newf(ErrCategoryRouting, CodeNoPartition, format, args...)
}

func NewCatalogError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewInternalError(format string, args ...interface{}) *Error {
	return Newf(ErrCategoryInternal, CodeUnexpected, format, args...)
}
