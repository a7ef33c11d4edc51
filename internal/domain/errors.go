package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of an application error.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeInvalidRange      ErrorCode = "INVALID_DATE_RANGE"
	CodeInvalidDiscount   ErrorCode = "INVALID_DISCOUNT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeCapacityExhausted ErrorCode = "CAPACITY_EXHAUSTED"
)

// AppError is a typed application error carrying a machine-readable code.
// All expected failure modes are returned as *AppError; anything else is
// treated as an internal fault by the transport layer.
type AppError struct {
	Code    ErrorCode
	Message string
}

// Error returns the error message.
func (e *AppError) Error() string {
	return e.Message
}

// NewValidationError creates an error for malformed or rejected input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewInvalidRangeError creates an error for a date range where check-out is
// not strictly after check-in.
func NewInvalidRangeError(message string) *AppError {
	return &AppError{Code: CodeInvalidRange, Message: message}
}

// NewInvalidDiscountError creates an error for a discount outside [0, subtotal].
func NewInvalidDiscountError(message string) *AppError {
	return &AppError{Code: CodeInvalidDiscount, Message: message}
}

// NewNotFoundError creates an error for a missing resource. Ownership
// mismatches are reported with this same error so existence is not leaked.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", resource, id)}
}

// NewForbiddenError creates an error for an operation the caller may not perform.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewConflictError creates an error for a concurrent-modification conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewInvalidStateError creates an error for a disallowed lifecycle transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("invalid state transition from %s to %s", from, to),
	}
}

// NewCapacityExhaustedError creates an error for a location with no free spots.
// This is an expected business outcome, not a system fault.
func NewCapacityExhaustedError(locationID string) *AppError {
	return &AppError{
		Code:    CodeCapacityExhausted,
		Message: fmt.Sprintf("no capacity available at location %s", locationID),
	}
}

// IsCode reports whether err is an *AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
