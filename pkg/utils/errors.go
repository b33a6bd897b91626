// Package utils provides shared helpers for the MediaScore application.
package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Common error types for reuse.
var (
	ErrBadRequest          = NewError(fiber.StatusBadRequest, "Invalid request")
	ErrUnauthorized        = NewError(fiber.StatusUnauthorized, "Unauthorized")
	ErrForbidden           = NewError(fiber.StatusForbidden, "Forbidden")
	ErrNotFound            = NewError(fiber.StatusNotFound, "Resource not found")
	ErrInternalServerError = NewError(fiber.StatusInternalServerError, "Internal server error")
)

// CustomError represents a structured infrastructure error.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewError creates a new CustomError with a status code, message, and optional details.
func NewError(code int, message string, details ...string) *CustomError {
	e := &CustomError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// WrapError wraps an existing error with a custom status and message.
func WrapError(err error, code int, message string) *CustomError {
	return NewError(code, message, err.Error())
}

// FieldErrors maps input field names to human-readable validation messages,
// in the shape the API returns for 400 responses.
type FieldErrors map[string][]string

// Add appends a message to a field's error list.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Merge folds another error map into this one.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		fe[field] = append(fe[field], msgs...)
	}
}

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(fe))
}
