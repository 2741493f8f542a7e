package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes with HTTP status mapping
const (
	// Request errors
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeValidationFailed  = "VALIDATION_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError     = "INTERNAL_ERROR"

	// Transfer errors
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeMalformedInput      = "MALFORMED_INPUT"
	ErrCodeColumnNotFound      = "COLUMN_NOT_FOUND"
	ErrCodeEmptyInput          = "EMPTY_INPUT"
	ErrCodeConnectivityFailure = "CONNECTIVITY_FAILURE"
	ErrCodeIOFailure           = "IO_FAILURE"
	ErrCodeLoadFailure         = "LOAD_FAILURE"
	ErrCodeQueryFailed         = "QUERY_FAILED"
)

// HTTPStatus maps error codes to HTTP status codes
var HTTPStatus = map[string]int{
	ErrCodeInvalidRequest:    http.StatusBadRequest,
	ErrCodeValidationFailed:  http.StatusUnprocessableEntity,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	ErrCodeInternalError:     http.StatusInternalServerError,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeMalformedInput:      http.StatusBadRequest,
	ErrCodeColumnNotFound:      http.StatusBadRequest,
	ErrCodeEmptyInput:          http.StatusBadRequest,
	ErrCodeConnectivityFailure: http.StatusServiceUnavailable,
	ErrCodeIOFailure:           http.StatusInternalServerError,
	ErrCodeLoadFailure:         http.StatusInternalServerError,
	ErrCodeQueryFailed:         http.StatusInternalServerError,
}

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

// Error renders the message, the details and the cause text in that order.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += " - " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}

	return &AppError{
		Code:    eb.code,
		Message: eb.message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

// getDefaultMessage returns a default message for error codes
func getDefaultMessage(code string) string {
	messages := map[string]string{
		ErrCodeInvalidRequest:    "The request is invalid",
		ErrCodeValidationFailed:  "Validation failed",
		ErrCodeRateLimitExceeded: "Rate limit exceeded",
		ErrCodeInternalError:     "Internal server error",

		ErrCodeNotFound:            "Resource not found",
		ErrCodeMalformedInput:      "Malformed input",
		ErrCodeColumnNotFound:      "Column not found",
		ErrCodeEmptyInput:          "No data rows to load",
		ErrCodeConnectivityFailure: "Cannot reach the store",
		ErrCodeIOFailure:           "File I/O failed",
		ErrCodeLoadFailure:         "Load rejected by the store",
		ErrCodeQueryFailed:         "Query execution failed",
	}

	if msg, exists := messages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// Convenience functions for common error types

func NewNotFoundError(resource string) *AppError {
	return NewErrorBuilder(ErrCodeNotFound).
		WithMessage(fmt.Sprintf("%s not found", resource)).
		Build()
}

func NewMalformedInputError(message string, cause error) *AppError {
	return NewErrorBuilder(ErrCodeMalformedInput).
		WithMessage(message).
		WithCause(cause).
		Build()
}

func NewColumnNotFoundError(column, source string) *AppError {
	return NewErrorBuilder(ErrCodeColumnNotFound).
		WithMessage(fmt.Sprintf("column not found in %s: %s", source, column)).
		Build()
}

func NewEmptyInputError(message string) *AppError {
	return NewErrorBuilder(ErrCodeEmptyInput).
		WithMessage(message).
		Build()
}

func NewConnectivityError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeConnectivityFailure).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewIOError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeIOFailure).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewLoadError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeLoadFailure).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewQueryError(cause error, details string) *AppError {
	return NewErrorBuilder(ErrCodeQueryFailed).
		WithCause(cause).
		WithDetails(details).
		Build()
}

func NewValidationError(message string, details string) *AppError {
	return NewErrorBuilder(ErrCodeValidationFailed).
		WithMessage(message).
		WithDetails(details).
		Build()
}

// IsErrorType checks if an error matches a specific error code
func IsErrorType(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// KindOf returns the code of the outermost AppError in the chain, or
// ErrCodeInternalError when err carries none.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	if status, exists := HTTPStatus[KindOf(err)]; exists {
		return status
	}
	return http.StatusInternalServerError
}

// OperationFailed renders the caller-facing message for a failed operation.
func OperationFailed(operation string, err error) string {
	return fmt.Sprintf("%s failed: %v", operation, err)
}
