package errors

import (
	"errors"
	"fmt"
)

// ErrorData carries structured detail about an error: the offending field,
// the values allowed for it, or a per-requirement breakdown (used for
// password validation).
type ErrorData struct {
	Field        string          `json:"field,omitempty"`
	Values       []string        `json:"values,omitempty"`
	Requirements map[string]bool `json:"requirements,omitempty"`
}

// AppError represents a structured application error
type AppError struct {
	Code    int    // Business error code
	Message string // Human-readable message
	Err     error  // Underlying error (if any)
	Details string // Additional details
	Data    *ErrorData
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	return GetHTTPStatus(e.Code)
}

// WithField records the offending field name
func (e *AppError) WithField(field string) *AppError {
	if e.Data == nil {
		e.Data = &ErrorData{}
	}
	e.Data.Field = field
	return e
}

// WithValues records the allowed values for the offending field
func (e *AppError) WithValues(values ...string) *AppError {
	if e.Data == nil {
		e.Data = &ErrorData{}
	}
	e.Data.Values = values
	return e
}

// WithRequirements records a per-requirement boolean breakdown
func (e *AppError) WithRequirements(reqs map[string]bool) *AppError {
	if e.Data == nil {
		e.Data = &ErrorData{}
	}
	e.Data.Requirements = reqs
	return e
}

// New creates a new AppError with the given code
func New(code int, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Details: detail,
	}
}

// Wrap wraps an existing error with an error code
func Wrap(err error, code int, details ...string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if len(details) > 0 && details[0] != "" {
			appErr.Details = details[0]
		}
		return appErr
	}

	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}

	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Err:     err,
		Details: detail,
	}
}

// Wrapf wraps an error with formatted details
func Wrapf(err error, code int, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is checks if err is an AppError with the given code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ExtractCode extracts the error code from an error
func ExtractCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

// ExtractData extracts structured error data, if any
func ExtractData(err error) *ErrorData {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Data
	}
	return nil
}

// GetDetails extracts error details
func GetDetails(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Details
		}
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
		return ""
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return New(ErrNotFound, resource)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(details ...string) *AppError {
	return New(ErrForbidden, details...)
}

// NewValidationError creates an invalid-parameter error naming the field
func NewValidationError(field string) *AppError {
	return New(ErrInvalidParams).WithField(field)
}

// NewConflictError creates a conflict error naming the field
func NewConflictError(field string) *AppError {
	return New(ErrConflict).WithField(field)
}
