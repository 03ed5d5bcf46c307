package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation indicates invalid input data
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeUnauthorized indicates authentication failure
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	// ErrorTypeForbidden indicates insufficient permissions
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeUnprocessable indicates a well-formed request the world state cannot satisfy
	ErrorTypeUnprocessable ErrorType = "unprocessable"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeMethodNotAllowed indicates an unsupported HTTP method
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
	// ErrorTypeExternal indicates an external service error
	ErrorTypeExternal ErrorType = "external"
)

// Reason is a machine-readable code naming which check failed
type Reason string

const (
	ReasonNotFound             Reason = "not_found"
	ReasonPermissionDenied     Reason = "permission_denied"
	ReasonInsufficientCapacity Reason = "insufficient_capacity"
	ReasonUnmetPrerequisite    Reason = "unmet_prerequisite"
	ReasonInvalidSchedule      Reason = "invalid_schedule"
	ReasonStaleDestination     Reason = "stale_destination"
	ReasonHandlerFailed        Reason = "handler_failed"
)

// AppError is the base error type for application errors
type AppError struct {
	Type    ErrorType
	Reason  Reason
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFoundf creates a not found error with formatting
func NotFoundf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a validation error
func Validation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// Validationf creates a validation error with formatting
func Validationf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapValidation wraps an error as a validation error
func WrapValidation(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Err:     err,
	}
}

// Schedulingf reports a malformed duration or handler id at schedule time
func Schedulingf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Reason:  ReasonInvalidSchedule,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflictf creates a conflict error with formatting
func Conflictf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// PermissionDeniedf creates a forbidden error for ownership checks
func PermissionDeniedf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Reason:  ReasonPermissionDenied,
		Message: fmt.Sprintf(format, args...),
	}
}

// InsufficientCapacityf reports a celestial without room for a blueprint
func InsufficientCapacityf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnprocessable,
		Reason:  ReasonInsufficientCapacity,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnmetPrerequisitef reports a missing required construction
func UnmetPrerequisitef(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnprocessable,
		Reason:  ReasonUnmetPrerequisite,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unprocessable creates an unprocessable error with an explicit reason
func Unprocessable(reason Reason, message string) error {
	return &AppError{
		Type:    ErrorTypeUnprocessable,
		Reason:  reason,
		Message: message,
	}
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) error {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// Forbidden creates a forbidden error
func Forbidden(message string) error {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// MethodNotAllowed creates a method not allowed error
func MethodNotAllowed(method string) error {
	return &AppError{
		Type:    ErrorTypeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
	}
}

// WrapExternal wraps an error as an external service error
func WrapExternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// GetType returns the error type of an error
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetReason returns the failure reason of an error, or ReasonHandlerFailed when none was attached
func GetReason(err error) Reason {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Reason != "" {
		return appErr.Reason
	}
	return ReasonHandlerFailed
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errorType
}
