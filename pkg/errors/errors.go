package errors

import (
	"errors"
	"fmt"
)

// Error types for better error classification and handling

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStart      ErrorType = "start"
	ErrorTypePoll       ErrorType = "poll"
	ErrorTypeStop       ErrorType = "stop"
	ErrorTypeHostReport ErrorType = "host_report"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeCancelled  ErrorType = "cancelled"
	ErrorTypeNotSupport ErrorType = "not_supported"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Validation errors
func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

// Unit lifecycle errors. None of them is fatal to the supervisor.
func NewStartError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeStart, message, cause)
}

func NewPollError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePoll, message, cause)
}

func NewStopError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeStop, message, cause)
}

// NewHostReportError is the only error that aborts the service entry point.
func NewHostReportError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeHostReport, message, cause)
}

// System errors
func NewTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, message, cause)
}

func NewPermissionError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePermission, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

func NewNotSupportedError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotSupport, message, cause)
}

// Error checking helpers
func isType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errorType
}

func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool   { return isType(err, ErrorTypeNotFound) }
func IsStartError(err error) bool      { return isType(err, ErrorTypeStart) }
func IsPollError(err error) bool       { return isType(err, ErrorTypePoll) }
func IsStopError(err error) bool       { return isType(err, ErrorTypeStop) }
func IsHostReportError(err error) bool { return isType(err, ErrorTypeHostReport) }
func IsTimeoutError(err error) bool    { return isType(err, ErrorTypeTimeout) }
func IsIOError(err error) bool         { return isType(err, ErrorTypeIO) }
func IsInternalError(err error) bool   { return isType(err, ErrorTypeInternal) }
func IsCancelledError(err error) bool  { return isType(err, ErrorTypeCancelled) }
func IsNotSupportedError(err error) bool {
	return isType(err, ErrorTypeNotSupport)
}

// Error aggregation for bulk operations
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
