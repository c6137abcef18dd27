package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Descriptor error codes
const (
	ErrDescriptorSyntax   ErrorCode = "DESCRIPTOR_SYNTAX"
	ErrDescriptorParse    ErrorCode = "DESCRIPTOR_PARSE"
	ErrDescriptorNotFound ErrorCode = "DESCRIPTOR_NOT_FOUND"
)

// Execution error codes
const (
	ErrUnknownStepReference      ErrorCode = "UNKNOWN_STEP_REFERENCE"
	ErrOfflineCapabilityViolated ErrorCode = "OFFLINE_CAPABILITY_VIOLATION"
	ErrRollbackDispatch          ErrorCode = "ROLLBACK_DISPATCH"
	ErrStepPanic                 ErrorCode = "STEP_PANIC"
	ErrDuplicateStep             ErrorCode = "DUPLICATE_STEP"
	ErrExecutorState             ErrorCode = "EXECUTOR_STATE"
)

// Coder is implemented by errors that carry an ErrorCode.
type Coder interface {
	Code() ErrorCode
}

// Error represents a structured error with code, message and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from anywhere in an error chain.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return code != "" && GetErrorCode(err) == code
}
