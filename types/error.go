package types

import "fmt"

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Coordination error codes
const (
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrInvalidStateData  ErrorCode = "INVALID_STATE_DATA"
	ErrAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	ErrAgentExists       ErrorCode = "AGENT_EXISTS"
	ErrAgentUnregistered ErrorCode = "AGENT_UNREGISTERED"
)

// Storage error codes
const (
	ErrStorageWrite   ErrorCode = "STORAGE_WRITE"
	ErrStorageQuery   ErrorCode = "STORAGE_QUERY"
	ErrPartialRestore ErrorCode = "PARTIAL_RESTORE"
)

// Workflow error codes
const (
	ErrPhaseFailed       ErrorCode = "PHASE_FAILED"
	ErrWorkflowNotStarted ErrorCode = "WORKFLOW_NOT_STARTED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
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

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable or not.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}
