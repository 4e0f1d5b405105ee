// Package domain defines core types, interfaces, and errors for the query gateway.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// SQL validation failure kinds. The orchestrator retries synthesis on
// syntax and unknown_object failures; disallowed_statement is never retried.
const (
	ValidationSyntax              = "syntax"
	ValidationUnknownObject       = "unknown_object"
	ValidationDisallowedStatement = "disallowed_statement"
)

// SQLValidationError reports a failed validator check on a candidate statement.
type SQLValidationError struct {
	Kind    string // one of the Validation* constants
	Message string
}

func (e *SQLValidationError) Error() string {
	return fmt.Sprintf("sql validation (%s): %s", e.Kind, e.Message)
}

// ErrSQLValidation creates a SQLValidationError with a formatted message.
func ErrSQLValidation(kind, format string, args ...interface{}) *SQLValidationError {
	return &SQLValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RetryExhaustedError indicates the synthesizer retry budget ran out without
// producing a valid statement. Fatal for the run.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("could not produce a safe query after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }

// ErrRetryExhausted creates a RetryExhaustedError.
func ErrRetryExhausted(attempts int, lastErr error) *RetryExhaustedError {
	return &RetryExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// CollaboratorError indicates an external capability was unavailable.
// Fatal for the run; retry policy belongs to the caller.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// ErrCollaborator wraps an error from a named external collaborator.
func ErrCollaborator(name string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: name, Err: err}
}
