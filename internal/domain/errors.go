// Package domain defines core types, interfaces, and errors for the analytics service.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// DatabaseError indicates that the database engine rejected or failed a
// statement. Code carries the driver-specific error code when one is known
// (SQLSTATE for Postgres, error number for MySQL, result code for SQLite).
type DatabaseError struct {
	Op   string
	Code string
	Err  error
}

func (e *DatabaseError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// InternalError indicates an unexpected failure that is neither invalid input
// nor a database failure, for example a bug in query compilation.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrDatabase wraps a driver error as a DatabaseError.
func ErrDatabase(op, code string, err error) *DatabaseError {
	return &DatabaseError{Op: op, Code: code, Err: err}
}

// ErrInternal wraps err as an InternalError with a formatted message.
func ErrInternal(err error, format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...), Err: err}
}
