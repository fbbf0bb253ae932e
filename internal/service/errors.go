package service

import (
	"errors"
	"fmt"

	"github.com/atelierhq/atelier-api/internal/store"
)

// Common sentinel errors for the service layer
var (
	// ErrBatchNotFound indicates that the generation batch does not exist
	// or is not visible to the requesting user.
	ErrBatchNotFound = errors.New("generation batch not found")

	// ErrTaskNotFound indicates that the async task does not exist.
	ErrTaskNotFound = errors.New("async task not found")

	// ErrInvalidRequest indicates the request parameters failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrBatchTooLarge indicates imageNum exceeds the configured maximum.
	ErrBatchTooLarge = errors.New("requested image count exceeds the batch limit")

	// ErrEmailExists indicates the email is already registered.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ServiceError wraps errors from the service layer with operation context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_image")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError. Known sentinel errors are
// returned directly so callers can match them with errors.Is; store-level
// not-found errors are mapped to their service-level equivalents.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrBatchNotFound), errors.Is(err, store.ErrBatchNotFound):
		return ErrBatchNotFound
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrBatchTooLarge),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrInvalidCredentials):
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
