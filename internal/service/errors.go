package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is; the API layer maps them to HTTP
// status codes and client messages.
var (
	// ErrInvalidUpdateFields indicates an update naming a field outside the
	// operation's allow-list. Nothing is applied. Maps to 400.
	ErrInvalidUpdateFields = errors.New("invalid update fields")

	// ErrInvalidLogin covers every login failure: unknown email and wrong
	// password are deliberately indistinguishable. Maps to 400.
	ErrInvalidLogin = errors.New("unable to login")
)

// ServiceError wraps an unexpected failure with the service and operation it
// came from. Expected conditions are returned as sentinels instead.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}
