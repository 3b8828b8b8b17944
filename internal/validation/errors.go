package validation

import (
	"fmt"

	"github.com/pkg/errors"
)

// UnauthenticatedError is returned when a request cannot be proven to come from the provider.
type UnauthenticatedError struct {
	Cause error
}

func (e *UnauthenticatedError) Error() string {
	return fmt.Sprintf("unauthenticated webhook: %v", e.Cause)
}

func (e *UnauthenticatedError) Unwrap() error {
	return e.Cause
}

// NewUnauthenticatedError formats a new UnauthenticatedError.
func NewUnauthenticatedError(format string, args ...any) error {
	return &UnauthenticatedError{Cause: errors.Errorf(format, args...)}
}

// MalformedError is returned when an authenticated request does not carry a usable message event.
type MalformedError struct {
	Cause error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed webhook payload: %v", e.Cause)
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}

// NewMalformedError formats a new MalformedError.
func NewMalformedError(format string, args ...any) error {
	return &MalformedError{Cause: errors.Errorf(format, args...)}
}
