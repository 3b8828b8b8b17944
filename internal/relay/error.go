package relay

import (
	"fmt"

	"github.com/pkg/errors"
)

// InternalError reports a failure of the relay itself rather than of the request or an upstream API.
type InternalError struct {
	Cause error
}

func (m *InternalError) Error() string {
	return fmt.Sprintf("relay error: %v", m.Cause)
}

func (m *InternalError) Unwrap() error {
	return m.Cause
}

// NewInternalError formats a new InternalError.
func NewInternalError(format string, args ...any) error {
	return &InternalError{Cause: errors.Errorf(format, args...)}
}
