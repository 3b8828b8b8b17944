package handler

import "fmt"

// ConfigurationError reports a configuration value that could not be used.
type ConfigurationError struct {
	Key   string
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Key, e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}
