package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfig is matched by every *ConfigError.
	ErrMissingConfig = errors.New("missing workflow configuration")

	// ErrInvalidJSON is returned when a blocking response body is not valid JSON.
	ErrInvalidJSON = errors.New("failed to parse JSON response")

	// ErrMalformedStream is returned in strict streaming mode when a line is
	// not a "data: " line or its payload is not valid JSON.
	ErrMalformedStream = errors.New("malformed event stream")
)

// ConfigError reports a required configuration field that is empty.
type ConfigError struct {
	// Field is the configuration key, e.g. "api_key".
	Field string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is required in config but not provided", e.Field)
}

// Is makes errors.Is(err, ErrMissingConfig) report true.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// StatusError is returned when the workflow API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("workflow run failed: status %d: %s", e.StatusCode, e.Body)
}

// ErrMalformedResponse wraps the reason carried by a Malformed outcome.
var ErrMalformedResponse = errors.New("malformed workflow response")
