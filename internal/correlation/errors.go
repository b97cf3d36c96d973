package correlation

import (
	"errors"
	"fmt"
)

// ConfigurationError reports scheduler options that cannot describe a valid
// run. It is returned before any frame is fetched or any cache is consulted.
type ConfigurationError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	Window   float64
	Skip     float64
	Segments int
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeInvalidWindow indicates window + skip >= 1 or window <= 0.
	ErrCodeInvalidWindow ConfigErrorCode = "INVALID_WINDOW"

	// ErrCodeInvalidSegments indicates fewer than one segment.
	ErrCodeInvalidSegments ConfigErrorCode = "INVALID_SEGMENTS"

	// ErrCodeInvalidSkip indicates a negative skip fraction.
	ErrCodeInvalidSkip ConfigErrorCode = "INVALID_SKIP"

	// ErrCodeMissingInput indicates a nil function or frame source.
	ErrCodeMissingInput ConfigErrorCode = "MISSING_INPUT"
)

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s (window=%g, skip=%g, segments=%d)", e.Code, e.Message, e.Window, e.Skip, e.Segments)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func newConfigError(code ConfigErrorCode, msg string, window, skip float64, segments int) *ConfigurationError {
	return &ConfigurationError{
		Code:     code,
		Message:  msg,
		Window:   window,
		Skip:     skip,
		Segments: segments,
	}
}
