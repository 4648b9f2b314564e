package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline failures so callers can decide between
// the fatal and skip-and-warn recovery policies.
type ErrorType string

const (
	// ErrTypeCannotBuildLabel means the tracking-instrument price needed
	// for label construction is absent. Always fatal.
	ErrTypeCannotBuildLabel ErrorType = "CANNOT_BUILD_LABEL"
	// ErrTypeInsufficientData means too few rows survived for a stage to
	// run. The stage is skipped with a warning.
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	// ErrTypeAllRowsDropped means cleaning removed every row. The
	// pipeline halts with an empty result rather than failing.
	ErrTypeAllRowsDropped ErrorType = "ALL_ROWS_DROPPED"
	// ErrTypeExternalIO marks artifact retrieval or persistence
	// failures. Fatal for input retrieval, warn-only for uploads.
	ErrTypeExternalIO ErrorType = "EXTERNAL_IO"
	// ErrTypeParsing marks malformed input files or cells.
	ErrTypeParsing ErrorType = "PARSING"
	// ErrTypeConfig marks invalid configuration.
	ErrTypeConfig ErrorType = "CONFIG"
)

// PipelineError is an application-specific error carrying a type and
// optional structured context.
type PipelineError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a PipelineError of the given type.
func New(errType ErrorType, message string) *PipelineError {
	return &PipelineError{Type: errType, Message: message}
}

// Wrap creates a PipelineError wrapping a cause.
func Wrap(errType ErrorType, message string, cause error) *PipelineError {
	return &PipelineError{Type: errType, Message: message, Cause: cause}
}

// IsType reports whether err is a PipelineError of the given type.
func IsType(err error, errType ErrorType) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type == errType
	}
	return false
}

// IsFatal reports whether err must abort the run instead of being
// recovered with a skip-and-warn.
func IsFatal(err error) bool {
	return IsType(err, ErrTypeCannotBuildLabel) || IsType(err, ErrTypeConfig)
}
