package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError_Error(t *testing.T) {
	err := New(ErrTypeInsufficientData, "only 12 rows")
	assert.Equal(t, "[INSUFFICIENT_DATA] only 12 rows", err.Error())

	wrapped := Wrap(ErrTypeExternalIO, "fetch input", errors.New("connection reset"))
	assert.Equal(t, "[EXTERNAL_IO] fetch input: connection reset", wrapped.Error())
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrTypeParsing, "parse row", cause)

	assert.True(t, errors.Is(err, cause))
	assert.ErrorIs(t, fmt.Errorf("stage failed: %w", err), cause)
}

func TestIsType(t *testing.T) {
	err := New(ErrTypeAllRowsDropped, "nothing left")

	assert.True(t, IsType(err, ErrTypeAllRowsDropped))
	assert.False(t, IsType(err, ErrTypeInsufficientData))
	assert.False(t, IsType(errors.New("plain"), ErrTypeAllRowsDropped))
	assert.False(t, IsType(nil, ErrTypeAllRowsDropped))

	// Type checks see through wrapping.
	outer := fmt.Errorf("clean stage: %w", err)
	assert.True(t, IsType(outer, ErrTypeAllRowsDropped))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"cannot build label", New(ErrTypeCannotBuildLabel, "no tracking price"), true},
		{"config", New(ErrTypeConfig, "bad fractions"), true},
		{"insufficient data", New(ErrTypeInsufficientData, "too few rows"), false},
		{"all rows dropped", New(ErrTypeAllRowsDropped, "empty"), false},
		{"external io", New(ErrTypeExternalIO, "upload failed"), false},
		{"plain error", errors.New("plain"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestWithContext(t *testing.T) {
	err := New(ErrTypeParsing, "bad cell").
		WithContext("file", "spx.csv").
		WithContext("row", 42)

	assert.Equal(t, "spx.csv", err.Context["file"])
	assert.Equal(t, 42, err.Context["row"])
}
