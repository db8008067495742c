package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tmerge/internal/compiler"
)

// ConfigError reports a configuration that failed validation. Planning does
// not start when the configuration is invalid.
type ConfigError struct {
	Errors []compiler.ValidationError
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		msgs = append(msgs, ve.Error())
	}
	return fmt.Sprintf("invalid merge configuration: %s", strings.Join(msgs, "; "))
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// InputErrorCode categorizes batch errors that prevent planning.
type InputErrorCode string

const (
	// ErrCodeDuplicateRowID indicates two source rows share a row id.
	ErrCodeDuplicateRowID InputErrorCode = "DUPLICATE_ROW_ID"

	// ErrCodeTargetIdentity indicates a target row with an incomplete stable key.
	ErrCodeTargetIdentity InputErrorCode = "TARGET_IDENTITY"
)

// InputError is a batch-level error. Row-level data problems never produce
// an InputError; they become ERROR feedback instead.
type InputError struct {
	Code    InputErrorCode
	Message string
	RowID   int64
	Err     error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.RowID != 0 {
		return fmt.Sprintf("%s: %s (row_id=%d)", e.Code, e.Message, e.RowID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError returns true if err is or wraps an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
