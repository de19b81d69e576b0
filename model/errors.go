package model

import (
	"github.com/pkg/errors"
)

// The two error kinds surfaced by this library. Configuration errors happen
// while building a model or a sampler, before any iteration runs. Numeric
// errors happen during a run (a NaN log-density) and abort the run; the
// partial output is discarded. Acceptance and rejection are normal outcomes,
// never errors.

type configError struct {
	msg string
}

func (e *configError) Error() string { return e.msg }

type numericError struct {
	msg string
}

func (e *numericError) Error() string { return e.msg }

// ConfigErrorf creates a new configuration error.
func ConfigErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&configError{msg: errors.Errorf(format, args...).Error()})
}

// NumericErrorf creates a new numerical error.
func NumericErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&numericError{msg: errors.Errorf(format, args...).Error()})
}

// IsConfigError reports whether err (or anything it wraps) is a
// configuration error.
func IsConfigError(err error) bool {
	var target *configError
	return errors.As(err, &target)
}

// IsNumericError reports whether err (or anything it wraps) is a numerical
// error.
func IsNumericError(err error) bool {
	var target *numericError
	return errors.As(err, &target)
}
