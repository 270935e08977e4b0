// Package fault carries the two failure kinds of geometry construction: fatal
// errors that abort the job and warnings that are logged and skipped.
package fault

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Error is a fatal configuration or consistency failure. It names the component
// and method that detected the problem.
type Error struct {
	Component string
	Method    string
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s::%s: %v", e.Component, e.Method, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Fatal builds an Error from a format string.
func Fatal(component, method, format string, args ...any) *Error {
	return &Error{Component: component, Method: method, Cause: fmt.Errorf(format, args...)}
}

// Wrap attaches component and method to an existing cause. A cause that is
// already an *Error is returned unchanged so the origin is preserved.
func Wrap(component, method string, cause error) error {
	if cause == nil {
		return nil
	}
	var fe *Error
	if errors.As(cause, &fe) {
		return cause
	}
	return &Error{Component: component, Method: method, Cause: cause}
}

// IsFatal reports whether err carries a fatal construction error.
func IsFatal(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

// Warning logs a recoverable condition.
func Warning(logger *zap.Logger, component, method, message string) {
	if logger == nil {
		return
	}
	logger.Warn(message, zap.String("component", component), zap.String("method", method))
}
