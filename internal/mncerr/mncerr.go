// Package mncerr provides a small typed-error vocabulary for mnc's
// pipeline stages: plain wrapped errors for anything recoverable at the
// call site, and a single Critical marker for invariant violations that
// must abort the whole process.
package mncerr

import (
	"errors"
	"fmt"
)

// criticalError marks an error as fatal: the stage that produced it has
// no way to continue and the supervisor should signal exit immediately
// rather than merely logging and looping.
type criticalError struct {
	msg string
}

func (e *criticalError) Error() string { return e.msg }

// Critical formats its arguments like fmt.Sprintf and returns the result
// as a fatal, non-recoverable error.
func Critical(format string, args ...any) error {
	return &criticalError{msg: fmt.Sprintf(format, args...)}
}

// IsCritical reports whether err (or anything it wraps) is a Critical error.
func IsCritical(err error) bool {
	var c *criticalError
	return errors.As(err, &c)
}
