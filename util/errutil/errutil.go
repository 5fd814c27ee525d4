// Package errutil provides the small error-wrapping vocabulary used
// throughout this repository: Wrapf to attach context to a single error,
// Append to accumulate multiple independent errors into one, and Cause to
// unwrap back to the root error. It exists so call sites never need to pick
// between the stdlib's fmt.Errorf("%w") and a multi-error library by hand.
package errutil

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Wrapf annotates err with a formatted message, preserving it as the cause.
// It returns nil if err is nil, so callers can unconditionally wrap a
// possibly-nil error from a defer or at the end of a function.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Append combines two errors into one. Either may be nil, in which case the
// other is returned unmodified. Repeated calls build up a *multierror.Error
// whose Error() string lists every accumulated failure.
func Append(err error, errs ...error) error {
	for _, e := range errs {
		if e == nil {
			continue
		}
		if err == nil {
			err = e
			continue
		}
		err = multierror.Append(err, e)
	}
	return err
}

// Cause returns the underlying error that was wrapped by Wrapf, walking
// through every layer of wrapping. If err was never wrapped, it is returned
// as-is.
func Cause(err error) error {
	return errors.Cause(err)
}
