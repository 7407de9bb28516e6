package errorsx

import (
	"errors"
	"fmt"
)

// ReasonedError tags an error with a ReasonCode without changing its message.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// Wrap attaches reason to err. The innermost reason wins, so wrapping an
// already reasoned error returns it unchanged.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	if _, ok := find(err); ok {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Wrapf prefixes err with a formatted context message and attaches reason.
func Wrapf(err error, reason ReasonCode, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return Wrap(fmt.Errorf("%s: %w", msg, err), reason)
}

// Newf formats a new error carrying reason.
func Newf(reason ReasonCode, format string, args ...any) error {
	return ReasonedError{Err: fmt.Errorf(format, args...), Reason: reason}
}

// Reason returns the reason attached anywhere in err's chain.
func Reason(err error) ReasonCode {
	if re, ok := find(err); ok {
		return re.Reason
	}
	return ReasonUnknown
}

func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

func find(err error) (ReasonedError, bool) {
	var re ReasonedError
	if err == nil || !errors.As(err, &re) {
		return ReasonedError{}, false
	}
	return re, true
}
