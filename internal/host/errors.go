// SPDX-License-Identifier: MPL-2.0

package host

import (
	"errors"
	"fmt"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/dynlib"
)

// Error kinds reported by LastErrorKind and KindOf.
const (
	KindNone                   ErrorKind = ""
	KindLibraryNotFound        ErrorKind = "library_not_found"
	KindLibraryFormatMismatch  ErrorKind = "library_format_mismatch"
	KindLibraryLoad            ErrorKind = "library_load"
	KindEntryPointMissing      ErrorKind = "entry_point_missing"
	KindInitializationFailed   ErrorKind = "initialization_failed"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindSessionRejected        ErrorKind = "session_rejected"
	KindUnknown                ErrorKind = "unknown"
)

var (
	// ErrLibraryNotFound is re-exported from dynlib.
	ErrLibraryNotFound = dynlib.ErrLibraryNotFound
	// ErrLibraryFormatMismatch is re-exported from dynlib.
	ErrLibraryFormatMismatch = dynlib.ErrLibraryFormatMismatch
	// ErrLibraryLoad is re-exported from dynlib.
	ErrLibraryLoad = dynlib.ErrLibraryLoad
	// ErrEntryPointMissing is re-exported from dynlib.
	ErrEntryPointMissing = dynlib.ErrEntryPointMissing
	// ErrInvalidStateTransition is re-exported from lifecycle.
	ErrInvalidStateTransition = lifecycle.ErrInvalidStateTransition

	// ErrInitializationFailed is the sentinel error wrapped by InitError.
	ErrInitializationFailed = errors.New("runtime initialization failed")
	// ErrSessionRejected is the sentinel error wrapped by SessionRejectedError.
	ErrSessionRejected = errors.New("session rejected")
	// ErrHostClosed is returned by Start after Close.
	ErrHostClosed = errors.New("host closed")
	// ErrRequestSuperseded is returned to a caller waiting on a queued Start
	// or Stop that a later opposite request cancelled.
	ErrRequestSuperseded = errors.New("request superseded by a later request")
)

type (
	// ErrorKind classifies a lifecycle failure for operators.
	ErrorKind string

	// InitError is returned when the runtime's create entry point reports
	// failure. Reason is the runtime's own error text, if it provides one.
	InitError struct {
		Reason string
		Cause  error
	}

	// SessionRejectedError is returned by UserConnection when the runtime is
	// not running or refuses the session.
	SessionRejectedError struct {
		State lifecycle.State
		Cause error
	}
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string { return string(k) }

// KindOf classifies err. A nil error has KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrLibraryNotFound):
		return KindLibraryNotFound
	case errors.Is(err, ErrLibraryFormatMismatch):
		return KindLibraryFormatMismatch
	case errors.Is(err, ErrLibraryLoad):
		return KindLibraryLoad
	case errors.Is(err, ErrEntryPointMissing):
		return KindEntryPointMissing
	case errors.Is(err, ErrInitializationFailed):
		return KindInitializationFailed
	case errors.Is(err, ErrInvalidStateTransition):
		return KindInvalidStateTransition
	case errors.Is(err, ErrSessionRejected):
		return KindSessionRejected
	default:
		return KindUnknown
	}
}

// Error implements the error interface for InitError.
func (e *InitError) Error() string {
	msg := ErrInitializationFailed.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes ErrInitializationFailed and the underlying cause.
func (e *InitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInitializationFailed}
	}
	return []error{ErrInitializationFailed, e.Cause}
}

// Error implements the error interface for SessionRejectedError.
func (e *SessionRejectedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrSessionRejected, e.Cause)
	}
	return fmt.Sprintf("%s: runtime is %s", ErrSessionRejected, e.State)
}

// Unwrap exposes ErrSessionRejected and the underlying cause.
func (e *SessionRejectedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSessionRejected}
	}
	return []error{ErrSessionRejected, e.Cause}
}
