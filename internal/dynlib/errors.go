// SPDX-License-Identifier: MPL-2.0

package dynlib

import (
	"errors"
	"fmt"
)

var (
	// ErrLibraryNotFound means the path does not resolve to a loadable file.
	ErrLibraryNotFound = errors.New("library not found")
	// ErrLibraryFormatMismatch means the file is a native object built for a
	// different architecture or word size than the host process.
	ErrLibraryFormatMismatch = errors.New("library format mismatch")
	// ErrLibraryLoad means the OS loader rejected the library for any other reason.
	ErrLibraryLoad = errors.New("library load failed")
	// ErrEntryPointMissing means a required exported function was not found.
	ErrEntryPointMissing = errors.New("entry point missing")
	// ErrLibraryClosed is returned when a released library is used again.
	ErrLibraryClosed = errors.New("library closed")
)

type (
	// LoadError describes a failure to open a library. Kind is one of
	// ErrLibraryNotFound, ErrLibraryFormatMismatch or ErrLibraryLoad; both Kind
	// and Cause are visible to errors.Is/As.
	LoadError struct {
		Path  string
		Kind  error
		Cause error
	}

	// SymbolError describes an entry point that could not be resolved.
	// It wraps ErrEntryPointMissing.
	SymbolError struct {
		Library string
		Name    string
		Cause   error
	}
)

// Error implements the error interface for LoadError.
func (e *LoadError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Cause)
}

// Unwrap exposes both the error kind and the underlying cause.
func (e *LoadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Error implements the error interface for SymbolError.
func (e *SymbolError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %q in %s", ErrEntryPointMissing, e.Name, e.Library)
	}
	return fmt.Sprintf("%s: %q in %s: %v", ErrEntryPointMissing, e.Name, e.Library, e.Cause)
}

// Unwrap exposes ErrEntryPointMissing and the underlying cause.
func (e *SymbolError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrEntryPointMissing}
	}
	return []error{ErrEntryPointMissing, e.Cause}
}

func newLoadError(path string, kind, cause error) *LoadError {
	return &LoadError{Path: path, Kind: kind, Cause: cause}
}
