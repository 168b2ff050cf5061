// SPDX-License-Identifier: MPL-2.0

//go:build !darwin && !freebsd && !linux && !windows

package dynlib

import "errors"

func openHandle(string) (uintptr, error) {
	return 0, errors.ErrUnsupported
}

func lookupSymbol(uintptr, string) (uintptr, error) {
	return 0, errors.ErrUnsupported
}

func closeHandle(uintptr) error {
	return nil
}

func classifyOpenError(error) error {
	return ErrLibraryLoad
}

func isNotFound(error) bool {
	return false
}
