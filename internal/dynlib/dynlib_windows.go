// SPDX-License-Identifier: MPL-2.0

//go:build windows

package dynlib

import (
	"errors"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func openHandle(path string) (uintptr, error) {
	// LOAD_WITH_ALTERED_SEARCH_PATH is only defined for absolute paths.
	var flags uintptr
	if filepath.IsAbs(path) {
		flags = windows.LOAD_WITH_ALTERED_SEARCH_PATH
	}
	h, err := windows.LoadLibraryEx(path, 0, flags)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeHandle(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return windows.FreeLibrary(windows.Handle(handle))
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_BAD_EXE_FORMAT):
		return ErrLibraryFormatMismatch
	case errors.Is(err, windows.ERROR_FILE_NOT_FOUND), errors.Is(err, windows.ERROR_PATH_NOT_FOUND):
		return ErrLibraryNotFound
	default:
		return ErrLibraryLoad
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, windows.ERROR_MOD_NOT_FOUND) ||
		errors.Is(err, windows.ERROR_FILE_NOT_FOUND)
}
