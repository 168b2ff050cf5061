// SPDX-License-Identifier: MPL-2.0

//go:build darwin || freebsd || linux

package dynlib

import (
	"strings"

	"github.com/ebitengine/purego"
)

// formatHints are loader messages that indicate an architecture or word size
// problem rather than a missing or corrupt file.
var formatHints = []string{
	"wrong ELF class",
	"incompatible architecture",
	"wrong architecture",
	"ELF file's machine",
}

// notFoundHints are loader messages for a name the search path did not resolve.
var notFoundHints = []string{
	"No such file or directory",
	"no such file",
	"image not found",
}

func openHandle(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeHandle(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return purego.Dlclose(handle)
}

func classifyOpenError(err error) error {
	msg := err.Error()
	for _, hint := range formatHints {
		if strings.Contains(msg, hint) {
			return ErrLibraryFormatMismatch
		}
	}
	return ErrLibraryLoad
}

func isNotFound(err error) bool {
	msg := err.Error()
	for _, hint := range notFoundHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
