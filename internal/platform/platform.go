// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes OS names and native library naming conventions.
package platform

import "strings"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// SharedLibraryName returns the platform file name of a shared library with
// the given base name: liblangrt.so, liblangrt.dylib, or langrt.dll.
func SharedLibraryName(base, goos string) string {
	switch goos {
	case Windows:
		return base + ".dll"
	case Darwin:
		return "lib" + base + ".dylib"
	default:
		return "lib" + base + ".so"
	}
}

// IsSharedLibraryName reports whether name carries the shared library
// extension used on goos.
func IsSharedLibraryName(name, goos string) bool {
	lower := strings.ToLower(name)
	switch goos {
	case Windows:
		return strings.HasSuffix(lower, ".dll")
	case Darwin:
		return strings.HasSuffix(lower, ".dylib")
	default:
		return strings.HasSuffix(lower, ".so") || strings.Contains(lower, ".so.")
	}
}
