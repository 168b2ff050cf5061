// SPDX-License-Identifier: MPL-2.0

// Package dynlib opens native shared libraries, resolves their exported
// entry points, and releases them exactly once.
//
// Before handing a path to the OS loader, Open inspects the object header
// (ELF, Mach-O or PE depending on the platform) so that a library built for
// another architecture or word size is reported as ErrLibraryFormatMismatch
// rather than as a generic load failure. Missing files, format mismatches,
// other loader failures and missing symbols are distinct sentinel errors.
//
// Unix platforms load through purego (no cgo required); Windows uses
// LoadLibraryEx/GetProcAddress from golang.org/x/sys/windows.
package dynlib
