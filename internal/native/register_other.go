// SPDX-License-Identifier: MPL-2.0

//go:build !darwin && !freebsd && !linux && !windows

package native

// Native libraries cannot be opened on this platform, so Bind is never
// reached with real addresses.
var registerFunc = func(_ any, _ uintptr) {
	panic("native: calling C functions is not supported on this platform")
}
