// SPDX-License-Identifier: MPL-2.0

//go:build darwin || freebsd || linux || windows

package native

import "github.com/ebitengine/purego"

// registerFunc binds a C function address to a Go function pointer.
// Tests replace it to bind plain Go functions.
var registerFunc = purego.RegisterFunc
