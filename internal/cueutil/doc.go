// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema
// definition and reports failures with field paths, e.g.
//
//	config.cue: timeouts.busy: invalid value -1 (out of bound >=0)
package cueutil
