// SPDX-License-Identifier: MPL-2.0

// Package issue turns lifecycle, connector and configuration failures into
// operator-facing messages: a one-line summary with suggestions, and for
// known failure classes a Markdown guide rendered for the terminal.
package issue
