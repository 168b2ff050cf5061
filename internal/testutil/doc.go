// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests across packages:
// environment isolation, socket-safe temp directories and polling.
package testutil
