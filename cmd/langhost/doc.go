// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the langhost CLI.
//
// "run" hosts the runtime in the foreground behind the connector. The other
// commands either talk to a running service over its endpoint (status, start,
// stop, connect) or work locally (check, config).
package cmd
