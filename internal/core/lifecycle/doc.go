// SPDX-License-Identifier: MPL-2.0

// Package lifecycle provides the restartable state machine shared by the
// runtime host and the connector server.
//
// A Machine tracks one of four states (stopped, starting, running, stopping),
// rejects transitions outside the lifecycle table, and exposes a settle
// channel that is closed whenever no transition is in flight. A Machine is
// not safe for concurrent use on its own: owners guard it with the same mutex
// that protects the resources whose validity the state describes.
package lifecycle
