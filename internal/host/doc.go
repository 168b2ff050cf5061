// SPDX-License-Identifier: MPL-2.0

// Package host owns the lifecycle of an embedded language runtime loaded from
// a native shared library.
//
// A Host moves through stopped, starting, running and stopping. Every
// transition is serialized through the Host's mutex, and every blocking
// native call (load, create, run, shutdown, destroy, unload) happens on a
// background lifecycle goroutine outside that lock, so status queries never
// wait on the runtime itself.
//
// Requests that arrive while a transition is in flight are queued rather than
// rejected: a Stop during starting is applied once the runtime is up, and a
// Start during stopping is applied once teardown completes. The most recent
// request wins, so a Start issued after a queued Stop cancels it and the
// other way around; a caller still waiting on the cancelled request gets
// ErrRequestSuperseded.
//
// The Host does not track client sessions. UserConnection hands a session's
// channel endpoints to the running runtime and returns.
package host
