// SPDX-License-Identifier: MPL-2.0

// Package connector is the client-facing side of langhost. It serves a small
// HTTP API on a local endpoint (a Unix socket, or a named pipe on Windows)
// through which client processes request sessions. A session request
// allocates a pair of channel endpoints and hands them to the runtime via
// the Host, starting the runtime first when lazy start is enabled.
//
// Routes:
//
//	POST /v1/sessions             request a session
//	GET  /v1/status               runtime state
//	POST /v1/control/{action}     start or stop the runtime
//	GET  /health                  liveness
//	GET  /metrics                 Prometheus metrics, when configured
package connector
