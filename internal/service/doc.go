// SPDX-License-Identifier: MPL-2.0

// Package service is the service control surface of langhost. A Controller
// translates service manager events and OS signals into Host and connector
// calls, runs the idle watchdog, and guarantees that the runtime is stopped
// and its library unloaded when the service exits.
package service
