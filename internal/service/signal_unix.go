// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package service

import (
	"os"

	"golang.org/x/sys/unix"
)

var handledSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}

// signalEvent maps SIGINT and SIGTERM to a stop and SIGHUP to a runtime restart.
func signalEvent(sig os.Signal) (Event, bool) {
	switch sig {
	case unix.SIGINT, unix.SIGTERM:
		return EventStop, true
	case unix.SIGHUP:
		return EventRestart, true
	default:
		return "", false
	}
}
