// SPDX-License-Identifier: MPL-2.0

//go:build windows

package service

import (
	"os"
	"syscall"
)

// os/signal delivers syscall.Signal values on Windows, not x/sys/windows ones.
var handledSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// signalEvent maps console interrupts and termination to a stop.
func signalEvent(sig os.Signal) (Event, bool) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		return EventStop, true
	default:
		return "", false
	}
}
