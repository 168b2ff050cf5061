// SPDX-License-Identifier: MPL-2.0

package host

import (
	"github.com/invowk/langhost/internal/core/lifecycle"

	"github.com/charmbracelet/log"
)

// Busy wait outcomes reported to Observer.BusyWait.
const (
	// BusyIdle means no transition was in flight.
	BusyIdle BusyOutcome = "idle"
	// BusySettled means the in-flight transition finished within the timeout.
	BusySettled BusyOutcome = "settled"
	// BusyTimeout means the timeout elapsed first.
	BusyTimeout BusyOutcome = "timeout"
)

type (
	// BusyOutcome is the result of an IsBusy call.
	BusyOutcome string

	// Observer receives Host lifecycle events. Methods are called with the
	// Host's lock held and must not block or call back into the Host.
	Observer interface {
		HostTransition(from, to lifecycle.State)
		StartFailed(kind ErrorKind)
		BusyWait(outcome BusyOutcome)
	}

	// Option configures a Host.
	Option func(*Host)

	nopObserver struct{}
)

// WithLogger sets the Host's logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithObserver registers an Observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(h *Host) {
		if o != nil {
			h.observer = o
		}
	}
}

func (nopObserver) HostTransition(lifecycle.State, lifecycle.State) {}
func (nopObserver) StartFailed(ErrorKind)                           {}
func (nopObserver) BusyWait(BusyOutcome)                            {}
