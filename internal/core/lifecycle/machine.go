// SPDX-License-Identifier: MPL-2.0

package lifecycle

import "time"

type (
	// Observer is notified after every accepted transition. It runs while the
	// owner's lock is held, so it must not block or call back into the owner.
	Observer func(from, to State)

	// Option configures a Machine.
	Option func(*Machine)

	// Machine is a lifecycle state machine. The zero value is not usable; use NewMachine.
	Machine struct {
		state State
		// settled is closed while the machine is in a non-busy state and
		// replaced with a fresh channel when a transition begins.
		settled   chan struct{}
		observers []Observer
	}
)

// NewMachine creates a Machine in StateStopped.
func NewMachine(opts ...Option) *Machine {
	settled := make(chan struct{})
	close(settled)

	m := &Machine{
		state:   StateStopped,
		settled: settled,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithObserver registers an observer called after each accepted transition.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Transition moves the machine to the given state. It returns a
// *TransitionError if the move is not part of the lifecycle table, leaving
// the machine unchanged.
func (m *Machine) Transition(to State) error {
	from := m.state
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}

	m.state = to
	switch {
	case to.IsBusy() && !from.IsBusy():
		m.settled = make(chan struct{})
	case !to.IsBusy() && from.IsBusy():
		close(m.settled)
	}

	for _, obs := range m.observers {
		obs(from, to)
	}
	return nil
}

// Settled returns a channel that is closed once the transition in flight at
// the time of the call has completed. If no transition is in flight, the
// returned channel is already closed.
func (m *Machine) Settled() <-chan struct{} {
	return m.settled
}

// WaitSettled waits up to timeout for settled to be closed and reports
// whether it was. A non-positive timeout never blocks.
func WaitSettled(settled <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-settled:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-settled:
		return true
	case <-timer.C:
		return false
	}
}
