// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
)

const (
	// StateStopped means nothing is loaded and no transition is in flight.
	StateStopped State = iota
	// StateStarting means a start transition is in flight.
	StateStarting
	// StateRunning means the managed resource is up and usable.
	StateRunning
	// StateStopping means a stop transition is in flight.
	StateStopping
)

var (
	// ErrInvalidState is returned when a State value is not one of the defined lifecycle states.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidStateTransition is the sentinel error wrapped by TransitionError.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

type (
	// State represents a lifecycle state.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}

	// TransitionError is returned when a transition is not part of the lifecycle table.
	// It wraps ErrInvalidStateTransition for errors.Is() compatibility.
	TransitionError struct {
		From State
		To   State
	}
)

// transitions is the lifecycle table. Anything not listed is rejected.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopped},
	StateRunning:  {StateStopping},
	StateStopping: {StateStopped},
}

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Validate returns nil if the State is one of the defined lifecycle states,
// or an error wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateStopped, StateStarting, StateRunning, StateStopping:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsBusy reports whether the state is a transitional one (starting or stopping).
func (s State) IsBusy() bool {
	return s == StateStarting || s == StateStopping
}

// CanTransition reports whether from -> to is part of the lifecycle table.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=stopped, 1=starting, 2=running, 3=stopping)", e.Value)
}

// Unwrap returns ErrInvalidState for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// Error implements the error interface for TransitionError.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// Unwrap returns ErrInvalidStateTransition for errors.Is() compatibility.
func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }
