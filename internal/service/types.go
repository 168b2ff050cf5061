// SPDX-License-Identifier: MPL-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/host"
)

// Service control events.
const (
	// EventStart starts the runtime without waiting for it.
	EventStart Event = "start"
	// EventStop ends the service.
	EventStop Event = "stop"
	// EventShutdown ends the service on system shutdown.
	EventShutdown Event = "shutdown"
	// EventPause refuses new sessions and stops the runtime.
	EventPause Event = "pause"
	// EventContinue accepts sessions again and starts the runtime.
	EventContinue Event = "continue"
	// EventRestart stops the runtime and starts it again.
	EventRestart Event = "restart"
	// EventInterrogate only reports the status.
	EventInterrogate Event = "interrogate"
)

// ErrInvalidEvent is returned by Handle for an unknown event.
var ErrInvalidEvent = errors.New("invalid service event")

type (
	// Event is a service control request.
	Event string

	// Host is the runtime surface the Controller drives. *host.Host implements it.
	Host interface {
		Start(ctx context.Context, async bool) error
		Stop(ctx context.Context, force, async bool) error
		Close(ctx context.Context) error
		State() lifecycle.State
		LastError() error
		LastErrorKind() host.ErrorKind
	}

	// Connector is the client-facing surface the Controller drives.
	// *connector.Server implements it.
	Connector interface {
		Start(ctx context.Context) error
		Stop(ctx context.Context) error
		Pause()
		Continue()
		IsPaused() bool
		LastActivity() time.Time
	}

	// Config configures a Controller.
	Config struct {
		Service string
		// Eager starts the runtime when the service starts instead of on
		// the first session.
		Eager bool
		// AsyncStart makes an eager start return before the runtime is up.
		AsyncStart bool
		// IdleTimeout stops a running runtime after this long without a
		// session request. Zero disables the watchdog.
		IdleTimeout time.Duration
		// StopTimeout bounds the final shutdown.
		StopTimeout time.Duration
		// WatchInterval is how often the watchdog checks for idleness.
		// Zero derives it from IdleTimeout.
		WatchInterval time.Duration
	}

	// Status is the service state reported for every event.
	Status struct {
		Service   string
		State     lifecycle.State
		Paused    bool
		LastError error
		Kind      host.ErrorKind
	}
)

// Validate returns nil if the Event is a known service event.
func (e Event) Validate() error {
	switch e {
	case EventStart, EventStop, EventShutdown, EventPause, EventContinue, EventRestart, EventInterrogate:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidEvent, string(e))
	}
}

// String returns a one-line status summary.
func (s Status) String() string {
	str := fmt.Sprintf("%s: %s", s.Service, s.State)
	if s.Paused {
		str += " (paused)"
	}
	if s.LastError != nil {
		str += fmt.Sprintf(", last error [%s]: %v", s.Kind, s.LastError)
	}
	return str
}

func (c Config) watchInterval() time.Duration {
	if c.WatchInterval > 0 {
		return c.WatchInterval
	}
	return min(max(c.IdleTimeout/4, time.Second), 30*time.Second)
}
