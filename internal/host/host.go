// SPDX-License-Identifier: MPL-2.0

package host

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/invowk/langhost/internal/core/lifecycle"

	"github.com/charmbracelet/log"
)

// Host drives an embedded runtime through its lifecycle.
// All methods are safe for concurrent use.
type Host struct {
	// Immutable after New
	cfg      Config
	loader   Loader
	logger   *log.Logger
	observer Observer

	mu      sync.Mutex
	machine *lifecycle.Machine
	// inst is set from the end of starting until teardown completes.
	inst *instance
	// worker is the transition in flight while starting or stopping.
	worker *transition
	// queuedStop is parked while starting, queuedStart while stopping.
	queuedStop  *request
	queuedStart *request
	lastErr     error
	closed      bool
	// accepts counts UserConnection calls inside the runtime; teardown
	// waits for them before destroying the instance.
	accepts sync.WaitGroup
}

// New creates a stopped Host. The library is not loaded until Start.
func New(cfg Config, loader Loader, opts ...Option) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, fmt.Errorf("host: nil loader")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	h := &Host{
		cfg:      cfg,
		loader:   loader,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "host"}),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.machine = lifecycle.NewMachine(lifecycle.WithObserver(h.onTransition))
	return h, nil
}

// Start brings the runtime up. With async set it returns once the start is
// requested; otherwise it blocks until the runtime is running or the start
// has failed, or until ctx is done. ctx never cancels the transition itself.
//
// Start while starting or running is a no-op; a synchronous caller observes
// the in-flight outcome. Start while stopping is queued; a synchronous caller
// gets ErrRequestSuperseded if a later Stop cancels it.
func (h *Host) Start(ctx context.Context, async bool) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHostClosed
	}

	var wait func(context.Context) error
	state := h.machine.State()
	switch state {
	case lifecycle.StateStopped:
		wait = h.beginStartLocked().wait
		h.mu.Unlock()

	case lifecycle.StateStarting:
		h.cancelStopLocked(ErrRequestSuperseded)
		wait = h.worker.wait
		h.mu.Unlock()
		h.logRejected("start", state)

	case lifecycle.StateRunning:
		h.mu.Unlock()
		h.logRejected("start", state)
		return nil

	default:
		if h.queuedStart == nil {
			h.queuedStart = newRequest()
		}
		wait = h.queuedStart.wait
		h.mu.Unlock()
		h.logger.Debug("start queued until stopped")
	}

	if async {
		return nil
	}
	return wait(ctx)
}

// Stop asks the runtime to shut down. force is passed to the runtime as a
// hint to abandon in-flight work. With async set it returns once the stop is
// requested; otherwise it blocks until the runtime is stopped or ctx is done.
//
// Stop while stopping or stopped is a no-op. Stop while starting is queued
// and applied once the runtime is running; a synchronous caller gets
// ErrRequestSuperseded if a later Start cancels it.
func (h *Host) Stop(ctx context.Context, force, async bool) error {
	h.mu.Lock()
	var wait func(context.Context) error
	state := h.machine.State()
	switch state {
	case lifecycle.StateRunning:
		wait = h.beginStopLocked(force, true).wait
		h.mu.Unlock()

	case lifecycle.StateStarting:
		if h.queuedStop == nil {
			h.queuedStop = newRequest()
		}
		h.queuedStop.force = h.queuedStop.force || force
		wait = h.queuedStop.wait
		h.mu.Unlock()
		h.logger.Debug("stop queued until running", "force", force)

	case lifecycle.StateStopping:
		h.cancelStartLocked(ErrRequestSuperseded)
		wait = h.worker.wait
		h.mu.Unlock()
		h.logRejected("stop", state)

	default:
		h.mu.Unlock()
		h.logRejected("stop", state)
		return nil
	}

	if async {
		return nil
	}
	return wait(ctx)
}

// IsBusy reports whether a transition is in flight. If one is, it waits up
// to timeout for it to settle and reports whether the Host is still busy
// afterwards. A non-positive timeout never blocks.
func (h *Host) IsBusy(timeout time.Duration) bool {
	h.mu.Lock()
	busy := h.machine.State().IsBusy()
	settled := h.machine.Settled()
	if !busy {
		h.observer.BusyWait(BusyIdle)
	}
	h.mu.Unlock()

	if !busy {
		return false
	}

	ok := lifecycle.WaitSettled(settled, timeout)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !ok {
		h.observer.BusyWait(BusyTimeout)
		return true
	}
	h.observer.BusyWait(BusySettled)
	// A queued request may have started the next transition already.
	return h.machine.State().IsBusy()
}

// IsRunning reports whether the runtime is running.
func (h *Host) IsRunning() bool {
	return h.State() == lifecycle.StateRunning
}

// IsStopped reports whether the runtime is stopped.
func (h *Host) IsStopped() bool {
	return h.State() == lifecycle.StateStopped
}

// State returns the current lifecycle state.
func (h *Host) State() lifecycle.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.machine.State()
}

// LastError returns the most recent lifecycle failure, or nil. It is cleared
// by the next successful start.
func (h *Host) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// LastErrorKind classifies LastError.
func (h *Host) LastErrorKind() ErrorKind {
	return KindOf(h.LastError())
}

// Version returns the loaded runtime's version, or "" when the runtime is not
// loaded or does not report one.
func (h *Host) Version() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inst == nil {
		return ""
	}
	return h.inst.module.Version()
}

// Config returns the Host configuration.
func (h *Host) Config() Config {
	return h.cfg
}

// UserConnection hands a session to the running runtime. It fails at once
// with a *SessionRejectedError unless the runtime is running, without any
// native call.
func (h *Host) UserConnection(ctx context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	state := h.machine.State()
	if state != lifecycle.StateRunning || h.inst == nil {
		h.mu.Unlock()
		h.logger.Debug("session rejected", "user", s.User, "state", state)
		return &SessionRejectedError{State: state}
	}
	inst := h.inst
	h.accepts.Add(1)
	h.mu.Unlock()
	defer h.accepts.Done()

	if err := inst.runtime.Accept(inst.handle, s); err != nil {
		h.logger.Warn("runtime refused session", "user", s.User, "error", err)
		return &SessionRejectedError{State: state, Cause: err}
	}
	h.logger.Debug("session handed off", "user", s.User, "input", s.Input, "output", s.Output)
	return nil
}

// Close stops the runtime and unloads the library, waiting at most the
// configured stop timeout. Later Start calls fail with ErrHostClosed.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.cancelStartLocked(ErrHostClosed)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, h.cfg.StopTimeout)
	defer cancel()

	if err := h.Stop(ctx, false, false); err != nil {
		return fmt.Errorf("close host: %w", err)
	}
	return nil
}

func (h *Host) cancelStartLocked(err error) {
	if q := h.queuedStart; q != nil {
		h.queuedStart = nil
		q.resolve(nil, err)
	}
}

func (h *Host) cancelStopLocked(err error) {
	if q := h.queuedStop; q != nil {
		h.queuedStop = nil
		q.resolve(nil, err)
	}
}

func (h *Host) onTransition(from, to lifecycle.State) {
	h.logger.Debug("state changed", "from", from, "to", to)
	h.observer.HostTransition(from, to)
}

func (h *Host) logRejected(op string, state lifecycle.State) {
	h.logger.Debug("request ignored", "op", op, "state", state, "error", ErrInvalidStateTransition)
}

// mustTransitionLocked applies a transition the Host's own logic has already
// checked. A failure means the Host's bookkeeping is broken.
func (h *Host) mustTransitionLocked(to lifecycle.State) {
	if err := h.machine.Transition(to); err != nil {
		panic(fmt.Sprintf("host: %v", err))
	}
}
