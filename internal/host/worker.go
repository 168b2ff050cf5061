// SPDX-License-Identifier: MPL-2.0

package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invowk/langhost/internal/core/lifecycle"
)

// shutdownRetryInterval paces repeated Shutdown calls while a stopping
// runtime's loop has not returned yet.
const shutdownRetryInterval = 200 * time.Millisecond

type (
	// request is a Start or Stop parked behind the transition in flight.
	// Once done is closed, next is the transition it turned into, or nil
	// with err saying why it did not run.
	request struct {
		force bool
		done  chan struct{}
		next  *transition
		err   error
	}

	// transition is one start or stop in flight. done is closed when the
	// transition reaches its terminal state; err is written before that.
	transition struct {
		target lifecycle.State
		done   chan struct{}
		err    error
	}

	// instance is a loaded library with a created runtime.
	instance struct {
		module  Module
		runtime Runtime
		handle  Handle
		// runDone is closed when Runtime.Run returns.
		runDone chan struct{}
	}
)

func newRequest() *request {
	return &request{done: make(chan struct{})}
}

func (r *request) resolve(next *transition, err error) {
	r.next = next
	r.err = err
	close(r.done)
}

// wait blocks until the request has run to completion, was dropped, or ctx
// is done.
func (r *request) wait(ctx context.Context) error {
	select {
	case <-r.done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for queued request: %w", ctx.Err())
	}
	if r.next == nil {
		return r.err
	}
	return r.next.wait(ctx)
}

func newTransition(target lifecycle.State) *transition {
	return &transition{target: target, done: make(chan struct{})}
}

// wait blocks until the transition completes or ctx is done.
func (t *transition) wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", t.target, ctx.Err())
	}
}

func (h *Host) beginStartLocked() *transition {
	h.mustTransitionLocked(lifecycle.StateStarting)
	t := newTransition(lifecycle.StateRunning)
	h.worker = t
	h.logger.Info("starting runtime", "library", h.cfg.Library)
	go h.runStart(t)
	return t
}

// runStart loads and creates the runtime, then blocks in its run loop for
// the lifetime of the instance.
func (h *Host) runStart(t *transition) {
	inst, err := h.bringUp()

	h.mu.Lock()
	if err != nil {
		t.err = err
		h.lastErr = err
		h.worker = nil
		h.mustTransitionLocked(lifecycle.StateStopped)
		h.observer.StartFailed(KindOf(err))
		close(t.done)
		// A queued stop is satisfied: the runtime is already stopped.
		if q := h.queuedStop; q != nil {
			h.queuedStop = nil
			q.resolve(nil, nil)
		}
		h.mu.Unlock()
		h.logger.Error("runtime failed to start", "library", h.cfg.Library, "error", err)
		return
	}

	h.inst = inst
	h.lastErr = nil
	h.worker = nil
	h.mustTransitionLocked(lifecycle.StateRunning)
	close(t.done)
	if q := h.queuedStop; q != nil {
		h.queuedStop = nil
		h.logger.Debug("applying queued stop")
		q.resolve(h.beginStopLocked(q.force, true), nil)
	}
	h.mu.Unlock()
	h.logger.Info("runtime running", "version", inst.module.Version())

	code := inst.runtime.Run(inst.handle)
	close(inst.runDone)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.machine.State() == lifecycle.StateRunning && h.inst == inst {
		h.logger.Warn("runtime exited on its own", "code", code)
		h.beginStopLocked(false, false)
		return
	}
	h.logger.Debug("runtime loop returned", "code", code)
}

// bringUp loads the library and creates a runtime instance. Partially
// acquired resources are released on failure.
func (h *Host) bringUp() (*instance, error) {
	mod, err := h.loader.Load(h.cfg.Library.String())
	if err != nil {
		return nil, err
	}

	rt := mod.Runtime()
	handle, err := rt.Create(h.cfg.createOptions())
	if err != nil {
		if !errors.Is(err, ErrInitializationFailed) {
			err = &InitError{Cause: err}
		}
		if closeErr := mod.Close(); closeErr != nil {
			h.logger.Warn("failed to unload library after init failure", "error", closeErr)
		}
		return nil, err
	}

	return &instance{
		module:  mod,
		runtime: rt,
		handle:  handle,
		runDone: make(chan struct{}),
	}, nil
}

// beginStopLocked moves a running Host to stopping and spawns the teardown.
// shutdown is false when the run loop has already ended by itself.
func (h *Host) beginStopLocked(force, shutdown bool) *transition {
	h.mustTransitionLocked(lifecycle.StateStopping)
	t := newTransition(lifecycle.StateStopped)
	h.worker = t
	go h.runStop(t, h.inst, force, shutdown)
	return t
}

// runStop ends the run loop, destroys the instance and unloads the library.
func (h *Host) runStop(t *transition, inst *instance, force, shutdown bool) {
	if shutdown {
		h.logger.Info("stopping runtime", "force", force)
		h.shutdownLoop(inst, force)
	} else {
		<-inst.runDone
	}
	h.accepts.Wait()

	inst.runtime.Destroy(inst.handle)
	closeErr := inst.module.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	if closeErr != nil {
		t.err = fmt.Errorf("unload runtime library: %w", closeErr)
		h.lastErr = t.err
		h.logger.Error("failed to unload library", "error", closeErr)
	}
	h.inst = nil
	h.worker = nil
	h.mustTransitionLocked(lifecycle.StateStopped)
	close(t.done)
	h.logger.Info("runtime stopped")

	if q := h.queuedStart; q != nil {
		h.queuedStart = nil
		if h.closed {
			q.resolve(nil, ErrHostClosed)
			return
		}
		h.logger.Debug("applying queued start")
		q.resolve(h.beginStartLocked(), nil)
	}
}

// shutdownLoop asks the run loop to end and repeats the request until it
// does. A request made before the loop was entered may otherwise be lost.
func (h *Host) shutdownLoop(inst *instance, force bool) {
	inst.runtime.Shutdown(inst.handle, force)

	ticker := time.NewTicker(shutdownRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-inst.runDone:
			return
		case <-ticker.C:
			h.logger.Debug("runtime loop still running, repeating shutdown")
			inst.runtime.Shutdown(inst.handle, force)
		}
	}
}
