// SPDX-License-Identifier: MPL-2.0

// Package hosttest provides an in-memory runtime Loader for tests of code
// built on the host package.
package hosttest

import (
	"errors"
	"sync"
	"time"

	"github.com/invowk/langhost/internal/host"
)

// ErrUnloaded is returned when a Module is closed twice.
var ErrUnloaded = errors.New("hosttest: module already unloaded")

type (
	// Option configures a Loader.
	Option func(*Loader)

	// Loader is a host.Loader whose runtimes run entirely in memory. Every
	// Load returns a new Runtime, so tests can tell a reload from reuse.
	Loader struct {
		loadErr     error
		createErr   error
		acceptErr   error
		createDelay time.Duration
		createGate  <-chan struct{}
		destroyGate <-chan struct{}
		runGate     <-chan struct{}
		version     string
		// dropEarlyShutdown makes Shutdown ignore calls made before Run has
		// entered its loop.
		dropEarlyShutdown bool

		mu       sync.Mutex
		paths    []string
		runtimes []*Runtime
		unloads  int
	}

	// Module is a fake loaded library.
	Module struct {
		loader *Loader
		path   string
		rt     *Runtime
		mu     sync.Mutex
		closed bool
	}

	// Runtime is a fake runtime instance. Its run loop blocks until Shutdown
	// or Exit is called.
	Runtime struct {
		loader *Loader

		mu        sync.Mutex
		created   bool
		destroyed bool
		shutdowns []bool
		sessions  []host.Session
		stop      chan struct{}
		stopOnce  sync.Once
		exitCode  int
		started   chan struct{}
	}
)

// WithLoadError makes every Load fail with err.
func WithLoadError(err error) Option {
	return func(l *Loader) { l.loadErr = err }
}

// WithCreateError makes every Create fail with err.
func WithCreateError(err error) Option {
	return func(l *Loader) { l.createErr = err }
}

// WithAcceptError makes every Accept fail with err.
func WithAcceptError(err error) Option {
	return func(l *Loader) { l.acceptErr = err }
}

// WithCreateDelay makes Create block for d before returning.
func WithCreateDelay(d time.Duration) Option {
	return func(l *Loader) { l.createDelay = d }
}

// WithCreateGate makes Create block until gate is closed.
func WithCreateGate(gate <-chan struct{}) Option {
	return func(l *Loader) { l.createGate = gate }
}

// WithDestroyGate makes Destroy block until gate is closed, holding the
// host in its stopping state.
func WithDestroyGate(gate <-chan struct{}) Option {
	return func(l *Loader) { l.destroyGate = gate }
}

// WithRunGate makes Run wait for gate to close before entering its loop.
func WithRunGate(gate <-chan struct{}) Option {
	return func(l *Loader) { l.runGate = gate }
}

// WithoutShutdownLatch makes Shutdown only end a loop that is already
// running. A call made before Run entered its loop is recorded and dropped.
func WithoutShutdownLatch() Option {
	return func(l *Loader) { l.dropEarlyShutdown = true }
}

// WithVersion sets the version reported by loaded modules.
func WithVersion(v string) Option {
	return func(l *Loader) { l.version = v }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{version: "0.0.0-test"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements host.Loader.
func (l *Loader) Load(path string) (host.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.paths = append(l.paths, path)
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	rt := &Runtime{
		loader:  l,
		stop:    make(chan struct{}),
		started: make(chan struct{}),
	}
	l.runtimes = append(l.runtimes, rt)
	return &Module{loader: l, path: path, rt: rt}, nil
}

// Loads returns how many times Load was called.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

// Unloads returns how many modules were closed.
func (l *Loader) Unloads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unloads
}

// Runtimes returns every runtime loaded so far, oldest first.
func (l *Loader) Runtimes() []*Runtime {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Runtime(nil), l.runtimes...)
}

// Last returns the most recently loaded runtime, or nil.
func (l *Loader) Last() *Runtime {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.runtimes) == 0 {
		return nil
	}
	return l.runtimes[len(l.runtimes)-1]
}

// Path implements host.Module.
func (m *Module) Path() string { return m.path }

// Runtime implements host.Module.
func (m *Module) Runtime() host.Runtime { return m.rt }

// Version implements host.Module.
func (m *Module) Version() string { return m.loader.version }

// Close implements host.Module.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnloaded
	}
	m.closed = true

	m.loader.mu.Lock()
	m.loader.unloads++
	m.loader.mu.Unlock()
	return nil
}

// Create implements host.Runtime.
func (r *Runtime) Create(host.CreateOptions) (host.Handle, error) {
	if r.loader.createGate != nil {
		<-r.loader.createGate
	}
	if r.loader.createDelay > 0 {
		time.Sleep(r.loader.createDelay)
	}
	if r.loader.createErr != nil {
		return 0, r.loader.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = true
	return host.Handle(1), nil
}

// Run implements host.Runtime.
func (r *Runtime) Run(host.Handle) int {
	if r.loader.runGate != nil {
		<-r.loader.runGate
	}
	close(r.started)
	<-r.stop

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode
}

// Shutdown implements host.Runtime.
func (r *Runtime) Shutdown(_ host.Handle, force bool) {
	r.mu.Lock()
	r.shutdowns = append(r.shutdowns, force)
	r.mu.Unlock()
	if r.loader.dropEarlyShutdown {
		select {
		case <-r.started:
		default:
			return
		}
	}
	r.stopOnce.Do(func() { close(r.stop) })
}

// Accept implements host.Runtime.
func (r *Runtime) Accept(_ host.Handle, s host.Session) error {
	if r.loader.acceptErr != nil {
		return r.loader.acceptErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

// Destroy implements host.Runtime.
func (r *Runtime) Destroy(host.Handle) {
	if r.loader.destroyGate != nil {
		<-r.loader.destroyGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = true
}

// Exit makes the run loop return code as if the runtime decided to stop.
func (r *Runtime) Exit(code int) {
	r.mu.Lock()
	r.exitCode = code
	r.mu.Unlock()
	r.stopOnce.Do(func() { close(r.stop) })
}

// Started is closed once the run loop has been entered.
func (r *Runtime) Started() <-chan struct{} { return r.started }

// Sessions returns the sessions handed to the runtime.
func (r *Runtime) Sessions() []host.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]host.Session(nil), r.sessions...)
}

// Shutdowns returns the force flag of every Shutdown call.
func (r *Runtime) Shutdowns() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.shutdowns...)
}

// Destroyed reports whether Destroy was called.
func (r *Runtime) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// Created reports whether Create succeeded.
func (r *Runtime) Created() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}
