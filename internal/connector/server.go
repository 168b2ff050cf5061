// SPDX-License-Identifier: MPL-2.0

package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/metrics"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

type (
	// Server serves the connector API on a local endpoint. It can be started
	// again after Stop. All methods are safe for concurrent use.
	Server struct {
		cfg     Config
		runtime Runtime
		logger  *log.Logger
		metrics *metrics.Registry
		limiter *rate.Limiter
		handler http.Handler

		mu         sync.Mutex
		machine    *lifecycle.Machine
		listener   net.Listener
		httpServer *http.Server
		serveDone  chan struct{}

		paused       atomic.Bool
		lastActivity atomic.Int64
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithLogger sets the Server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records session outcomes in m and serves it on /metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a stopped Server in front of rt.
func NewServer(cfg Config, rt Runtime, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, errors.New("connector: nil runtime")
	}

	s := &Server{
		cfg:     cfg,
		runtime: rt,
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "connector"}),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		machine: lifecycle.NewMachine(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	s.touch()
	return s, nil
}

// Handler returns the connector API handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured endpoint and begins serving. It returns
// once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.Transition(lifecycle.StateStarting); err != nil {
		return fmt.Errorf("start connector: %w", err)
	}

	ln, err := s.bind(ctx)
	if err != nil {
		_ = s.machine.Transition(lifecycle.StateStopped)
		return err
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.serveDone = make(chan struct{})
	s.touch()

	go s.serve(s.httpServer, ln, s.serveDone)

	if err := s.machine.Transition(lifecycle.StateRunning); err != nil {
		return fmt.Errorf("start connector: %w", err)
	}
	s.logger.Info("connector listening", "endpoint", s.cfg.Endpoint)
	return nil
}

func (s *Server) bind(ctx context.Context) (net.Listener, error) {
	if err := prepareChannelDir(s.cfg.ChannelDir); err != nil {
		return nil, fmt.Errorf("prepare channel directory %s: %w", s.cfg.ChannelDir, err)
	}
	ln, err := listen(ctx, s.cfg.Endpoint, s.cfg.SecurityDescriptor)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.cfg.Endpoint, err)
	}
	return ln, nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("connector serve failed", "error", err)
	}
}

// Stop stops accepting requests and waits for in-flight requests to finish
// or ctx to be done. Stop on a stopped Server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.State() != lifecycle.StateRunning {
		return nil
	}
	if err := s.machine.Transition(lifecycle.StateStopping); err != nil {
		return fmt.Errorf("stop connector: %w", err)
	}

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		_ = s.httpServer.Close()
	}
	<-s.serveDone
	cleanupEndpoint(s.cfg.Endpoint)

	s.httpServer = nil
	s.listener = nil
	_ = s.machine.Transition(lifecycle.StateStopped)
	s.logger.Info("connector stopped")

	if err != nil {
		return fmt.Errorf("stop connector: %w", err)
	}
	return nil
}

// State returns the connector's lifecycle state.
func (s *Server) State() lifecycle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// Addr returns the bound listener address, or nil when not serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Pause makes the connector refuse new sessions with 503.
func (s *Server) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Info("connector paused")
	}
}

// Continue undoes Pause.
func (s *Server) Continue() {
	if s.paused.Swap(false) {
		s.logger.Info("connector resumed")
	}
}

// IsPaused reports whether the connector is paused.
func (s *Server) IsPaused() bool {
	return s.paused.Load()
}

// LastActivity returns the time of the most recent session request, or of
// the last Start when none arrived since.
func (s *Server) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Server) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Server) record(outcome metrics.SessionOutcome) {
	if s.metrics != nil {
		s.metrics.SessionResult(outcome)
	}
}
