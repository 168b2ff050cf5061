// SPDX-License-Identifier: MPL-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/host"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

type (
	// Controller runs the service. Handle may be called concurrently with Run.
	Controller struct {
		cfg     Config
		host    Host
		conn    Connector
		logger  *log.Logger
		signals <-chan os.Signal

		exitOnce sync.Once
		exit     chan struct{}
	}

	// Option configures a Controller.
	Option func(*Controller)
)

// WithLogger sets the Controller's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSignals makes Run read OS signals from ch instead of subscribing to
// the process signals itself.
func WithSignals(ch <-chan os.Signal) Option {
	return func(c *Controller) {
		c.signals = ch
	}
}

// New creates a Controller for h and conn.
func New(cfg Config, h Host, conn Connector, opts ...Option) *Controller {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = host.DefaultStopTimeout
	}
	c := &Controller{
		cfg:    cfg,
		host:   h,
		conn:   conn,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "service"}),
		exit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts the connector and, when eager, the runtime, then serves events
// until ctx is done or a stop event arrives. On return the connector is
// stopped and the runtime library unloaded.
func (c *Controller) Run(ctx context.Context) (err error) {
	if err := c.conn.Start(ctx); err != nil {
		return fmt.Errorf("start connector: %w", err)
	}
	defer func() {
		err = errors.Join(err, c.shutdown())
	}()

	if c.cfg.Eager {
		if err := c.host.Start(ctx, c.cfg.AsyncStart); err != nil {
			// A failed start is recorded on the Host; the service stays up
			// so operators can inspect it and retry.
			c.logger.Error("runtime failed to start", "error", err, "kind", host.KindOf(err))
		}
	}
	c.logger.Info("service running", "service", c.cfg.Service, "eager", c.cfg.Eager, "idle_timeout", c.cfg.IdleTimeout)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		select {
		case <-c.exit:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		c.watchSignals(gctx)
		return nil
	})
	if c.cfg.IdleTimeout > 0 {
		g.Go(func() error {
			c.watchIdle(gctx)
			return nil
		})
	}
	return g.Wait()
}

// Handle applies a service event and returns the resulting status.
func (c *Controller) Handle(ctx context.Context, ev Event) (Status, error) {
	if err := ev.Validate(); err != nil {
		return c.Status(), err
	}
	c.logger.Debug("service event", "event", ev)

	var err error
	switch ev {
	case EventStart:
		err = c.host.Start(ctx, true)
	case EventStop, EventShutdown:
		c.exitOnce.Do(func() { close(c.exit) })
	case EventPause:
		c.conn.Pause()
		err = c.host.Stop(ctx, false, true)
	case EventContinue:
		c.conn.Continue()
		err = c.host.Start(ctx, true)
	case EventRestart:
		c.logger.Info("restarting runtime")
		if err = c.host.Stop(ctx, false, false); err == nil {
			err = c.host.Start(ctx, true)
		}
	case EventInterrogate:
	}
	if err != nil {
		c.logger.Warn("service event failed", "event", ev, "error", err)
	}
	return c.Status(), err
}

// Status reports the current service state.
func (c *Controller) Status() Status {
	return Status{
		Service:   c.cfg.Service,
		State:     c.host.State(),
		Paused:    c.conn.IsPaused(),
		LastError: c.host.LastError(),
		Kind:      c.host.LastErrorKind(),
	}
}

func (c *Controller) watchSignals(ctx context.Context) {
	ch := c.signals
	if ch == nil {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, handledSignals...)
		defer signal.Stop(sigCh)
		ch = sigCh
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			ev, ok := signalEvent(sig)
			if !ok {
				continue
			}
			c.logger.Info("signal received", "signal", sig, "event", ev)
			_, _ = c.Handle(ctx, ev)
		}
	}
}

// watchIdle stops a running runtime once no session has been requested for
// the idle timeout. A runtime mid-transition is left alone.
func (c *Controller) watchIdle(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.watchInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.host.State() != lifecycle.StateRunning {
				continue
			}
			idle := time.Since(c.conn.LastActivity())
			if idle < c.cfg.IdleTimeout {
				continue
			}
			c.logger.Info("runtime idle, stopping", "idle", idle.Round(time.Millisecond))
			if err := c.host.Stop(ctx, false, true); err != nil {
				c.logger.Warn("idle stop failed", "error", err)
			}
		}
	}
}

// shutdown stops the connector and the runtime, bounded by StopTimeout.
func (c *Controller) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StopTimeout)
	defer cancel()

	c.logger.Info("service stopping")
	var errs []error
	if err := c.conn.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.host.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.Error("service stopped with errors", "error", err)
		return err
	}
	c.logger.Info("service stopped")
	return nil
}
