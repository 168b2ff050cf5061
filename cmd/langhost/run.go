// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/invowk/langhost/internal/config"
	"github.com/invowk/langhost/internal/connector"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/issue"
	"github.com/invowk/langhost/internal/metrics"
	"github.com/invowk/langhost/internal/service"

	"github.com/spf13/cobra"
)

type runOptions struct {
	eager      bool
	asyncStart bool
}

func newRunCommand(app *App) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the service in the foreground",
		Long: `Run the service in the foreground.

The connector listens on the configured endpoint. The runtime is started on
the first session request unless --eager is given or runtime.lazy_start is
false. SIGINT and SIGTERM stop the service; on Unix, SIGHUP restarts the
runtime.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd.Context(), app, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.eager, "eager", false, "start the runtime immediately instead of on the first session")
	cmd.Flags().BoolVar(&opts.asyncStart, "async-start", false, "do not wait for an eager start to finish before serving")
	return cmd
}

func runService(ctx context.Context, app *App, opts runOptions) error {
	_, s, err := app.settings(ctx)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	h, err := host.New(s.HostConfig(), app.Loader,
		host.WithLogger(newLogger(app.stderr, "host", s, app.verbose)),
		host.WithObserver(reg),
	)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}

	conn, err := connector.NewServer(connectorConfig(s), h,
		connector.WithLogger(newLogger(app.stderr, "connector", s, app.verbose)),
		connector.WithMetrics(reg),
	)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}

	ctrl := service.New(service.Config{
		Service:     s.ServiceName,
		Eager:       opts.eager || !s.LazyStart,
		AsyncStart:  opts.asyncStart,
		IdleTimeout: s.IdleTimeout,
		StopTimeout: s.StopTimeout,
	}, h, conn, service.WithLogger(newLogger(app.stderr, "service", s, app.verbose)))

	if err := ctrl.Run(ctx); err != nil {
		return issue.NewErrorContext().
			WithOperation("run service").
			WithResource(s.Endpoint).
			WithSuggestion("Check that no other langhost instance uses this endpoint").
			WithSuggestion("Set connector.endpoint or LANGHOST_CONNECTOR_ENDPOINT to a writable location").
			Wrap(err).
			BuildError()
	}
	return nil
}

func connectorConfig(s config.Settings) connector.Config {
	return connector.Config{
		Endpoint:           connector.EndpointPath(s.Endpoint),
		ChannelDir:         s.ChannelDir,
		SecurityDescriptor: s.SecurityDescriptor,
		RateLimit:          s.RateLimit,
		RateBurst:          s.RateBurst,
		LazyStart:          s.LazyStart,
		ConnectTimeout:     s.ConnectTimeout,
		BusyTimeout:        s.BusyTimeout,
		Service:            s.ServiceName,
	}
}
