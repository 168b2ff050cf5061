// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/invowk/langhost/internal/config"
	"github.com/invowk/langhost/internal/connector"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/issue"

	"github.com/spf13/cobra"
)

// requestSlack is added to the server-side timeouts so the server reports
// its own timeout before the client gives up.
const requestSlack = 2 * time.Second

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the runtime state of a running service",
		Long: `Show the runtime state of a running service.

Exits with status 3 when no service answers on the configured endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, s, err := app.client(cmd.Context())
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context())
			if err != nil {
				if connector.IsNotServing(err) {
					return notServing(err, s)
				}
				return fmt.Errorf("query status: %w", err)
			}
			printStatus(app.stdout, st)
			return nil
		},
	}
}

func newStartCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Ask a running service to start the runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return control(cmd.Context(), app, connector.ActionStart, false)
		},
	}
}

func newStopCommand(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask a running service to stop the runtime",
		Long: `Ask a running service to stop the runtime.

The service keeps listening and starts the runtime again on the next session
request when lazy start is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return control(cmd.Context(), app, connector.ActionStop, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ask the runtime to end without draining sessions")
	return cmd
}

func newConnectCommand(app *App) *cobra.Command {
	var (
		user     string
		language string
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Request a session and print its channel pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, s, err := app.client(cmd.Context())
			if err != nil {
				return err
			}
			sess, err := client.RequestSession(cmd.Context(), host.UserName(user), host.LanguageID(language))
			if err != nil {
				if connector.IsNotServing(err) {
					return notServing(err, s)
				}
				return fmt.Errorf("request session: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s %s\n", keyStyle.Render("input"), sess.Input)
			fmt.Fprintf(app.stdout, "%s %s\n", keyStyle.Render("output"), sess.Output)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user the session belongs to (required)")
	cmd.Flags().StringVar(&language, "language", "en", "client language or locale")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// client returns a connector client for the configured endpoint.
func (a *App) client(ctx context.Context) (*connector.Client, config.Settings, error) {
	_, s, err := a.settings(ctx)
	if err != nil {
		return nil, s, err
	}
	timeout := s.BusyTimeout + s.ConnectTimeout + requestSlack
	return connector.NewClient(connector.EndpointPath(s.Endpoint), timeout), s, nil
}

func control(ctx context.Context, app *App, action connector.Action, force bool) error {
	client, s, err := app.client(ctx)
	if err != nil {
		return err
	}
	st, err := client.Control(ctx, action, force)
	if err != nil {
		if connector.IsNotServing(err) {
			return notServing(err, s)
		}
		return fmt.Errorf("%s runtime: %w", action, err)
	}
	fmt.Fprintf(app.stdout, "%s %s requested (state: %s)\n",
		SuccessStyle.Render("✓"), action, stateStyle(st.State).Render(st.State))
	return nil
}

// notServing explains a failed request to an absent service.
func notServing(err error, s config.Settings) error {
	return &ExitError{
		Code: ExitNotServing,
		Err: issue.NewErrorContext().
			WithOperation("contact service").
			WithResource(s.Endpoint).
			WithSuggestion("Start the service with 'langhost run'").
			WithSuggestion("Check that connector.endpoint matches the running service").
			WithIssue(issue.ConnectorUnavailableId).
			Wrap(err).
			BuildError(),
	}
}

func printStatus(w io.Writer, st connector.StatusResponse) {
	fmt.Fprintln(w, TitleStyle.Render(st.Service))
	fmt.Fprintf(w, "%s %s\n", keyStyle.Render("State"), stateStyle(st.State).Render(st.State))
	fmt.Fprintf(w, "%s %s\n", keyStyle.Render("Busy"), yesNo(st.Busy))
	fmt.Fprintf(w, "%s %s\n", keyStyle.Render("Paused"), yesNo(st.Paused))
	version := st.Version
	if version == "" {
		version = SubtitleStyle.Render("(unknown)")
	}
	fmt.Fprintf(w, "%s %s\n", keyStyle.Render("Version"), version)
	if st.LastError != "" {
		fmt.Fprintf(w, "%s %s %s\n", keyStyle.Render("Last error"),
			ErrorStyle.Render(st.LastError), SubtitleStyle.Render("("+st.LastErrorKind+")"))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
