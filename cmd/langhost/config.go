// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/invowk/langhost/internal/config"
	"github.com/invowk/langhost/internal/issue"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// newConfigCommand creates the `langhost config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage langhost configuration",
		Long: `Manage langhost configuration.

Configuration is stored in:
  - Linux: ~/.config/langhost/config.cue
  - macOS: ~/Library/Application Support/langhost/config.cue
  - Windows: %APPDATA%\langhost\config.cue

Every key can be overridden with a LANGHOST_ environment variable, for
example LANGHOST_RUNTIME_LIBRARY or LANGHOST_TIMEOUTS_IDLE.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	_, s, err := app.settings(ctx)
	if err != nil {
		return err
	}

	path, err := config.Locate(app.loadOptions())
	if err != nil {
		return err
	}
	if path == "" {
		path = SubtitleStyle.Render("(using defaults)")
	}

	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", keyStyle.Render("Config file"), path)

	section := func(name string) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, SubtitleStyle.Render(name))
	}
	field := func(key string, value any) {
		fmt.Fprintf(out, "  %s %s\n", keyStyle.Render(key), SuccessStyle.Render(fmt.Sprint(value)))
	}
	duration := func(d time.Duration) string {
		if d == 0 {
			return "disabled"
		}
		return d.String()
	}

	section("runtime")
	field("library", s.Library)
	field("resources", orNone(s.Resources))
	field("lazy_start", s.LazyStart)
	keys := maps.Keys(s.Options)
	slices.Sort(keys)
	for _, k := range keys {
		field("options."+k, s.Options[k])
	}

	section("connector")
	field("endpoint", s.Endpoint)
	field("channel_dir", s.ChannelDir)
	field("security_descriptor", orNone(s.SecurityDescriptor))
	field("rate_limit", fmt.Sprintf("%g/s (burst %d)", s.RateLimit, s.RateBurst))

	section("timeouts")
	field("connect", duration(s.ConnectTimeout))
	field("busy", duration(s.BusyTimeout))
	field("idle", duration(s.IdleTimeout))
	field("stop", duration(s.StopTimeout))

	section("service")
	field("name", s.ServiceName)
	field("display_name", s.DisplayName)

	section("log")
	field("level", s.LogLevel)
	field("format", s.LogFormat)
	return nil
}

func orNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// configFilePath is the file init writes and path reports: --config when
// given, else the platform default.
func configFilePath(app *App) (string, error) {
	if app.configPath != "" {
		return app.configPath, nil
	}
	return config.DefaultConfigPath("")
}

func initConfig(app *App, force bool) error {
	path, err := configFilePath(app)
	if err != nil {
		return err
	}
	if err := config.WriteDefault(path, force); err != nil {
		return issue.NewErrorContext().
			WithOperation("write configuration").
			WithResource(path).
			WithSuggestion("Use --force to overwrite an existing file").
			Wrap(err).
			BuildError()
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	path, err := configFilePath(app)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, path)
	return nil
}
