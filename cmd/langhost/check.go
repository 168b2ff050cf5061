// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/invowk/langhost/internal/config"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/issue"
	"github.com/invowk/langhost/internal/native"
	"github.com/invowk/langhost/internal/platform"

	"github.com/spf13/cobra"
)

func newCheckCommand(app *App) *cobra.Command {
	var library string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the runtime library can be loaded",
		Long: `Verify that the runtime library can be loaded.

The library is opened, its entry points are resolved and its version is
printed. The runtime itself is not started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkLibrary(cmd.Context(), app, host.LibraryPath(library))
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "library to check (default: the configured runtime library)")
	return cmd
}

func checkLibrary(ctx context.Context, app *App, library host.LibraryPath) error {
	if library == "" {
		_, s, err := app.settings(ctx)
		if err != nil {
			return err
		}
		library = s.Library
	}
	if err := library.Validate(); err != nil {
		return err
	}
	if !platform.IsSharedLibraryName(filepath.Base(library.String()), runtime.GOOS) {
		fmt.Fprintf(app.stderr, "%s %s does not have the shared library extension for %s\n",
			WarningStyle.Render("Warning:"), library, runtime.GOOS)
	}

	mod, err := app.Loader.Load(library.String())
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("load runtime library").
			WithResource(library.String()).
			Wrap(err)
		kind := host.KindOf(err)
		if id, ok := kindIssues[kind]; ok {
			ec = ec.WithIssue(id)
		}
		if kind == host.KindLibraryNotFound {
			ec = ec.WithSuggestion("Set runtime.library in the config file or LANGHOST_RUNTIME_LIBRARY")
			for _, c := range config.NewResolver().LibraryCandidates() {
				ec = ec.WithSuggestion("Or install the library as " + c)
			}
		}
		return &ExitError{Code: ExitFailure, Err: ec.BuildError()}
	}

	version := mod.Version()
	if version == "" {
		version = SubtitleStyle.Render("(not reported)")
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), "runtime library loaded")
	fmt.Fprintf(app.stdout, "%s %s\n", keyStyle.Render("Library"), CmdStyle.Render(mod.Path()))
	fmt.Fprintf(app.stdout, "%s %s\n", keyStyle.Render("Version"), version)
	for i, name := range native.RequiredSymbols {
		label := ""
		if i == 0 {
			label = "Entry points"
		}
		fmt.Fprintf(app.stdout, "%s %s\n", keyStyle.Render(label), name)
	}

	if err := mod.Close(); err != nil {
		return fmt.Errorf("unload %s: %w", library, err)
	}
	return nil
}
