// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/invowk/langhost/internal/config"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/native"
)

type (
	// App wires the CLI commands to their collaborators. Commands write to
	// the App's streams so they can be captured in tests.
	App struct {
		Config config.Provider
		Loader host.Loader

		stdout     io.Writer
		stderr     io.Writer
		issueStyle string

		verbose    bool
		configPath string
	}

	// Dependencies are the replaceable collaborators of an App. Nil fields
	// get production defaults.
	Dependencies struct {
		Config config.Provider
		Loader host.Loader
		Stdout io.Writer
		Stderr io.Writer
		// IssueStyle is the glamour style issue guides are rendered with.
		IssueStyle string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Loader == nil {
		deps.Loader = native.NewLoader()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.IssueStyle == "" {
		deps.IssueStyle = defaultIssueStyle()
	}
	return &App{
		Config:     deps.Config,
		Loader:     deps.Loader,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		issueStyle: deps.IssueStyle,
	}
}

// loadOptions returns the config source selected by the global flags.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configPath}
}

// settings loads the configuration and resolves its platform defaults.
func (a *App) settings(ctx context.Context) (*config.Config, config.Settings, error) {
	return config.Load(ctx, a.Config, a.loadOptions())
}

// defaultIssueStyle honors NO_COLOR (https://no-color.org).
func defaultIssueStyle() string {
	if os.Getenv("NO_COLOR") != "" {
		return "notty"
	}
	return "dark"
}
