// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"

	"github.com/invowk/langhost/internal/config"

	"github.com/charmbracelet/log"
)

// newLogger returns a component logger configured from s. verbose forces
// the debug level.
func newLogger(w io.Writer, prefix string, s config.Settings, verbose bool) *log.Logger {
	level, err := log.ParseLevel(s.LogLevel.String())
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		Formatter:       formatterFor(s.LogFormat),
		ReportTimestamp: true,
	})
}

func formatterFor(f config.LogFormat) log.Formatter {
	switch f {
	case config.LogFormatJSON:
		return log.JSONFormatter
	case config.LogFormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
