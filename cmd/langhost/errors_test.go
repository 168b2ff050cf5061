// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/invowk/langhost/internal/connector"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/issue"

	"github.com/charmbracelet/fang"
)

func TestIssueFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		want   issue.Id
		wantOK bool
	}{
		{
			name: "actionable error with issue",
			err: issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(errors.New("bad")).
				BuildError(),
			want:   issue.ConfigLoadFailedId,
			wantOK: true,
		},
		{
			name:   "actionable error falls through to cause",
			err:    issue.WrapWithContext(fmt.Errorf("open: %w", host.ErrEntryPointMissing), "check library", "lib.so"),
			want:   issue.EntryPointMissingId,
			wantOK: true,
		},
		{
			name:   "status error kind",
			err:    fmt.Errorf("request session: %w", &connector.StatusError{Code: 503, Kind: host.KindInitializationFailed}),
			want:   issue.InitializationFailedId,
			wantOK: true,
		},
		{
			name:   "not serving",
			err:    fmt.Errorf("%w at /run/lh.sock", connector.ErrNotServing),
			want:   issue.ConnectorUnavailableId,
			wantOK: true,
		},
		{
			name:   "permission",
			err:    fmt.Errorf("listen: %w", os.ErrPermission),
			want:   issue.PermissionDeniedId,
			wantOK: true,
		},
		{
			name:   "library kind",
			err:    fmt.Errorf("start: %w", host.ErrLibraryFormatMismatch),
			want:   issue.LibraryFormatMismatchId,
			wantOK: true,
		},
		{
			name: "unknown",
			err:  errors.New("something else"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := issueFor(tt.err)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("issueFor() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{IssueStyle: "notty"})

	t.Run("silent exit error", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		app.renderError(&buf, fang.Styles{}, &ExitError{Code: ExitNotServing})
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("suggestions and guide", func(t *testing.T) {
		t.Parallel()
		err := issue.NewErrorContext().
			WithOperation("load runtime library").
			WithResource("/opt/liblangrt.so").
			WithSuggestion("Set runtime.library").
			WithIssue(issue.LibraryNotFoundId).
			Wrap(host.ErrLibraryNotFound).
			BuildError()

		var buf bytes.Buffer
		app.renderError(&buf, fang.Styles{}, err)
		out := buf.String()
		for _, want := range []string{
			"failed to load runtime library: /opt/liblangrt.so",
			"Set runtime.library",
			"Runtime library not found",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		app.renderError(&buf, fang.Styles{}, errors.New("boom"))
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("output missing error text: %q", buf.String())
		}
	})
}

func TestFormatErrorForDisplay_Verbose(t *testing.T) {
	t.Parallel()

	err := issue.NewErrorContext().
		WithOperation("contact service").
		Wrap(fmt.Errorf("dial: %w", connector.ErrNotServing)).
		BuildError()

	if got := formatErrorForDisplay(err, false); strings.Contains(got, "Error chain") {
		t.Errorf("non-verbose output includes the error chain:\n%s", got)
	}
	if got := formatErrorForDisplay(err, true); !strings.Contains(got, "Error chain") {
		t.Errorf("verbose output lacks the error chain:\n%s", got)
	}
}
