// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/invowk/langhost/internal/connector"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/issue"

	"github.com/charmbracelet/fang"
)

// kindIssues maps host error kinds to their troubleshooting guide.
var kindIssues = map[host.ErrorKind]issue.Id{
	host.KindLibraryNotFound:       issue.LibraryNotFoundId,
	host.KindLibraryFormatMismatch: issue.LibraryFormatMismatchId,
	host.KindLibraryLoad:           issue.LibraryLoadFailedId,
	host.KindEntryPointMissing:     issue.EntryPointMissingId,
	host.KindInitializationFailed:  issue.InitializationFailedId,
	host.KindSessionRejected:       issue.SessionRejectedId,
}

// renderError is the fang error handler. It prints the error with its
// suggestions and, when the failure has a known cause, the matching guide.
func (a *App) renderError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, a.verbose))

	id, ok := issueFor(err)
	if !ok {
		return
	}
	guide := issue.Get(id)
	if guide == nil {
		return
	}
	rendered, renderErr := guide.Render(a.issueStyle)
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// include their suggestions, and in verbose mode the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// issueFor picks the troubleshooting guide for err.
func issueFor(err error) (issue.Id, bool) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.IssueID != 0 {
		return ae.IssueID, true
	}

	var se *connector.StatusError
	if errors.As(err, &se) && se.Kind != host.KindNone {
		id, ok := kindIssues[se.Kind]
		return id, ok
	}

	switch {
	case connector.IsNotServing(err):
		return issue.ConnectorUnavailableId, true
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId, true
	}
	id, ok := kindIssues[host.KindOf(err)]
	return id, ok
}
