// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// Error is a CUE failure flattened to one line per problem. It unwraps to
// the error it was built from.
type Error struct {
	Filename string
	Lines    []string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Lines) == 1 {
		return e.Filename + ": " + e.Lines[0]
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.Filename, strings.Join(e.Lines, "\n  "))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FormatError flattens a CUE error into one line per problem, each prefixed
// with the offending field path. Definition segments such as #Config are
// left out of the path.
func FormatError(err error, filename string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Filename: filename, Lines: []string{err.Error()}, Err: err}
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		parts := cueerrors.Path(e)
		msg := trimPathPrefix(e.Error(), fieldPath(parts))
		path := fieldPath(dropDefinitions(parts))
		if path == "" {
			lines = append(lines, msg)
			continue
		}
		lines = append(lines, path+": "+trimPathPrefix(msg, path))
	}
	return &Error{Filename: filename, Lines: lines, Err: err}
}

func trimPathPrefix(msg, path string) string {
	if path == "" || !strings.HasPrefix(msg, path) {
		return msg
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
}

// dropDefinitions removes the leading definition segments (#Name) of a path.
func dropDefinitions(parts []string) []string {
	for len(parts) > 0 && strings.HasPrefix(parts[0], "#") {
		parts = parts[1:]
	}
	return parts
}

// fieldPath renders ["runtime", "options", "heap"] as runtime.options.heap
// and list indices as [n].
func fieldPath(parts []string) string {
	var sb strings.Builder
	for i, part := range parts {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects documents larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
