// SPDX-License-Identifier: MPL-2.0

package dynlib

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Library is an open native shared library. It is safe for concurrent use.
type Library struct {
	path string

	mu     sync.Mutex
	handle uintptr
	closed bool
}

// Open loads the shared library at path.
//
// A path without a directory component is handed to the OS loader as is, so
// its search path (LD_LIBRARY_PATH, the system directories, PATH on Windows)
// applies. Anything else is checked on disk before loading.
//
// The returned error is a *LoadError whose Kind distinguishes a missing file,
// an object built for another architecture, and any other loader failure.
func Open(path string) (*Library, error) {
	if isBareName(path) {
		return openSearched(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newLoadError(path, ErrLibraryNotFound, nil)
		}
		return nil, newLoadError(path, ErrLibraryLoad, err)
	}
	if info.IsDir() {
		return nil, newLoadError(path, ErrLibraryNotFound, errors.New("path is a directory"))
	}

	if err := CheckFormat(path); err != nil {
		return nil, err
	}

	handle, err := openHandle(path)
	if err != nil {
		return nil, newLoadError(path, classifyOpenError(err), err)
	}

	return &Library{path: path, handle: handle}, nil
}

// openSearched loads a bare library name through the OS loader search path.
func openSearched(name string) (*Library, error) {
	handle, err := openHandle(name)
	if err != nil {
		kind := classifyOpenError(err)
		if kind == ErrLibraryLoad && isNotFound(err) {
			kind = ErrLibraryNotFound
		}
		return nil, newLoadError(name, kind, err)
	}
	return &Library{path: name, handle: handle}, nil
}

// isBareName reports whether path names a library without any directory.
func isBareName(path string) bool {
	if path == "" || path == "." || path == ".." {
		return false
	}
	return filepath.Base(path) == path
}

// Path returns the path the library was opened from.
func (l *Library) Path() string {
	return l.path
}

// Resolve returns the address of the exported function name.
func (l *Library) Resolve(name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, fmt.Errorf("resolve %q: %w", name, ErrLibraryClosed)
	}

	ptr, err := lookupSymbol(l.handle, name)
	if err != nil {
		return 0, &SymbolError{Library: l.path, Name: name, Cause: err}
	}
	if ptr == 0 {
		return 0, &SymbolError{Library: l.path, Name: name}
	}
	return ptr, nil
}

// Close releases the library. Only the first call has an effect; later calls
// return nil.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	handle := l.handle
	l.handle = 0
	if err := closeHandle(handle); err != nil {
		return fmt.Errorf("close library %s: %w", l.path, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (l *Library) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
