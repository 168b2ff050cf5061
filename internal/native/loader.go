// SPDX-License-Identifier: MPL-2.0

package native

import (
	"fmt"

	"github.com/invowk/langhost/internal/dynlib"
	"github.com/invowk/langhost/internal/host"
)

type (
	// Loader opens runtime libraries from disk. It implements host.Loader.
	Loader struct{}

	module struct {
		lib     *dynlib.Library
		binding *Binding
	}
)

// NewLoader returns a Loader backed by the OS dynamic loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load opens the library at path and binds its entry points. The library is
// released again if binding fails.
func (l *Loader) Load(path string) (host.Module, error) {
	lib, err := dynlib.Open(path)
	if err != nil {
		return nil, err
	}

	b, err := Bind(lib)
	if err != nil {
		if closeErr := lib.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (close: %v)", err, closeErr)
		}
		return nil, err
	}
	return &module{lib: lib, binding: b}, nil
}

func (m *module) Path() string          { return m.lib.Path() }
func (m *module) Runtime() host.Runtime { return m.binding }
func (m *module) Version() string       { return m.binding.Version() }
func (m *module) Close() error          { return m.lib.Close() }

var _ host.Loader = (*Loader)(nil)
