// SPDX-License-Identifier: MPL-2.0

package native

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invowk/langhost/internal/host"
)

// Exported symbol names.
const (
	SymbolCreate    = "langrt_create"
	SymbolRun       = "langrt_run"
	SymbolShutdown  = "langrt_shutdown"
	SymbolAccept    = "langrt_accept"
	SymbolDestroy   = "langrt_destroy"
	SymbolLastError = "langrt_last_error"
	SymbolVersion   = "langrt_version"
)

var (
	// RequiredSymbols must all resolve for a library to be usable.
	RequiredSymbols = []string{SymbolCreate, SymbolRun, SymbolShutdown, SymbolAccept, SymbolDestroy}
	// OptionalSymbols are bound when present.
	OptionalSymbols = []string{SymbolLastError, SymbolVersion}

	// ErrSessionRefused is returned when the runtime's accept entry point reports failure.
	ErrSessionRefused = errors.New("runtime refused session")
)

type (
	// Resolver resolves exported symbol addresses. *dynlib.Library implements it.
	Resolver interface {
		Resolve(name string) (uintptr, error)
	}

	// Binding holds the runtime's entry points as Go functions. It implements
	// host.Runtime.
	Binding struct {
		create    func(options string) uintptr
		run       func(rt uintptr) int32
		shutdown  func(rt uintptr, force bool)
		accept    func(rt uintptr, user, input, output, language string) bool
		destroy   func(rt uintptr)
		lastError func() string
		version   func() string
	}

	createPayload struct {
		Service   string            `json:"service"`
		Resources string            `json:"resources,omitempty"`
		Options   map[string]string `json:"options,omitempty"`
	}
)

// Bind resolves every required entry point and any optional ones that are
// present. All missing required symbols are reported together.
func Bind(r Resolver) (*Binding, error) {
	addrs := make(map[string]uintptr, len(RequiredSymbols)+len(OptionalSymbols))

	var missing []error
	for _, name := range RequiredSymbols {
		addr, err := r.Resolve(name)
		if err != nil {
			missing = append(missing, err)
			continue
		}
		addrs[name] = addr
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	for _, name := range OptionalSymbols {
		if addr, err := r.Resolve(name); err == nil {
			addrs[name] = addr
		}
	}

	b := &Binding{}
	registerFunc(&b.create, addrs[SymbolCreate])
	registerFunc(&b.run, addrs[SymbolRun])
	registerFunc(&b.shutdown, addrs[SymbolShutdown])
	registerFunc(&b.accept, addrs[SymbolAccept])
	registerFunc(&b.destroy, addrs[SymbolDestroy])
	if addr, ok := addrs[SymbolLastError]; ok {
		registerFunc(&b.lastError, addr)
	}
	if addr, ok := addrs[SymbolVersion]; ok {
		registerFunc(&b.version, addr)
	}
	return b, nil
}

// Create calls langrt_create with the options encoded as JSON.
func (b *Binding) Create(opts host.CreateOptions) (host.Handle, error) {
	payload, err := json.Marshal(createPayload{
		Service:   opts.Service,
		Resources: opts.Resources,
		Options:   opts.Options,
	})
	if err != nil {
		return 0, &host.InitError{Cause: fmt.Errorf("encode create options: %w", err)}
	}

	rt := b.create(string(payload))
	if rt == 0 {
		return 0, &host.InitError{Reason: b.LastError()}
	}
	return host.Handle(rt), nil
}

// Run calls langrt_run, blocking until the runtime loop ends.
func (b *Binding) Run(h host.Handle) int {
	return int(b.run(uintptr(h)))
}

// Shutdown asks the runtime loop to end.
func (b *Binding) Shutdown(h host.Handle, force bool) {
	b.shutdown(uintptr(h), force)
}

// Accept hands a client session to the runtime.
func (b *Binding) Accept(h host.Handle, s host.Session) error {
	if !b.accept(uintptr(h), s.User.String(), s.Input.String(), s.Output.String(), s.Language.String()) {
		if reason := b.LastError(); reason != "" {
			return fmt.Errorf("%w: %s", ErrSessionRefused, reason)
		}
		return ErrSessionRefused
	}
	return nil
}

// Destroy releases the runtime instance.
func (b *Binding) Destroy(h host.Handle) {
	b.destroy(uintptr(h))
}

// LastError returns the runtime's last error text, or "" when the library
// does not export langrt_last_error.
func (b *Binding) LastError() string {
	if b.lastError == nil {
		return ""
	}
	return b.lastError()
}

// Version returns the runtime's version string, or "" when not exported.
func (b *Binding) Version() string {
	if b.version == nil {
		return ""
	}
	return b.version()
}

// compile-time interface check
var _ host.Runtime = (*Binding)(nil)
