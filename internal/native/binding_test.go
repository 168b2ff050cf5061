// SPDX-License-Identifier: MPL-2.0

package native

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/invowk/langhost/internal/dynlib"
	"github.com/invowk/langhost/internal/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLibrary resolves symbol names to small integer addresses and maps those
// addresses back to Go functions through a replaced registerFunc.
type fakeLibrary struct {
	funcs map[string]any
	addrs map[uintptr]any
}

func newFakeLibrary(funcs map[string]any) *fakeLibrary {
	return &fakeLibrary{funcs: funcs, addrs: make(map[uintptr]any)}
}

func (f *fakeLibrary) Resolve(name string) (uintptr, error) {
	fn, ok := f.funcs[name]
	if !ok {
		return 0, &dynlib.SymbolError{Library: "fake", Name: name}
	}
	addr := uintptr(len(f.addrs) + 1)
	f.addrs[addr] = fn
	return addr, nil
}

func (f *fakeLibrary) install(t *testing.T) {
	t.Helper()
	orig := registerFunc
	registerFunc = func(fptr any, cfn uintptr) {
		reflect.ValueOf(fptr).Elem().Set(reflect.ValueOf(f.addrs[cfn]))
	}
	t.Cleanup(func() { registerFunc = orig })
}

func requiredFuncs() map[string]any {
	return map[string]any{
		SymbolCreate:   func(string) uintptr { return 7 },
		SymbolRun:      func(uintptr) int32 { return 0 },
		SymbolShutdown: func(uintptr, bool) {},
		SymbolAccept:   func(uintptr, string, string, string, string) bool { return true },
		SymbolDestroy:  func(uintptr) {},
	}
}

func newSession(t *testing.T) host.Session {
	t.Helper()
	return host.Session{
		User:     "alice",
		Input:    host.ChannelID(filepath.Join("chan", "a.in")),
		Output:   host.ChannelID(filepath.Join("chan", "a.out")),
		Language: "en-US",
	}
}

func TestBind_MissingRequiredSymbols(t *testing.T) {
	funcs := requiredFuncs()
	delete(funcs, SymbolAccept)
	delete(funcs, SymbolDestroy)

	_, err := Bind(newFakeLibrary(funcs))
	require.Error(t, err)
	assert.ErrorIs(t, err, dynlib.ErrEntryPointMissing)
	assert.Contains(t, err.Error(), SymbolAccept)
	assert.Contains(t, err.Error(), SymbolDestroy)
}

func TestBind_OptionalSymbolsAbsent(t *testing.T) {
	lib := newFakeLibrary(requiredFuncs())
	lib.install(t)

	b, err := Bind(lib)
	require.NoError(t, err)
	assert.Empty(t, b.Version())
	assert.Empty(t, b.LastError())
}

func TestBinding_Create(t *testing.T) {
	var got createPayload
	funcs := requiredFuncs()
	funcs[SymbolCreate] = func(options string) uintptr {
		if err := json.Unmarshal([]byte(options), &got); err != nil {
			return 0
		}
		return 42
	}
	lib := newFakeLibrary(funcs)
	lib.install(t)

	b, err := Bind(lib)
	require.NoError(t, err)

	h, err := b.Create(host.CreateOptions{
		Service:   "langhost",
		Resources: "/opt/rt",
		Options:   map[string]string{"heap": "64m"},
	})
	require.NoError(t, err)
	assert.Equal(t, host.Handle(42), h)
	assert.Equal(t, "langhost", got.Service)
	assert.Equal(t, "/opt/rt", got.Resources)
	assert.Equal(t, "64m", got.Options["heap"])
}

func TestBinding_CreateFailureCarriesLastError(t *testing.T) {
	funcs := requiredFuncs()
	funcs[SymbolCreate] = func(string) uintptr { return 0 }
	funcs[SymbolLastError] = func() string { return "image not found" }
	lib := newFakeLibrary(funcs)
	lib.install(t)

	b, err := Bind(lib)
	require.NoError(t, err)

	_, err = b.Create(host.CreateOptions{Service: "langhost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, host.ErrInitializationFailed)
	assert.Contains(t, err.Error(), "image not found")
}

func TestBinding_Accept(t *testing.T) {
	var args []string
	funcs := requiredFuncs()
	funcs[SymbolAccept] = func(rt uintptr, user, in, out, lang string) bool {
		args = []string{fmt.Sprint(rt), user, in, out, lang}
		return user != "mallory"
	}
	funcs[SymbolLastError] = func() string { return "user blocked" }
	lib := newFakeLibrary(funcs)
	lib.install(t)

	b, err := Bind(lib)
	require.NoError(t, err)

	s := newSession(t)
	require.NoError(t, b.Accept(9, s))
	assert.Equal(t, []string{"9", "alice", s.Input.String(), s.Output.String(), "en-US"}, args)

	s.User = "mallory"
	err = b.Accept(9, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionRefused))
	assert.Contains(t, err.Error(), "user blocked")
}

func TestBinding_RunShutdownDestroy(t *testing.T) {
	var calls []string
	funcs := requiredFuncs()
	funcs[SymbolRun] = func(rt uintptr) int32 {
		calls = append(calls, "run")
		return 3
	}
	funcs[SymbolShutdown] = func(rt uintptr, force bool) {
		calls = append(calls, fmt.Sprintf("shutdown force=%t", force))
	}
	funcs[SymbolDestroy] = func(rt uintptr) { calls = append(calls, "destroy") }
	funcs[SymbolVersion] = func() string { return "2.1.0" }
	lib := newFakeLibrary(funcs)
	lib.install(t)

	b, err := Bind(lib)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Run(1))
	b.Shutdown(1, true)
	b.Destroy(1)
	assert.Equal(t, []string{"run", "shutdown force=true", "destroy"}, calls)
	assert.Equal(t, "2.1.0", b.Version())
}

func TestLoader_MissingLibrary(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "liblangrt.so"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dynlib.ErrLibraryNotFound)
}
