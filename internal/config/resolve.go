// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/platform"
)

const (
	// LibraryBaseName is the base name of the runtime shared library.
	LibraryBaseName = "langrt"
	// HomeEnvVar points at an installation prefix holding lib/ and share/.
	HomeEnvVar = "LANGHOST_HOME"
)

type (
	// Settings is a Config with every platform default filled in.
	Settings struct {
		Library            host.LibraryPath
		Resources          string
		Options            map[string]string
		LazyStart          bool
		Endpoint           string
		ChannelDir         string
		SecurityDescriptor string
		RateLimit          float64
		RateBurst          int
		ConnectTimeout     time.Duration
		BusyTimeout        time.Duration
		IdleTimeout        time.Duration
		StopTimeout        time.Duration
		ServiceName        string
		DisplayName        string
		LogLevel           LogLevel
		LogFormat          LogFormat
	}

	// Resolver computes Settings. Its environment hooks are replaceable so
	// platform defaults can be tested on any OS.
	Resolver struct {
		Getenv     func(string) string
		Executable func() (string, error)
		TempDir    func() string
		GOOS       string
	}
)

// NewResolver returns a Resolver backed by the process environment.
func NewResolver() *Resolver {
	return &Resolver{
		Getenv:     os.Getenv,
		Executable: os.Executable,
		TempDir:    os.TempDir,
		GOOS:       runtime.GOOS,
	}
}

// Resolve fills the platform defaults of cfg using the process environment.
func Resolve(cfg *Config) Settings {
	return NewResolver().Resolve(cfg)
}

// Resolve fills the platform defaults of cfg.
func (r *Resolver) Resolve(cfg *Config) Settings {
	s := Settings{
		Library:            host.LibraryPath(cfg.Runtime.Library),
		Resources:          cfg.Runtime.Resources,
		Options:            cfg.Runtime.Options,
		LazyStart:          cfg.Runtime.LazyStart,
		Endpoint:           cfg.Connector.Endpoint,
		ChannelDir:         cfg.Connector.ChannelDir,
		SecurityDescriptor: cfg.Connector.SecurityDescriptor,
		RateLimit:          cfg.Connector.RateLimit,
		RateBurst:          cfg.Connector.RateBurst,
		ConnectTimeout:     cfg.Timeouts.Connect.Duration(),
		BusyTimeout:        cfg.Timeouts.Busy.Duration(),
		IdleTimeout:        cfg.Timeouts.Idle.Duration(),
		StopTimeout:        cfg.Timeouts.Stop.Duration(),
		ServiceName:        cfg.Service.Name,
		DisplayName:        cfg.Service.DisplayName,
		LogLevel:           cfg.Log.Level,
		LogFormat:          cfg.Log.Format,
	}

	if s.Library == "" {
		s.Library = host.LibraryPath(r.findLibrary())
	}
	if s.Resources == "" {
		s.Resources = r.defaultResources(s.Library.String())
	}
	if s.Options == nil {
		s.Options = map[string]string{}
	}
	if s.ServiceName == "" {
		s.ServiceName = AppName
	}
	if s.DisplayName == "" {
		s.DisplayName = s.ServiceName
	}
	if s.Endpoint == "" {
		s.Endpoint = r.defaultEndpoint(s.ServiceName)
	}
	if s.ChannelDir == "" {
		s.ChannelDir = r.defaultChannelDir(s.ServiceName)
	}
	if s.LogLevel == "" {
		s.LogLevel = LogLevelInfo
	}
	if s.LogFormat == "" {
		s.LogFormat = LogFormatText
	}
	return s
}

// HostConfig returns the subset of s the Host needs.
func (s Settings) HostConfig() host.Config {
	return host.Config{
		Library:     s.Library,
		Resources:   s.Resources,
		Service:     s.ServiceName,
		Options:     s.Options,
		StopTimeout: s.StopTimeout,
	}
}

// LibraryCandidates lists where the runtime library is searched, in order.
func (r *Resolver) LibraryCandidates() []string {
	name := platform.SharedLibraryName(LibraryBaseName, r.GOOS)

	var candidates []string
	if home := r.Getenv(HomeEnvVar); home != "" {
		candidates = append(candidates, filepath.Join(home, "lib", name))
	}
	if exe, err := r.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, name),
			filepath.Join(dir, "..", "lib", name),
		)
	}
	return candidates
}

// findLibrary returns the first existing candidate, or the bare library name
// so the OS loader search path applies.
func (r *Resolver) findLibrary() string {
	for _, c := range r.LibraryCandidates() {
		if fileExists(c) {
			return filepath.Clean(c)
		}
	}
	return platform.SharedLibraryName(LibraryBaseName, r.GOOS)
}

func (r *Resolver) defaultResources(library string) string {
	dir := filepath.Dir(library)
	if dir == "." && !filepath.IsAbs(library) {
		if home := r.Getenv(HomeEnvVar); home != "" {
			return filepath.Join(home, "share", LibraryBaseName)
		}
		return ""
	}
	return filepath.Join(dir, "..", "share", LibraryBaseName)
}

func (r *Resolver) defaultEndpoint(service string) string {
	if r.GOOS == platform.Windows {
		return `\\.\pipe\` + AppName + "-" + service
	}
	return filepath.Join(r.runtimeDir(), service+".sock")
}

func (r *Resolver) defaultChannelDir(service string) string {
	if r.GOOS == platform.Windows {
		return `\\.\pipe\` + AppName + "-" + service + "-sessions"
	}
	return filepath.Join(r.runtimeDir(), "sessions")
}

func (r *Resolver) runtimeDir() string {
	base := r.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = r.TempDir()
	}
	return filepath.Join(base, AppName)
}
