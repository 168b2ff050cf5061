// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/invowk/langhost/internal/issue"
	"github.com/invowk/langhost/internal/testutil"
)

// useConfigDir points ConfigDir at a fresh temp directory for one test.
func useConfigDir(t *testing.T) string {
	t.Helper()
	testutil.ClearEnv(t, EnvPrefix+"_")
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Runtime.LazyStart {
		t.Error("expected lazy start to be enabled by default")
	}
	if cfg.Timeouts.Connect != 3000 || cfg.Timeouts.Busy != 5000 ||
		cfg.Timeouts.Idle != 300000 || cfg.Timeouts.Stop != 10000 {
		t.Errorf("unexpected default timeouts: %+v", cfg.Timeouts)
	}
	if cfg.Service.Name != "langhost" {
		t.Errorf("expected service name langhost, got %q", cfg.Service.Name)
	}
	if cfg.Log.Level != LogLevelInfo || cfg.Log.Format != LogFormatText {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfigDir_Override(t *testing.T) {
	dir := useConfigDir(t)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	useConfigDir(t)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config file, got %q", path)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_FileMergesWithDefaults(t *testing.T) {
	dir := useConfigDir(t)
	want := writeConfig(t, dir, `
runtime: {
	library: "/opt/langrt/lib/liblangrt.so"
	options: {
		heap: "64m"
	}
}
timeouts: busy: 250
log: level: "debug"
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.Runtime.Library != "/opt/langrt/lib/liblangrt.so" {
		t.Errorf("library = %q", cfg.Runtime.Library)
	}
	if cfg.Runtime.Options["heap"] != "64m" {
		t.Errorf("options = %v", cfg.Runtime.Options)
	}
	if cfg.Timeouts.Busy != 250 {
		t.Errorf("busy = %d, want 250", cfg.Timeouts.Busy)
	}
	if cfg.Timeouts.Idle != 300000 {
		t.Errorf("idle = %d, want default 300000", cfg.Timeouts.Idle)
	}
	if cfg.Log.Level != LogLevelDebug {
		t.Errorf("level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Runtime.LazyStart {
		t.Error("lazy_start default lost after merge")
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown log level", `log: level: "loud"`},
		{"negative timeout", `timeouts: idle: -1`},
		{"zero stop timeout", `timeouts: stop: 0`},
		{"unknown field", `runtime: lib: "x"`},
		{"bad service name", `service: name: "has space"`},
		{"syntax error", `runtime: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := useConfigDir(t)
			writeConfig(t, dir, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T", err)
			}
			if ae.IssueID != issue.ConfigLoadFailedId {
				t.Errorf("IssueID = %v, want ConfigLoadFailedId", ae.IssueID)
			}
		})
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	useConfigDir(t)
	missing := filepath.Join(t.TempDir(), "nope.cue")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_ExplicitPathWins(t *testing.T) {
	dir := useConfigDir(t)
	writeConfig(t, dir, `service: name: "from-dir"`)
	other := writeConfig(t, t.TempDir(), `service: name: "from-flag"`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: other})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if path != other || cfg.Service.Name != "from-flag" {
		t.Errorf("got path %q service %q", path, cfg.Service.Name)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := useConfigDir(t)
	writeConfig(t, dir, `timeouts: busy: 250`)
	t.Setenv("LANGHOST_TIMEOUTS_BUSY", "900")
	t.Setenv("LANGHOST_RUNTIME_LIBRARY", "/env/liblangrt.so")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Timeouts.Busy != 900 {
		t.Errorf("busy = %d, want 900 from environment", cfg.Timeouts.Busy)
	}
	if cfg.Runtime.Library != "/env/liblangrt.so" {
		t.Errorf("library = %q", cfg.Runtime.Library)
	}
}

func TestLoad_InvalidEnvironmentOverride(t *testing.T) {
	useConfigDir(t)
	t.Setenv("LANGHOST_LOG_FORMAT", "xml")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if !errors.Is(err, ErrInvalidLogFormat) {
		t.Fatalf("expected ErrInvalidLogFormat, got %v", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	useConfigDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_LoadsBack(t *testing.T) {
	dir := useConfigDir(t)
	want := DefaultConfig()
	want.Runtime.Library = "/opt/lib/liblangrt.so"
	want.Runtime.Options = map[string]string{"heap": "64m", "trace": "off"}
	want.Connector.RateLimit = 2.5
	want.Timeouts.Idle = 0
	want.Log.Format = LogFormatJSON
	writeConfig(t, dir, GenerateCUE(want))

	got, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("generated config did not load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.cue")

	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if err := WriteDefault(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("expected ErrConfigExists, got %v", err)
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault failed: %v", err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("written default did not load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("written default differs from DefaultConfig: %+v", cfg)
	}
}

func TestLocate(t *testing.T) {
	dir := useConfigDir(t)

	got, err := Locate(LoadOptions{})
	if err != nil || got != "" {
		t.Fatalf("Locate() = %q, %v; want no file", got, err)
	}

	want := writeConfig(t, dir, "")
	got, err = Locate(LoadOptions{})
	if err != nil || got != want {
		t.Errorf("Locate() = %q, %v; want %q", got, err, want)
	}

	other := t.TempDir()
	got, _ = Locate(LoadOptions{ConfigDirPath: other})
	if got != "" {
		t.Errorf("Locate with ConfigDirPath = %q, want empty", got)
	}
}
