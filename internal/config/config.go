// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/langhost/internal/cueutil"
	"github.com/invowk/langhost/internal/issue"
	"github.com/invowk/langhost/internal/platform"

	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// AppName is the application name.
	AppName = "langhost"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. LANGHOST_RUNTIME_LIBRARY.
	EnvPrefix = "LANGHOST"
)

// ErrConfigExists is returned by WriteDefault when the file is already present.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the langhost configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS
// and $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var base string
	switch runtime.GOOS {
	case platform.Windows:
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// DefaultConfigPath returns the config file path inside dir, or inside
// ConfigDir when dir is empty.
func DefaultConfigPath(dir string) (string, error) {
	dir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// Locate returns the config file that Load would read for opts, or "" when
// none exists and defaults apply.
func Locate(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}

	path, err := DefaultConfigPath(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if fileExists(path) {
		return path, nil
	}

	local := ConfigFileName + "." + ConfigFileExt
	if fileExists(local) {
		return local, nil
	}
	return "", nil
}

// loadWithOptions layers defaults, the config file and the environment.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" && !fileExists(opts.ConfigFilePath) {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'langhost config init' to write a default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	path, err := Locate(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema shown by 'langhost config init'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	// Options has no default key: viper cannot hold a map default and its
	// nested keys at once.
	if cfg.Runtime.Options == nil {
		cfg.Runtime.Options = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check LANGHOST_* environment overrides").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("runtime.library", d.Runtime.Library)
	v.SetDefault("runtime.resources", d.Runtime.Resources)
	v.SetDefault("runtime.lazy_start", d.Runtime.LazyStart)
	v.SetDefault("connector.endpoint", d.Connector.Endpoint)
	v.SetDefault("connector.channel_dir", d.Connector.ChannelDir)
	v.SetDefault("connector.security_descriptor", d.Connector.SecurityDescriptor)
	v.SetDefault("connector.rate_limit", d.Connector.RateLimit)
	v.SetDefault("connector.rate_burst", d.Connector.RateBurst)
	v.SetDefault("timeouts.connect", int64(d.Timeouts.Connect))
	v.SetDefault("timeouts.busy", int64(d.Timeouts.Busy))
	v.SetDefault("timeouts.idle", int64(d.Timeouts.Idle))
	v.SetDefault("timeouts.stop", int64(d.Timeouts.Stop))
	v.SetDefault("service.name", d.Service.Name)
	v.SetDefault("service.display_name", d.Service.DisplayName)
	v.SetDefault("log.level", d.Log.Level.String())
	v.SetDefault("log.format", d.Log.Format.String())
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper, keeping defaults for fields the file leaves out.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.Decode[map[string]any](configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config file accepted by the schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// langhost configuration\n")
	sb.WriteString("// Empty strings select the platform default.\n\n")

	sb.WriteString("runtime: {\n")
	fmt.Fprintf(&sb, "\tlibrary:    %q\n", cfg.Runtime.Library)
	fmt.Fprintf(&sb, "\tresources:  %q\n", cfg.Runtime.Resources)
	fmt.Fprintf(&sb, "\tlazy_start: %v\n", cfg.Runtime.LazyStart)
	if len(cfg.Runtime.Options) > 0 {
		keys := maps.Keys(cfg.Runtime.Options)
		slices.Sort(keys)
		sb.WriteString("\toptions: {\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", k, cfg.Runtime.Options[k])
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	sb.WriteString("\nconnector: {\n")
	fmt.Fprintf(&sb, "\tendpoint:            %q\n", cfg.Connector.Endpoint)
	fmt.Fprintf(&sb, "\tchannel_dir:         %q\n", cfg.Connector.ChannelDir)
	fmt.Fprintf(&sb, "\tsecurity_descriptor: %q\n", cfg.Connector.SecurityDescriptor)
	fmt.Fprintf(&sb, "\trate_limit:          %v\n", cfg.Connector.RateLimit)
	fmt.Fprintf(&sb, "\trate_burst:          %d\n", cfg.Connector.RateBurst)
	sb.WriteString("}\n")

	sb.WriteString("\n// Milliseconds. idle: 0 disables the idle watchdog.\n")
	sb.WriteString("timeouts: {\n")
	fmt.Fprintf(&sb, "\tconnect: %d\n", cfg.Timeouts.Connect)
	fmt.Fprintf(&sb, "\tbusy:    %d\n", cfg.Timeouts.Busy)
	fmt.Fprintf(&sb, "\tidle:    %d\n", cfg.Timeouts.Idle)
	fmt.Fprintf(&sb, "\tstop:    %d\n", cfg.Timeouts.Stop)
	sb.WriteString("}\n")

	sb.WriteString("\nservice: {\n")
	fmt.Fprintf(&sb, "\tname:         %q\n", cfg.Service.Name)
	fmt.Fprintf(&sb, "\tdisplay_name: %q\n", cfg.Service.DisplayName)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel:  %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	return sb.String()
}
