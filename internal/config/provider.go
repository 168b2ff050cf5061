// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions selects the configuration source.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider returns a Provider that layers built-in defaults, the CUE
// config file and LANGHOST_* environment variables.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads and validates the configuration.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration and resolves platform defaults.
func Load(ctx context.Context, p Provider, opts LoadOptions) (*Config, Settings, error) {
	cfg, err := p.Load(ctx, opts)
	if err != nil {
		return nil, Settings{}, err
	}
	return cfg, Resolve(cfg), nil
}
