// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// LogLevelDebug logs lifecycle detail, including ignored requests.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs transitions and failures.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only errors.
	LogLevelError LogLevel = "error"

	// LogFormatText is the human-readable log format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt key=value lines.
	LogFormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidMillis is returned when a Millis value is negative.
	ErrInvalidMillis = errors.New("invalid duration")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level logged.
	LogLevel string

	// LogFormat selects the log formatter.
	LogFormat string

	// Millis is a duration in milliseconds, as written in config files.
	Millis int64

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// InvalidMillisError is returned when a Millis value is negative.
	InvalidMillisError struct {
		Field string
		Value Millis
	}

	// InvalidConfigError collects field-level validation errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the file-level configuration. Empty fields are filled in by
	// Resolve.
	Config struct {
		Runtime   RuntimeConfig   `json:"runtime" mapstructure:"runtime"`
		Connector ConnectorConfig `json:"connector" mapstructure:"connector"`
		Timeouts  TimeoutsConfig  `json:"timeouts" mapstructure:"timeouts"`
		Service   ServiceConfig   `json:"service" mapstructure:"service"`
		Log       LogConfig       `json:"log" mapstructure:"log"`
	}

	// RuntimeConfig locates and parameterizes the runtime library.
	RuntimeConfig struct {
		Library   string            `json:"library" mapstructure:"library"`
		Resources string            `json:"resources" mapstructure:"resources"`
		Options   map[string]string `json:"options" mapstructure:"options"`
		LazyStart bool              `json:"lazy_start" mapstructure:"lazy_start"`
	}

	// ConnectorConfig configures the client-facing endpoint.
	ConnectorConfig struct {
		Endpoint           string  `json:"endpoint" mapstructure:"endpoint"`
		ChannelDir         string  `json:"channel_dir" mapstructure:"channel_dir"`
		SecurityDescriptor string  `json:"security_descriptor" mapstructure:"security_descriptor"`
		RateLimit          float64 `json:"rate_limit" mapstructure:"rate_limit"`
		RateBurst          int     `json:"rate_burst" mapstructure:"rate_burst"`
	}

	// TimeoutsConfig holds the lifecycle timeouts in milliseconds.
	TimeoutsConfig struct {
		Connect Millis `json:"connect" mapstructure:"connect"`
		Busy    Millis `json:"busy" mapstructure:"busy"`
		Idle    Millis `json:"idle" mapstructure:"idle"`
		Stop    Millis `json:"stop" mapstructure:"stop"`
	}

	// ServiceConfig names the service.
	ServiceConfig struct {
		Name        string `json:"name" mapstructure:"name"`
		DisplayName string `json:"display_name" mapstructure:"display_name"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// DefaultConfig returns the built-in defaults. Platform-dependent values
// (library, endpoint, channel directory) are left empty for Resolve.
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Options:   map[string]string{},
			LazyStart: true,
		},
		Connector: ConnectorConfig{
			RateLimit: 20,
			RateBurst: 40,
		},
		Timeouts: TimeoutsConfig{
			Connect: 3000,
			Busy:    5000,
			Idle:    300000,
			Stop:    10000,
		},
		Service: ServiceConfig{
			Name:        "langhost",
			DisplayName: "Language Runtime Host",
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate returns nil if the LogLevel is one of the defined levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// Validate returns nil if the LogFormat is one of the defined formats.
func (f LogFormat) Validate() error {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return nil
	default:
		return &InvalidLogFormatError{Value: f}
	}
}

// Duration converts the value to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// Validate checks every field that the schema cannot express on its own,
// which matters for configs built in code or overridden from the environment.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Log.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	for field, v := range map[string]Millis{
		"timeouts.connect": c.Timeouts.Connect,
		"timeouts.busy":    c.Timeouts.Busy,
		"timeouts.idle":    c.Timeouts.Idle,
		"timeouts.stop":    c.Timeouts.Stop,
	} {
		if v < 0 {
			errs = append(errs, &InvalidMillisError{Field: field, Value: v})
		}
	}
	if c.Connector.RateLimit <= 0 || c.Connector.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("connector rate limit must be positive (rate_limit=%v, rate_burst=%d)",
			c.Connector.RateLimit, c.Connector.RateBurst))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// Error implements the error interface for InvalidMillisError.
func (e *InvalidMillisError) Error() string {
	return fmt.Sprintf("invalid %s %d: must not be negative", e.Field, e.Value)
}

// Unwrap returns ErrInvalidMillis for errors.Is() compatibility.
func (e *InvalidMillisError) Unwrap() error { return ErrInvalidMillis }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
