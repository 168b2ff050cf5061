// SPDX-License-Identifier: MPL-2.0

// Package config loads langhost configuration and resolves it into the
// Settings consumed by the host, the connector and the service.
//
// Configuration is read from config.cue in the platform config directory
// (~/.config/langhost on Linux, ~/Library/Application Support/langhost on
// macOS, %APPDATA%\langhost on Windows) or the current directory, validated
// against the embedded CUE schema (config_schema.cue), layered over built-in
// defaults with Viper and overridable from LANGHOST_* environment variables.
package config
