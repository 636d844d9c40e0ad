// Package config provides configuration types and defaults for trackreg.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trackreg/internal/log"
)

// Config holds all configuration options for trackreg.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// DatabaseConfig holds registry database location configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file for the registry.
	// Default: ~/.trackreg/registry.db
	Path string `mapstructure:"path"`
}

// LogConfig holds debug logging configuration.
type LogConfig struct {
	// Enabled turns file logging on. The --debug flag and TRACKREG_DEBUG
	// env override this to true.
	Enabled bool `mapstructure:"enabled"`

	Level string `mapstructure:"level"` // "debug" (default), "info", "warn", "error"

	// File is the log destination.
	// Default: ~/.trackreg/trackreg.log
	File string `mapstructure:"file"`
}

// OutputConfig holds presentation configuration.
type OutputConfig struct {
	Format string `mapstructure:"format"` // "table" (default) or "json"

	// Color controls table styling: "auto" (default, respects NO_COLOR and
	// terminal detection), "always", or "never".
	Color string `mapstructure:"color"`
}

// WatchConfig holds database watch configuration for `list --watch`.
type WatchConfig struct {
	// Debounce is the quiet period before a change event fires.
	// Default: 250ms
	Debounce time.Duration `mapstructure:"debounce"`
}

// TracingConfig holds distributed tracing configuration.
//
// Endpoint follows the exporter: collector address for "otlp", output file
// for "file". Empty means the exporter's default.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// Endpoint is the exporter target.
	// Default: ~/.config/trackreg/traces/traces.jsonl (file),
	// localhost:4317 (otlp)
	Endpoint string `mapstructure:"endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// 1.0 = all traces, 0.1 = 10% of traces
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`

	// Insecure uses plaintext gRPC for the otlp exporter.
	// Default: true (local collectors)
	Insecure bool `mapstructure:"insecure"`
}

// DefaultDatabasePath returns the default registry database location.
// Returns ~/.trackreg/registry.db or empty string if home dir unavailable.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trackreg", "registry.db")
}

// DefaultLogFilePath returns the default log destination.
// Returns ~/.trackreg/trackreg.log or empty string if home dir unavailable.
func DefaultLogFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trackreg", "trackreg.log")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/trackreg/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "trackreg", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Path: "", // Derived from home dir at runtime
		},
		Log: LogConfig{
			Enabled: false,
			Level:   "debug",
			File:    "", // Derived from home dir at runtime
		},
		Output: OutputConfig{
			Format: "table",
			Color:  "auto",
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "file",
			Endpoint:   "", // Derived per exporter at runtime
			SampleRate: 1.0,
			Insecure:   true,
		},
	}
}

// ValidateLog checks logging configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateLog(lc LogConfig) error {
	if lc.Level != "" {
		switch lc.Level {
		case "debug", "info", "warn", "warning", "error":
			// Valid
		default:
			return fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", lc.Level)
		}
	}
	return nil
}

// ValidateOutput checks presentation configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateOutput(oc OutputConfig) error {
	if oc.Format != "" && oc.Format != "table" && oc.Format != "json" {
		return fmt.Errorf("output.format must be \"table\" or \"json\", got %q", oc.Format)
	}
	if oc.Color != "" && oc.Color != "auto" && oc.Color != "always" && oc.Color != "never" {
		return fmt.Errorf("output.color must be \"auto\", \"always\", or \"never\", got %q", oc.Color)
	}
	return nil
}

// ValidateWatch checks watch configuration for errors.
func ValidateWatch(wc WatchConfig) error {
	if wc.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", wc.Debounce)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc TracingConfig) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}
	return nil
}

// Validate checks the whole configuration for errors.
func Validate(cfg Config) error {
	if err := ValidateLog(cfg.Log); err != nil {
		return err
	}
	if err := ValidateOutput(cfg.Output); err != nil {
		return err
	}
	if err := ValidateWatch(cfg.Watch); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Trackreg Configuration

# Registry database location
# database:
#   path: ~/.trackreg/registry.db

# Debug logging
log:
  enabled: false    # Also forced on by --debug or TRACKREG_DEBUG
  level: debug      # debug, info, warn, error
  # file: ~/.trackreg/trackreg.log

# Output settings
output:
  format: table     # "table" (default) or "json"
  color: auto       # auto, always, never (NO_COLOR env also respected)

# Database watch for 'trackreg list --watch'
watch:
  debounce: 250ms   # Quiet period before a refresh fires

# Distributed tracing
# Gives per-command visibility into registry operations
# tracing:
#   enabled: false         # Enable/disable tracing (default: false)
#   exporter: file         # Export backend: file, stdout, otlp (default: file)
#   endpoint: ""           # Output file (file) or collector address (otlp)
#   sample_rate: 1.0       # Trace sampling rate 0.0-1.0 (default: 1.0)
#   insecure: true         # Plaintext gRPC for otlp (default: true)
#
# Example: trace to a local file
# tracing:
#   enabled: true
#   exporter: file
#   endpoint: ~/.config/trackreg/traces/traces.jsonl
#
# Example: send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   endpoint: jaeger.internal:4317
#   sample_rate: 0.1
#   insecure: false
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
