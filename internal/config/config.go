// Package config provides configuration types, defaults, and persistence
// for quoterm.
package config

import (
	"fmt"
	"time"
)

// Environment tags for the session descriptor.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Shutdown grace delay bounds in milliseconds. The delay exists only to
// let buffered terminal output flush before the process exits.
const (
	minGraceDelayMS = 0
	maxGraceDelayMS = 100
)

// Config holds all configuration options for quoterm.
type Config struct {
	Env          string      `mapstructure:"env"`
	Debug        bool        `mapstructure:"debug"`
	GraceDelayMS int         `mapstructure:"grace_delay_ms"`
	MaxListeners int         `mapstructure:"max_listeners"`
	WatchConfig  bool        `mapstructure:"watch_config"`
	LogPath      string      `mapstructure:"log_path"`
	Trace        TraceConfig `mapstructure:"trace"`
	Theme        ThemeConfig `mapstructure:"theme"`
}

// TraceConfig controls dispatch tracing.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	// Path is the JSONL span file. Empty means spans go to stderr via
	// the stdout exporter.
	Path string `mapstructure:"path"`
}

// ThemeConfig holds terminal color overrides as hex strings.
type ThemeConfig struct {
	Highlight string `mapstructure:"highlight"`
	Subtle    string `mapstructure:"subtle"`
	Info      string `mapstructure:"info"`
	Warning   string `mapstructure:"warning"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Env:          EnvDevelopment,
		Debug:        false,
		GraceDelayMS: 75,
		MaxListeners: 50,
		WatchConfig:  true,
		LogPath:      ".quoterm/quoterm.log",
		Trace: TraceConfig{
			Enabled: false,
			Path:    ".quoterm/trace.jsonl",
		},
		Theme: ThemeConfig{
			Highlight: "#7D56F4",
			Subtle:    "#6C6C6C",
			Info:      "#3B82F6",
			Warning:   "#F59E0B",
			Error:     "#EF4444",
			Success:   "#10B981",
		},
	}
}

// GraceDelay returns the shutdown grace delay as a duration.
func (c Config) GraceDelay() time.Duration {
	return time.Duration(c.GraceDelayMS) * time.Millisecond
}

// Validate checks the configuration for values the runtime cannot accept.
func (c Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.GraceDelayMS < minGraceDelayMS || c.GraceDelayMS > maxGraceDelayMS {
		return fmt.Errorf("grace_delay_ms must be between %d and %d, got %d", minGraceDelayMS, maxGraceDelayMS, c.GraceDelayMS)
	}
	if c.MaxListeners < 0 {
		return fmt.Errorf("max_listeners must not be negative, got %d", c.MaxListeners)
	}
	return nil
}
