package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"quoterm/internal/log"
)

// fileConfig mirrors Config with yaml tags for writing the default file.
// The mapstructure tags on Config belong to viper and do not help here.
type fileConfig struct {
	Env          string          `yaml:"env"`
	Debug        bool            `yaml:"debug"`
	GraceDelayMS int             `yaml:"grace_delay_ms"`
	MaxListeners int             `yaml:"max_listeners"`
	WatchConfig  bool            `yaml:"watch_config"`
	LogPath      string          `yaml:"log_path"`
	Trace        fileTraceConfig `yaml:"trace"`
	Theme        fileThemeConfig `yaml:"theme"`
}

type fileTraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type fileThemeConfig struct {
	Highlight string `yaml:"highlight"`
	Subtle    string `yaml:"subtle"`
	Info      string `yaml:"info"`
	Warning   string `yaml:"warning"`
	Error     string `yaml:"error"`
	Success   string `yaml:"success"`
}

func toFileConfig(c Config) fileConfig {
	return fileConfig{
		Env:          c.Env,
		Debug:        c.Debug,
		GraceDelayMS: c.GraceDelayMS,
		MaxListeners: c.MaxListeners,
		WatchConfig:  c.WatchConfig,
		LogPath:      c.LogPath,
		Trace:        fileTraceConfig{Enabled: c.Trace.Enabled, Path: c.Trace.Path},
		Theme: fileThemeConfig{
			Highlight: c.Theme.Highlight,
			Subtle:    c.Theme.Subtle,
			Info:      c.Theme.Info,
			Warning:   c.Theme.Warning,
			Error:     c.Theme.Error,
			Success:   c.Theme.Success,
		},
	}
}

// WriteDefaultConfig creates a config file at the given path with default
// settings. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(toFileConfig(Defaults()))
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}
