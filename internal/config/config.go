// Package config provides configuration loading and defaults for the
// sigbridged daemon.
//
// Configuration is TOML from the data directory. A missing file yields
// pure defaults; a present file is decoded strictly enough to warn about
// values the daemon would otherwise silently misread (bad glob patterns,
// nonsense sizes and timeouts).
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/sigbridge/internal/paths"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Config is the top-level daemon configuration.
type Config struct {
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
	// Hooks holds shutdown hook settings.
	Hooks HooksConfig `toml:"hooks"`
	// Notify holds shutdown webhook settings.
	Notify NotifyConfig `toml:"notify"`
	// Status holds status endpoint settings.
	Status StatusConfig `toml:"status"`
}

// LogConfig controls the rotating daemon log.
type LogConfig struct {
	// Level is the minimum severity: debug, info, warn, error.
	Level string `toml:"level"`
	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int `toml:"max_size_mb"`
}

// HooksConfig controls the scripts run when a termination signal is
// observed. Patterns are doublestar globs matched against paths relative
// to the hooks directory.
type HooksConfig struct {
	// Enabled turns hook execution on.
	Enabled bool `toml:"enabled"`
	// Include selects hook files; empty means nothing runs.
	Include []string `toml:"include"`
	// Exclude removes files already selected by Include.
	Exclude []string `toml:"exclude"`
	// TimeoutSeconds bounds each hook's run time.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// NotifyConfig controls the best-effort shutdown webhook.
type NotifyConfig struct {
	// URL receives a JSON POST when the daemon shuts down on a signal.
	// Empty disables notification.
	URL string `toml:"url"`
	// TimeoutSeconds bounds the whole request including retries.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// StatusConfig controls the local status endpoint.
type StatusConfig struct {
	// Enabled turns the endpoint on (unix socket or named pipe).
	Enabled bool `toml:"enabled"`
}

// ///////////////////////////////////////////////
// Defaults and loading
// ///////////////////////////////////////////////

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 5,
		},
		Hooks: HooksConfig{
			Enabled:        true,
			Include:        []string{"**/*.sh"},
			TimeoutSeconds: 10,
		},
		Notify: NotifyConfig{
			TimeoutSeconds: 5,
		},
		Status: StatusConfig{
			Enabled: true,
		},
	}
}

// Load reads config.toml from the data directory. A missing file is not
// an error; defaults are returned. Decoded values are clamped and
// validated, with problems logged rather than fatal so a typo never keeps
// the daemon from starting.
func Load(dataDir string) (*Config, error) {
	cfg := Default()

	path := paths.DataDir{Root: dataDir}.Config()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.clamp()
	cfg.validate()
	return cfg, nil
}

// clamp forces out-of-range numeric settings back to their defaults.
func (c *Config) clamp() {
	if c.Log.MaxSizeMB <= 0 || c.Log.MaxSizeMB > 1024 {
		c.Log.MaxSizeMB = Default().Log.MaxSizeMB
	}
	if c.Hooks.TimeoutSeconds <= 0 {
		c.Hooks.TimeoutSeconds = Default().Hooks.TimeoutSeconds
	}
	if c.Notify.TimeoutSeconds <= 0 {
		c.Notify.TimeoutSeconds = Default().Notify.TimeoutSeconds
	}
}

// validate warns about settings that will be ignored at runtime.
func (c *Config) validate() {
	for _, p := range append(append([]string{}, c.Hooks.Include...), c.Hooks.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			slog.Warn("invalid hook glob pattern, it will not match", "pattern", p)
		}
	}
}
