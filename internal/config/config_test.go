// config_test.go covers default loading, TOML decoding, and clamping of
// out-of-range values.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	if cfg.Log.Level != want.Log.Level || cfg.Log.MaxSizeMB != want.Log.MaxSizeMB {
		t.Fatalf("log defaults not applied: %+v", cfg.Log)
	}
	if !cfg.Hooks.Enabled || cfg.Hooks.TimeoutSeconds != want.Hooks.TimeoutSeconds {
		t.Fatalf("hooks defaults not applied: %+v", cfg.Hooks)
	}
	if !cfg.Status.Enabled {
		t.Fatal("status endpoint not enabled by default")
	}
}

func TestLoadDecodesFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[log]
level = "debug"
max_size_mb = 20

[hooks]
enabled = false
include = ["pre/*.sh", "**/*.hook"]
exclude = ["pre/skip.sh"]
timeout_seconds = 3

[notify]
url = "http://127.0.0.1:9999/shutdown"

[status]
enabled = false
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.MaxSizeMB != 20 {
		t.Fatalf("log section: %+v", cfg.Log)
	}
	if cfg.Hooks.Enabled || len(cfg.Hooks.Include) != 2 || cfg.Hooks.TimeoutSeconds != 3 {
		t.Fatalf("hooks section: %+v", cfg.Hooks)
	}
	if cfg.Notify.URL != "http://127.0.0.1:9999/shutdown" {
		t.Fatalf("notify section: %+v", cfg.Notify)
	}
	if cfg.Status.Enabled {
		t.Fatal("status.enabled not decoded")
	}
	// Unset numeric values fall back to defaults via clamp.
	if cfg.Notify.TimeoutSeconds != Default().Notify.TimeoutSeconds {
		t.Fatalf("notify timeout not defaulted: %d", cfg.Notify.TimeoutSeconds)
	}
}

func TestLoadClampsNonsenseValues(t *testing.T) {
	dir := t.TempDir()
	content := `
[log]
max_size_mb = -4

[hooks]
timeout_seconds = 0
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.MaxSizeMB != Default().Log.MaxSizeMB {
		t.Fatalf("max_size_mb not clamped: %d", cfg.Log.MaxSizeMB)
	}
	if cfg.Hooks.TimeoutSeconds != Default().Hooks.TimeoutSeconds {
		t.Fatalf("timeout_seconds not clamped: %d", cfg.Hooks.TimeoutSeconds)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[log\nlevel="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted malformed TOML")
	}
}
