// Package main implements sigbridged, a small supervision daemon built on
// the sigbridge library. It arms the bridge, serves a local status
// endpoint, reloads its configuration on change, and on the first
// interruption runs the configured shutdown hooks and webhook before
// exiting cleanly. A second interruption forces an immediate exit with
// the conventional 128+signal status.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	sigbridge "tools.zach/dev/sigbridge"
	"tools.zach/dev/sigbridge/internal/config"
	"tools.zach/dev/sigbridge/internal/confwatch"
	"tools.zach/dev/sigbridge/internal/hooks"
	"tools.zach/dev/sigbridge/internal/logger"
	"tools.zach/dev/sigbridge/internal/notify"
	"tools.zach/dev/sigbridge/internal/paths"
	"tools.zach/dev/sigbridge/internal/pidlock"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via -ldflags "-X main.version=...". Bare
// builds fall back to the VCS info the Go toolchain embeds.
var version = "dev"

// resolveVersion returns the build version string, deriving a
// "dev+<hash>" tag from embedded VCS data when ldflags were not set.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	tag := "dev+" + revision[:min(7, len(revision))]
	if dirty {
		tag += ".dirty"
	}
	return tag
}

// ///////////////////////////////////////////////
// Data directory
// ///////////////////////////////////////////////

// defaultDataDir returns ~/.sigbridged, falling back to a directory under
// the working directory when the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Logging
// ///////////////////////////////////////////////

// initLogger (re)creates the default logger from the current config,
// closing the previous log sink. Called at startup and on config reload.
func initLogger(dd paths.DataDir, cfg *config.Config, prev io.Closer) io.Closer {
	if prev != nil {
		prev.Close()
	}
	log, closer := logger.New(dd.Log(), logger.ParseLevel(cfg.Log.Level), cfg.Log.MaxSizeMB)
	slog.SetDefault(log)
	return closer
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, hooks, and logs")
	flag.Parse()

	dd := paths.DataDir{Root: *dataDir}
	if err := os.MkdirAll(dd.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}
	if _, err := os.Stat(dd.Config()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dd.Config(), sigbridge.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dd.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}
	logCloser := initLogger(dd, cfg, nil)
	defer func() { logCloser.Close() }()

	lock, err := pidlock.Acquire(dd.PID())
	if err != nil {
		var held *pidlock.HeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "sigbridged already running (pid %d)\n", held.PID)
		} else {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		}
		os.Exit(1)
	}
	defer lock.Release()

	ver := resolveVersion()
	start := time.Now()
	slog.Info("sigbridged starting", "version", ver, "data_dir", dd.Root)

	bridge := sigbridge.New()
	if err := bridge.Setup(nil); err != nil {
		if errors.Is(err, sigbridge.ErrUnsupported) {
			slog.Error("no interruption mechanism on this platform, exiting")
		} else {
			slog.Error("failed to arm signal bridge", "error", err)
		}
		lock.Release()
		os.Exit(1)
	}
	defer bridge.Cleanup()

	if cfg.Status.Enabled {
		closer, err := startStatus(dd, bridge, ver, start)
		if err != nil {
			slog.Warn("status endpoint unavailable", "error", err)
		} else {
			defer closer.Close()
		}
	}

	watcher := confwatch.New(dd.Config())
	defer watcher.Close()

	// The bridge's blocking wait runs in its own goroutine so the main
	// loop can also react to config changes.
	sigCh := make(chan sigbridge.Signal, 1)
	go func() {
		s, err := bridge.Wait()
		if err != nil {
			return
		}
		sigCh <- s
	}()

	slog.Info("sigbridged running", "pid", os.Getpid(), "config_polling", watcher.Polling())

	var caught sigbridge.Signal
	for caught == sigbridge.None {
		select {
		case s := <-sigCh:
			caught = s
		case <-watcher.Events():
			reloaded, err := config.Load(dd.Root)
			if err != nil {
				slog.Warn("config reload failed, keeping previous settings", "error", err)
				continue
			}
			cfg = reloaded
			logCloser = initLogger(dd, cfg, logCloser)
			slog.Info("configuration reloaded", "log_level", cfg.Log.Level)
		}
	}

	slog.Info("interruption observed, shutting down", "signal", caught.String())

	// Re-arm the wait so a second signal forces an immediate exit while
	// hooks and the webhook are still running.
	bridge.Clear()
	go func() {
		if s, err := bridge.Wait(); err == nil {
			fmt.Fprintf(os.Stderr, "second %s, forcing exit\n", s)
			os.Exit(128 + int(s))
		}
	}()

	if cfg.Hooks.Enabled {
		timeout := time.Duration(cfg.Hooks.TimeoutSeconds) * time.Second
		ran := hooks.RunAll(dd.Hooks(), cfg.Hooks.Include, cfg.Hooks.Exclude, caught.String(), timeout)
		slog.Info("shutdown hooks finished", "ran", ran)
	}
	notify.SendLogged(cfg.Notify.URL, caught.String(), time.Duration(cfg.Notify.TimeoutSeconds)*time.Second)

	slog.Info("sigbridged stopped", "uptime", time.Since(start).Round(time.Second).String())
}
