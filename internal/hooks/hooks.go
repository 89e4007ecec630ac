// Package hooks discovers and runs shutdown hook scripts. When sigbridged
// observes a termination signal it executes every file under the hooks
// directory selected by the configured include/exclude globs, in sorted
// order, each bounded by a timeout. Hooks are best-effort: a failing or
// hanging hook is logged and the shutdown continues.
package hooks

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// signalEnv is the environment variable carrying the observed signal name
// into each hook.
const signalEnv = "SIGBRIDGED_SIGNAL"

// Select walks dir and returns the hooks matching include and not
// matching exclude, as absolute paths in sorted order. Patterns are
// doublestar globs against the path relative to dir; invalid patterns
// never match. A missing hooks directory selects nothing.
func Select(dir string, include, exclude []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchesAny(include, rel) && !matchesAny(exclude, rel) {
			out = append(out, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// matchesAny reports whether rel matches at least one of the patterns.
func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Run executes one hook with the signal name in its environment, killed at
// the timeout.
func Run(path, signalName string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(os.Environ(), signalEnv+"="+signalName)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("hook %s: timed out after %s", path, timeout)
		}
		return fmt.Errorf("hook %s: %w", path, err)
	}
	return nil
}

// RunAll selects and runs every configured hook sequentially, logging
// failures and carrying on. Returns the number of hooks that ran
// successfully.
func RunAll(dir string, include, exclude []string, signalName string, timeout time.Duration) int {
	selected, err := Select(dir, include, exclude)
	if err != nil {
		slog.Warn("hook discovery failed", "dir", dir, "error", err)
		return 0
	}
	ran := 0
	for _, h := range selected {
		if err := Run(h, signalName, timeout); err != nil {
			slog.Warn("shutdown hook failed", "error", err)
			continue
		}
		slog.Info("shutdown hook completed", "hook", h)
		ran++
	}
	return ran
}
