// Package confwatch notifies the daemon when its config file changes so
// settings like the log level apply without a restart. fsnotify is the
// primary mechanism, watching the file's parent directory because editors
// replace config files by rename; a mtime-polling fallback covers
// filesystems fsnotify cannot handle.
package confwatch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher delivers a coalesced notification per batch of config changes.
type Watcher struct {
	// path is the absolute config file path.
	path string
	// events receives one token per change; buffered to 1 so bursts of
	// writes coalesce.
	events chan struct{}
	// done is closed by Close to stop the goroutines.
	done chan struct{}
	// fsw is nil when the watcher has fallen back to polling.
	fsw *fsnotify.Watcher
	// polling reports the fallback mode, for status/diagnostics.
	polling atomic.Bool
	// pollInterval is the stat cadence in fallback mode.
	pollInterval time.Duration

	once sync.Once
}

// New watches the config file at path. Falling back to polling is never
// an error; the daemon just reloads with more latency.
func New(path string) *Watcher {
	w := &Watcher{
		path:         path,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: 2 * time.Second,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, polling config file", "error", err)
		w.startPolling()
		return w
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		slog.Info("cannot watch config directory, polling instead", "error", err)
		fsw.Close()
		w.startPolling()
		return w
	}

	w.fsw = fsw
	go w.watch()
	return w
}

// Events returns the notification channel.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Polling reports whether the watcher fell back to mtime polling.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher. Idempotent.
func (w *Watcher) Close() {
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			w.fsw.Close()
		}
	})
}

// notify delivers one token, dropping it if a notification is already
// pending.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// watch forwards write/create/rename events for the config file. An
// fsnotify error channel failure demotes the watcher to polling.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.notify()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.fsw.Close()
			w.fsw = nil
			w.startPolling()
			return
		}
	}
}

// startPolling begins the mtime fallback loop.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// poll stats the config file on a ticker and notifies when its
// modification time advances.
func (w *Watcher) poll() {
	last := w.modTime()

	t := time.NewTicker(w.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			if m := w.modTime(); m.After(last) {
				last = m
				w.notify()
			}
		}
	}
}

// modTime returns the config file's modification time, zero when absent.
func (w *Watcher) modTime() time.Time {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
