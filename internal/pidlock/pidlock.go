// Package pidlock enforces single-instance daemon execution through a
// locked PID file. The file stays open and locked for the daemon's
// lifetime; the lock, not the file content, is the liveness signal, so a
// stale file left by a crashed instance is reclaimed automatically.
package pidlock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// HeldError reports that another live process holds the lock.
type HeldError struct {
	// PID is the holder's process id as recorded in the file, 0 when
	// unreadable.
	PID int
}

func (e *HeldError) Error() string {
	if e.PID == 0 {
		return "pid file locked by another process"
	}
	return fmt.Sprintf("pid file locked by process %d", e.PID)
}

// Lock is an acquired PID file. Release it on shutdown.
type Lock struct {
	path string
	f    *os.File
}

// Acquire creates or opens the PID file at path, takes a non-blocking
// exclusive lock, and records the current PID. If a live process holds
// the lock, a [*HeldError] is returned. A stale file from a dead process
// locks cleanly and is overwritten.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open pid file: %w", err)
	}
	if err := lockExclusive(f); err != nil {
		held := &HeldError{PID: readPID(path)}
		f.Close()
		return nil, held
	}
	if err := f.Truncate(0); err != nil {
		unlock(f)
		f.Close()
		return nil, fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		unlock(f)
		f.Close()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &Lock{path: path, f: f}, nil
}

// Release unlocks and removes the PID file. Safe to call once per
// successful Acquire.
func (l *Lock) Release() {
	if l == nil || l.f == nil {
		return
	}
	unlock(l.f)
	l.f.Close()
	l.f = nil
	os.Remove(l.path)
}

// readPID parses the process id recorded in the file, 0 on any problem.
func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
