// lock_windows.go implements the PID file lock with LockFileEx. The
// LOCKFILE_FAIL_IMMEDIATELY flag mirrors LOCK_NB on Unix; the lock covers
// a single byte since it exists for mutual exclusion, not data integrity.

//go:build windows

package pidlock

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockExclusive takes a non-blocking exclusive byte-range lock on f.
func lockExclusive(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		1, 0,
		ol,
	)
}

// unlock drops the byte-range lock.
func unlock(f *os.File) {
	ol := new(windows.Overlapped)
	_ = windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}
