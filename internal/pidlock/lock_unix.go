// lock_unix.go implements the PID file lock with flock(2) on all
// non-Windows platforms. Advisory locks are released by the kernel when
// the holder dies, which is what makes stale-file reclamation work.

//go:build unix

package pidlock

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes a non-blocking exclusive flock on f. EWOULDBLOCK
// means another live process holds it.
func lockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// unlock drops the flock. Closing the descriptor would release it too;
// the explicit unlock keeps Release symmetric across platforms.
func unlock(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
