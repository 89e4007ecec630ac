// Package trap owns the OS-level registration that routes interruption
// events into the bridge: sigaction-style signal notification for SIGINT
// and SIGTERM on Unix, a console control handler on Windows. The two
// mechanisms are folded behind one Trap type so everything above this
// package is platform-neutral.
//
// A delivery hands the platform-neutral signal number ([SigInterrupt] or
// [SigTerminate]) to the function passed to Register. On Windows the
// delivery function runs on a thread created by the OS for the console
// event, concurrently with everything else in the process; it must be
// written to tolerate concurrent reentry and must not block, allocate, or
// take locks.
package trap

import "errors"

// Platform-neutral signal numbers, aligned with the POSIX values so
// consumers see the same identifiers on every OS.
const (
	SigInterrupt = 2
	SigTerminate = 15
)

var (
	// ErrUnsupported means the platform has neither POSIX signals nor a
	// console control handler.
	ErrUnsupported = errors.New("trap: not supported on this platform")

	// ErrRegistered means Register was called while the trap is armed.
	ErrRegistered = errors.New("trap: already registered")
)
