// Package wake implements the self-pipe wakeup primitive used by the signal
// bridge: an OS-level byte channel whose write end may be touched from the
// trap delivery context and whose read end can be polled — or handed to an
// external event loop — from ordinary code.
//
// The channel is advisory. A byte in the pipe means "state may have changed,
// go look"; losing a write (pipe full, torn down mid-delivery) is harmless
// because the authoritative signal value lives elsewhere. Writes therefore
// never block and never report errors.
//
// Per-platform backing:
//   - Unix: a non-blocking pipe from pipe2(2), pollable with poll(2).
//   - Windows: a pair of connected loopback UDP sockets, pollable with
//     WSAPoll. Windows has no pollable anonymous pipe, so a socket pair
//     stands in.
//   - Anything else: Create returns [ErrUnsupported].
package wake

import "errors"

// Sentinel errors returned by [Channel.Wait] and [Create].
var (
	// ErrUnsupported means the platform has no usable wake primitive.
	ErrUnsupported = errors.New("wake: not supported on this platform")

	// ErrTimeout means a bounded Wait elapsed with no byte readable.
	ErrTimeout = errors.New("wake: wait timed out")

	// ErrClosed means the channel was torn down, possibly while another
	// thread was blocked in Wait.
	ErrClosed = errors.New("wake: channel closed")
)

// maxPollMisses bounds retries when the readiness primitive itself fails
// transiently. Each miss sleeps briefly, so a persistent failure surfaces
// as an error instead of a busy spin.
const maxPollMisses = 100
