// Package sigbridge converts asynchronous OS interruption events — SIGINT
// and SIGTERM on Unix, console control events on Windows — into state that
// ordinary code can poll, block on, or multiplex with other I/O.
//
// A delivery stores the platform-neutral signal number ([Interrupt] = 2,
// [Terminate] = 15) in an atomic cell and writes one advisory byte to a
// self-pipe. The cell is the source of truth; the pipe only exists so a
// consumer can sleep instead of busy-polling, and a failed pipe write is
// silently absorbed. The state write happens before the wake write, so a
// consumer that sees the wake byte readable is guaranteed to observe the
// signal on its next [Bridge.Caught].
//
// Rapid deliveries before a [Bridge.Clear] coalesce: only the most recent
// signal is retained and any number of wake bytes may collapse into one.
// The bridge records "an interruption was requested", not a queue.
//
// Because OS signal disposition is process-global, at most one bridge may
// be armed at a time; [Bridge.Setup] on a second instance fails with
// [ErrAlreadyArmed]. Unarmed instances are freely constructible, which is
// how the tests exercise the lifecycle.
//
// The recommended integration is the polling surface: arm with
// Setup(nil), then block in [Bridge.Wait] or feed [Bridge.WakeFD] to an
// external event loop. The optional callback passed to Setup is an
// advanced escape hatch: it runs inside the delivery context — on Windows
// that is a thread the OS created for the console event — and must not
// block, allocate, take locks, or log. The bridge cannot enforce this;
// it is a caller obligation.
package sigbridge

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tools.zach/dev/sigbridge/internal/trap"
	"tools.zach/dev/sigbridge/internal/wake"
)

// ///////////////////////////////////////////////
// Signals
// ///////////////////////////////////////////////

// Signal is the platform-neutral signal number. The values follow the
// POSIX convention on every OS.
type Signal int32

const (
	// None means no signal has been observed since the last Clear.
	None Signal = 0
	// Interrupt is an interactive interruption (SIGINT, Ctrl+C/Ctrl+Break).
	Interrupt Signal = trap.SigInterrupt
	// Terminate is a termination request (SIGTERM, console close/logoff/
	// shutdown).
	Terminate Signal = trap.SigTerminate
)

// String returns a short lowercase name for logging by consumers.
func (s Signal) String() string {
	switch s {
	case None:
		return "none"
	case Interrupt:
		return "interrupt"
	case Terminate:
		return "terminate"
	default:
		return fmt.Sprintf("signal(%d)", int32(s))
	}
}

// Callback receives the signal inside the delivery context. See the
// package comment for the restrictions it must honor.
type Callback func(Signal)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

var (
	// ErrUnsupported means the platform has neither POSIX signals nor a
	// console control handler. Permanent; callers fall back to the OS
	// default termination behavior.
	ErrUnsupported = errors.New("sigbridge: not supported on this platform")

	// ErrAlreadyArmed means this bridge, or another one in the process,
	// is already armed.
	ErrAlreadyArmed = errors.New("sigbridge: a bridge is already armed")

	// ErrTimeout is returned by WaitTimeout when the deadline elapses
	// with no delivery. State is left untouched.
	ErrTimeout = errors.New("sigbridge: wait timed out")

	// ErrClosed means the bridge is not armed, or was torn down while a
	// Wait was blocked.
	ErrClosed = errors.New("sigbridge: bridge not armed")
)

// armedBridge guards the process-wide invariant that only one bridge is
// armed at a time.
var armedBridge atomic.Pointer[Bridge]

// platformTrap is what the bridge needs from internal/trap; a seam so
// tests can substitute a trap that fails or records registrations.
type platformTrap interface {
	Register(deliver func(sig int)) error
	Unregister()
	RestoreCount() int
}

// ///////////////////////////////////////////////
// Bridge
// ///////////////////////////////////////////////

// Bridge is the signal-to-event bridge. Construct with [New], arm with
// [Setup], tear down with [Cleanup]. All consumer methods are safe from
// any goroutine; Setup and Cleanup are expected to be serialized by the
// caller with respect to each other.
type Bridge struct {
	mu    sync.Mutex
	armed bool

	// last is the signal cell: single writer (the delivery context),
	// any number of readers, no locks.
	last atomic.Int32

	// cb is the optional user callback, swapped atomically so teardown
	// never races a late Windows console callback.
	cb atomic.Pointer[Callback]

	// ch stays set (closed, not nil) after Cleanup so a straggling
	// delivery finds an inert channel instead of a nil pointer.
	ch *wake.Channel

	tr platformTrap
}

// New returns an unarmed bridge backed by the platform trap.
func New() *Bridge {
	return &Bridge{tr: trap.New()}
}

// Setup arms the bridge: it allocates the wake channel, registers the OS
// trap, and stores the optional callback. Registration is all-or-nothing;
// on any error the process is left exactly as it was found. cb may be nil.
func (b *Bridge) Setup(cb Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.armed {
		return ErrAlreadyArmed
	}
	if !armedBridge.CompareAndSwap(nil, b) {
		return ErrAlreadyArmed
	}

	ch, err := wake.Create()
	if err != nil {
		armedBridge.CompareAndSwap(b, nil)
		if errors.Is(err, wake.ErrUnsupported) {
			return ErrUnsupported
		}
		return fmt.Errorf("create wake channel: %w", err)
	}

	b.ch = ch
	b.cb.Store(&cb)
	b.last.Store(int32(None))

	if err := b.tr.Register(b.deliver); err != nil {
		b.cb.Store(nil)
		ch.Close()
		armedBridge.CompareAndSwap(b, nil)
		if errors.Is(err, trap.ErrUnsupported) {
			return ErrUnsupported
		}
		return fmt.Errorf("register trap: %w", err)
	}

	b.armed = true
	return nil
}

// deliver is the trampoline: it runs inside the delivery context and does
// nothing but record the signal, wake the channel, and hand the signal to
// the user callback. The state store precedes the wake write; that
// ordering is what lets consumers trust Caught after a wake.
func (b *Bridge) deliver(sig int) {
	b.last.Store(int32(sig))
	b.ch.Signal()
	if p := b.cb.Load(); p != nil && *p != nil {
		(*p)(Signal(sig))
	}
}

// ///////////////////////////////////////////////
// Consumer API
// ///////////////////////////////////////////////

// IsTriggered reports whether a signal has been observed since the last
// Clear. Non-blocking, callable from any goroutine.
func (b *Bridge) IsTriggered() bool {
	return b.Caught() != None
}

// Caught returns the most recently observed signal, or [None].
// Non-blocking, callable from any goroutine.
func (b *Bridge) Caught() Signal {
	return Signal(b.last.Load())
}

// Clear resets the signal cell to [None] and drains pending wake bytes.
// Any delivery completed before Clear began leaves no residue; a delivery
// racing Clear may survive it, which is the correct outcome.
func (b *Bridge) Clear() {
	b.last.Store(int32(None))
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch != nil {
		ch.Drain()
	}
}

// WakeFD returns the raw readable descriptor of the wake channel for
// inclusion in an external readiness poll alongside sockets and files.
// ok is false when the bridge is not armed. After the descriptor polls
// readable, check [Bridge.Caught] and then [Bridge.Clear].
func (b *Bridge) WakeFD() (fd uintptr, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed || b.ch == nil {
		return 0, false
	}
	return b.ch.ReadFD()
}

// Wait blocks until a signal is observed and returns it. The caught state
// is not cleared. Returns [ErrClosed] if the bridge is torn down while
// waiting.
func (b *Bridge) Wait() (Signal, error) {
	return b.wait(-1)
}

// WaitTimeout is Wait with a deadline. On expiry it returns [ErrTimeout]
// and leaves all state untouched.
func (b *Bridge) WaitTimeout(d time.Duration) (Signal, error) {
	millis := int(d.Milliseconds())
	if d > 0 && millis == 0 {
		millis = 1
	}
	if millis < 0 {
		millis = 0
	}
	return b.wait(millis)
}

// wait loops on the readiness primitive, tolerating spurious wakeups: a
// stale byte whose signal was already cleared is drained and the wait
// resumes rather than reporting a phantom delivery.
func (b *Bridge) wait(timeoutMillis int) (Signal, error) {
	b.mu.Lock()
	ch := b.ch
	armed := b.armed
	b.mu.Unlock()
	if !armed || ch == nil {
		return None, ErrClosed
	}

	for {
		if s := b.Caught(); s != None {
			return s, nil
		}
		if err := ch.Wait(timeoutMillis); err != nil {
			switch {
			case errors.Is(err, wake.ErrTimeout):
				// A delivery may have landed as the deadline expired.
				if s := b.Caught(); s != None {
					return s, nil
				}
				return None, ErrTimeout
			case errors.Is(err, wake.ErrClosed):
				return None, ErrClosed
			default:
				return None, err
			}
		}
		if s := b.Caught(); s != None {
			return s, nil
		}
		ch.Drain()
	}
}

// Cleanup disarms the bridge: the trap is unregistered (restoring prior
// dispositions), the wake channel is closed, the signal cell is reset,
// and the callback is dropped. Idempotent, a no-op when never armed, and
// reports nothing; a goroutine blocked in Wait observes [ErrClosed].
// Re-arming afterwards behaves exactly like a first Setup.
func (b *Bridge) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed {
		return
	}
	b.tr.Unregister()
	b.cb.Store(nil)
	b.ch.Close()
	b.last.Store(int32(None))
	b.armed = false
	armedBridge.CompareAndSwap(b, nil)
}

// RestoreCount reports how many times the trap registration has been
// reverted over the bridge's lifetime. Instrumentation for tests.
func (b *Bridge) RestoreCount() int {
	return b.tr.RestoreCount()
}
