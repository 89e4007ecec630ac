// trap_windows.go registers a console control handler via
// SetConsoleCtrlHandler. The handler maps interactive interrupts (Ctrl+C,
// Ctrl+Break) and close/shutdown-style events onto the same two signal
// numbers the Unix build uses, so consumers never see a Windows-specific
// identity.
//
// syscall.NewCallback allocations are permanent and capped per process, so
// the callback is created once and reads the active delivery function from
// an atomic; arming and disarming only swap that pointer around the
// SetConsoleCtrlHandler add/remove calls.

//go:build windows

package trap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/windows"
)

// ///////////////////////////////////////////////
// Console control callback
// ///////////////////////////////////////////////

var (
	ctrlCallback     uintptr
	ctrlCallbackOnce sync.Once

	// activeDeliver is the delivery function of the armed trap, nil while
	// disarmed. Read on the OS-created console event thread.
	activeDeliver atomic.Pointer[func(sig int)]
)

// ctrlHandler runs on a thread the OS spawns per console event, possibly
// concurrently with other deliveries. It does nothing beyond mapping the
// event and handing the signal number to the armed delivery function.
// Returning 1 claims the event; unmapped events are passed on.
func ctrlHandler(ctrlType uintptr) uintptr {
	var sig int
	switch ctrlType {
	case windows.CTRL_C_EVENT, windows.CTRL_BREAK_EVENT:
		sig = SigInterrupt
	case windows.CTRL_CLOSE_EVENT, windows.CTRL_LOGOFF_EVENT, windows.CTRL_SHUTDOWN_EVENT:
		sig = SigTerminate
	default:
		return 0
	}
	fn := activeDeliver.Load()
	if fn == nil {
		return 0
	}
	(*fn)(sig)
	return 1
}

// ///////////////////////////////////////////////
// Trap
// ///////////////////////////////////////////////

// Trap installs and removes the console control handler. The zero value is
// not usable; call New.
type Trap struct {
	mu       sync.Mutex
	armed    bool
	restores int
}

// New returns a Trap backed by SetConsoleCtrlHandler.
func New() *Trap {
	return &Trap{}
}

// Register installs the console control handler routing events into
// deliver. A failed installation leaves no state behind.
func (t *Trap) Register(deliver func(sig int)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return ErrRegistered
	}
	if prev := activeDeliver.Load(); prev != nil {
		// Another Trap instance holds the process-wide handler.
		return ErrRegistered
	}

	ctrlCallbackOnce.Do(func() {
		ctrlCallback = syscall.NewCallback(ctrlHandler)
	})

	activeDeliver.Store(&deliver)
	if err := windows.SetConsoleCtrlHandler(ctrlCallback, true); err != nil {
		activeDeliver.Store(nil)
		return fmt.Errorf("SetConsoleCtrlHandler: %w", err)
	}
	t.armed = true
	return nil
}

// Unregister removes the console control handler. Calling it when not
// armed is a no-op.
func (t *Trap) Unregister() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	_ = windows.SetConsoleCtrlHandler(ctrlCallback, false)
	activeDeliver.Store(nil)
	t.restores++
	t.armed = false
}

// RestoreCount reports how many times a registration has been reverted.
// Instrumentation for tests.
func (t *Trap) RestoreCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restores
}
