// trap_unix.go registers SIGINT and SIGTERM through the runtime's signal
// notification on all Unix-like platforms. The dispatch goroutine draining
// the notification channel is the delivery context here; unlike the Windows
// console callback it is an ordinary goroutine, but deliveries honor the
// same restricted contract so behavior matches across platforms.
//
// The notify/stop functions are injectable so tests can fail the second of
// the two registrations and verify that the first is rolled back, and can
// count disposition restorations.

//go:build unix

package trap

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ///////////////////////////////////////////////
// Trap
// ///////////////////////////////////////////////

// Trap installs and removes the process signal registrations. The zero
// value is not usable; call New.
type Trap struct {
	mu      sync.Mutex
	armed   bool
	ch      chan os.Signal
	done    chan struct{}
	stopped chan struct{}

	// notify and stop default to the os/signal calls. notify registers ch
	// for exactly one signal per call so a partial failure is observable.
	notify func(c chan<- os.Signal, sig os.Signal) error
	stop   func(c chan<- os.Signal)

	// restores counts disposition restorations, including rollbacks.
	restores int
}

// New returns a Trap backed by the os/signal machinery.
func New() *Trap {
	return &Trap{
		notify: func(c chan<- os.Signal, sig os.Signal) error {
			signal.Notify(c, sig)
			return nil
		},
		stop: signal.Stop,
	}
}

// Register installs notification for SIGINT and SIGTERM and starts the
// dispatch goroutine invoking deliver with the platform-neutral signal
// number. Registration is all-or-nothing: if the second signal cannot be
// trapped, the first registration is reverted before the error is
// returned, leaving the process dispositions exactly as found.
func (t *Trap) Register(deliver func(sig int)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return ErrRegistered
	}

	ch := make(chan os.Signal, 1)
	if err := t.notify(ch, syscall.SIGINT); err != nil {
		return fmt.Errorf("trap SIGINT: %w", err)
	}
	if err := t.notify(ch, syscall.SIGTERM); err != nil {
		t.stop(ch)
		t.restores++
		return fmt.Errorf("trap SIGTERM: %w", err)
	}

	t.ch = ch
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	t.armed = true
	go dispatch(ch, t.done, t.stopped, deliver)
	return nil
}

// Unregister reverts the registrations and stops the dispatcher. Calling it
// when not armed is a no-op, and the disposition is restored exactly once
// per successful Register.
func (t *Trap) Unregister() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	t.stop(t.ch)
	t.restores++
	close(t.done)
	<-t.stopped
	t.armed = false
	t.ch = nil
	t.done = nil
	t.stopped = nil
}

// RestoreCount reports how many times a registration has been reverted.
// Instrumentation for tests.
func (t *Trap) RestoreCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restores
}

// dispatch delivers mapped signal numbers until done is closed. Signals
// already queued when Unregister runs are dropped with the registration.
func dispatch(ch chan os.Signal, done, stopped chan struct{}, deliver func(sig int)) {
	defer close(stopped)
	for {
		select {
		case s := <-ch:
			switch s {
			case syscall.SIGINT:
				deliver(SigInterrupt)
			case syscall.SIGTERM:
				deliver(SigTerminate)
			}
		case <-done:
			return
		}
	}
}
