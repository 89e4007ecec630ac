// trap_unix_test.go covers the registration state machine: all-or-nothing
// rollback when the second registration fails, idempotent unregistration
// with a single disposition restore, signal-number mapping through the
// dispatcher, and one end-to-end delivery of a real SIGINT.

//go:build unix

package trap

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"
)

// stubTrap returns a Trap whose notify/stop are replaced by counters, plus
// the channel captured from Register so tests can inject deliveries.
func stubTrap(failOnCall int) (*Trap, *stubState) {
	st := &stubState{failOn: failOnCall}
	t := &Trap{
		notify: func(c chan<- os.Signal, sig os.Signal) error {
			st.notifies++
			if st.notifies == st.failOn {
				return errors.New("registration refused")
			}
			st.ch = c
			return nil
		},
		stop: func(c chan<- os.Signal) { st.stops++ },
	}
	return t, st
}

type stubState struct {
	notifies int
	stops    int
	failOn   int
	ch       chan<- os.Signal
}

func TestRollbackWhenSecondRegistrationFails(t *testing.T) {
	tr, st := stubTrap(2)

	err := tr.Register(func(int) {})
	if err == nil {
		t.Fatal("Register succeeded despite second registration failing")
	}
	if st.stops != 1 {
		t.Fatalf("first registration not rolled back: %d stop calls", st.stops)
	}
	if tr.RestoreCount() != 1 {
		t.Fatalf("RestoreCount = %d, want 1", tr.RestoreCount())
	}

	// The trap must be back in its unarmed state and registrable again.
	if err := tr.Register(func(int) {}); err != nil {
		t.Fatalf("Register after rollback failed: %v", err)
	}
	tr.Unregister()
}

func TestRegisterWhileArmedRejected(t *testing.T) {
	tr, _ := stubTrap(0)
	if err := tr.Register(func(int) {}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	defer tr.Unregister()

	if err := tr.Register(func(int) {}); !errors.Is(err, ErrRegistered) {
		t.Fatalf("second Register: got %v, want ErrRegistered", err)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	tr, st := stubTrap(0)
	if err := tr.Register(func(int) {}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tr.Unregister()
	tr.Unregister()
	tr.Unregister()

	if st.stops != 1 {
		t.Fatalf("stop called %d times, want 1", st.stops)
	}
	if tr.RestoreCount() != 1 {
		t.Fatalf("RestoreCount = %d, want 1", tr.RestoreCount())
	}
}

func TestDispatcherMapsSignalNumbers(t *testing.T) {
	tr, st := stubTrap(0)

	got := make(chan int, 4)
	if err := tr.Register(func(sig int) { got <- sig }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	defer tr.Unregister()

	st.ch <- syscall.SIGINT
	if sig := recvSig(t, got); sig != SigInterrupt {
		t.Fatalf("SIGINT mapped to %d, want %d", sig, SigInterrupt)
	}

	st.ch <- syscall.SIGTERM
	if sig := recvSig(t, got); sig != SigTerminate {
		t.Fatalf("SIGTERM mapped to %d, want %d", sig, SigTerminate)
	}
}

func TestRealSignalDelivery(t *testing.T) {
	tr := New()

	got := make(chan int, 1)
	if err := tr.Register(func(sig int) {
		select {
		case got <- sig:
		default:
		}
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	defer tr.Unregister()

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if sig := recvSig(t, got); sig != SigInterrupt {
		t.Fatalf("delivered %d, want %d", sig, SigInterrupt)
	}
}

func recvSig(t *testing.T, ch chan int) int {
	t.Helper()
	select {
	case sig := <-ch:
		return sig
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery within timeout")
		return 0
	}
}
