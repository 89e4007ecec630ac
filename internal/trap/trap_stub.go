// trap_stub.go is compiled on platforms with neither POSIX signal
// notification nor a console control handler. Register always fails with
// [ErrUnsupported]; consumers fall back to the OS default termination
// behavior.

//go:build !unix && !windows

package trap

// Trap is an inert placeholder on unsupported platforms.
type Trap struct{}

// New returns a Trap whose Register always fails.
func New() *Trap { return &Trap{} }

// Register always fails with [ErrUnsupported].
func (t *Trap) Register(deliver func(sig int)) error { return ErrUnsupported }

// Unregister is a no-op.
func (t *Trap) Unregister() {}

// RestoreCount always reports zero.
func (t *Trap) RestoreCount() int { return 0 }
