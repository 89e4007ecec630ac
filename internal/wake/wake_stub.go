// wake_stub.go is compiled on platforms with neither a pollable pipe nor a
// winsock socket pair (plan9, js, wasip1). Create fails with
// [ErrUnsupported] and the zero Channel is inert, so callers need no
// platform checks of their own.

//go:build !unix && !windows

package wake

// Channel is an inert placeholder on unsupported platforms.
type Channel struct{}

// Create always fails with [ErrUnsupported].
func Create() (*Channel, error) {
	return nil, ErrUnsupported
}

// Signal is a no-op.
func (c *Channel) Signal() {}

// Drain is a no-op.
func (c *Channel) Drain() {}

// ReadFD reports no usable descriptor.
func (c *Channel) ReadFD() (fd uintptr, ok bool) { return 0, false }

// Wait always fails with [ErrUnsupported].
func (c *Channel) Wait(timeoutMillis int) error { return ErrUnsupported }

// Close is a no-op.
func (c *Channel) Close() {}
