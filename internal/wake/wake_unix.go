// wake_unix.go backs the wake channel with a non-blocking pipe on all
// Unix-like platforms (Linux, macOS, *BSD). The write side is safe to touch
// from a signal-delivery context: write(2) on a non-blocking pipe is
// async-signal-safe and a full pipe simply drops the advisory byte.

//go:build unix

package wake

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// ///////////////////////////////////////////////
// Channel
// ///////////////////////////////////////////////

// Channel is a self-pipe. Both descriptors are set non-blocking and
// close-on-exec at creation and hold -1 after Close. The descriptors live
// in atomics so Signal stays lock-free while teardown can run from another
// thread; a waiter raced by Close is unblocked by the write end closing
// first (POLLHUP), never by a lock.
type Channel struct {
	r atomic.Int64
	w atomic.Int64
}

// Create allocates the pipe. Both ends are non-blocking: the write end so a
// delivery can never stall, the read end so Drain can stop at would-block.
func Create() (*Channel, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	c := &Channel{}
	c.r.Store(int64(p[0]))
	c.w.Store(int64(p[1]))
	return c, nil
}

// Signal writes one advisory byte. All errors are ignored: EAGAIN means a
// wakeup is already pending, and any other failure only costs a wakeup the
// reader did not strictly need.
func (c *Channel) Signal() {
	fd := c.w.Load()
	if fd < 0 {
		return
	}
	b := [1]byte{1}
	_, _ = unix.Write(int(fd), b[:])
}

// Drain reads until the pipe is empty so stale bytes cannot produce wakeups
// for conditions that were already consumed.
func (c *Channel) Drain() {
	fd := c.r.Load()
	if fd < 0 {
		return
	}
	var buf [64]byte
	for {
		n, err := unix.Read(int(fd), buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// ReadFD exposes the read end for external multiplexing. ok is false after
// Close.
func (c *Channel) ReadFD() (fd uintptr, ok bool) {
	v := c.r.Load()
	if v < 0 {
		return 0, false
	}
	return uintptr(v), true
}

// Wait blocks until the read end is readable. timeoutMillis < 0 waits
// forever; on expiry Wait returns [ErrTimeout]. EINTR restarts the poll.
// A closed or invalidated descriptor reports [ErrClosed] so a waiter raced
// by teardown returns instead of hanging.
func (c *Channel) Wait(timeoutMillis int) error {
	fd := c.r.Load()
	if fd < 0 {
		return ErrClosed
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	misses := 0
	for {
		fds[0].Revents = 0
		n, err := unix.Poll(fds, timeoutMillis)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EBADF {
			return ErrClosed
		}
		if err != nil {
			misses++
			if misses >= maxPollMisses {
				return fmt.Errorf("poll: %w", err)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n == 0 {
			return ErrTimeout
		}
		if fds[0].Revents&(unix.POLLNVAL|unix.POLLERR|unix.POLLHUP) != 0 {
			return ErrClosed
		}
		return nil
	}
}

// Close invalidates both ends. The write end goes first so a thread blocked
// in Wait observes POLLHUP and unblocks. Idempotent.
func (c *Channel) Close() {
	if fd := c.w.Swap(-1); fd >= 0 {
		_ = unix.Close(int(fd))
	}
	if fd := c.r.Swap(-1); fd >= 0 {
		_ = unix.Close(int(fd))
	}
}
