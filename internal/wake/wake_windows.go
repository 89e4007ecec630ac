// wake_windows.go backs the wake channel with a pair of connected loopback
// UDP sockets. Windows anonymous pipes cannot be multiplexed with WSAPoll,
// so a datagram socket pair provides the pollable read end; each socket is
// bound to 127.0.0.1 and connected to its peer so stray datagrams from other
// processes are rejected by the stack.
//
// ioctlsocket and WSAPoll are not surfaced by golang.org/x/sys/windows and
// are reached through lazily-loaded ws2_32 procs.

//go:build windows

package wake

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ///////////////////////////////////////////////
// ws2_32 procs
// ///////////////////////////////////////////////

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procWSAPoll     = modws2_32.NewProc("WSAPoll")
)

const (
	fionbio = 0x8004667e

	pollrdnorm = 0x0100
	pollerr    = 0x0001
	pollhup    = 0x0002
	pollnval   = 0x0004
)

// invalidSock mirrors INVALID_SOCKET.
const invalidSock = uintptr(windows.InvalidHandle)

// wsaPollFd mirrors WSAPOLLFD. The fd field is a SOCKET (pointer-sized).
type wsaPollFd struct {
	fd      uintptr
	events  int16
	revents int16
}

// setNonblocking puts s into non-blocking mode via FIONBIO.
func setNonblocking(s windows.Handle) error {
	arg := uint32(1)
	ret, _, _ := procIoctlsocket.Call(uintptr(s), fionbio, uintptr(unsafe.Pointer(&arg)))
	if ret != 0 {
		return fmt.Errorf("ioctlsocket(FIONBIO): %w", windows.WSAGetLastError())
	}
	return nil
}

// ///////////////////////////////////////////////
// Channel
// ///////////////////////////////////////////////

// Channel is a connected loopback UDP socket pair. The sockets live in
// atomics so Signal stays lock-free on the console-control callback thread
// while teardown can run concurrently; both hold INVALID_SOCKET after
// Close.
type Channel struct {
	r atomic.Uintptr
	w atomic.Uintptr
}

// newLoopbackSocket creates a UDP socket bound to an ephemeral 127.0.0.1
// port and returns its handle with the bound address.
func newLoopbackSocket() (windows.Handle, *windows.SockaddrInet4, error) {
	s, err := windows.WSASocket(windows.AF_INET, windows.SOCK_DGRAM, windows.IPPROTO_UDP,
		nil, 0, windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return windows.InvalidHandle, nil, fmt.Errorf("socket: %w", err)
	}
	sa := &windows.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}
	if err := windows.Bind(s, sa); err != nil {
		windows.Closesocket(s)
		return windows.InvalidHandle, nil, fmt.Errorf("bind: %w", err)
	}
	bound, err := windows.Getsockname(s)
	if err != nil {
		windows.Closesocket(s)
		return windows.InvalidHandle, nil, fmt.Errorf("getsockname: %w", err)
	}
	sa4, ok := bound.(*windows.SockaddrInet4)
	if !ok {
		windows.Closesocket(s)
		return windows.InvalidHandle, nil, fmt.Errorf("getsockname: unexpected address family")
	}
	return s, sa4, nil
}

// Create allocates and cross-connects the socket pair. Both sockets are set
// non-blocking: the write side so a delivery can never stall, the read side
// so Drain can stop at WSAEWOULDBLOCK.
func Create() (*Channel, error) {
	var data windows.WSAData
	if err := windows.WSAStartup(uint32(0x202), &data); err != nil {
		return nil, fmt.Errorf("WSAStartup: %w", err)
	}

	r, rAddr, err := newLoopbackSocket()
	if err != nil {
		windows.WSACleanup()
		return nil, err
	}
	w, wAddr, err := newLoopbackSocket()
	if err != nil {
		windows.Closesocket(r)
		windows.WSACleanup()
		return nil, err
	}

	if err := windows.Connect(w, rAddr); err == nil {
		err = windows.Connect(r, wAddr)
	}
	if err == nil {
		err = setNonblocking(w)
	}
	if err == nil {
		err = setNonblocking(r)
	}
	if err != nil {
		windows.Closesocket(r)
		windows.Closesocket(w)
		windows.WSACleanup()
		return nil, fmt.Errorf("connect socket pair: %w", err)
	}

	c := &Channel{}
	c.r.Store(uintptr(r))
	c.w.Store(uintptr(w))
	return c, nil
}

// Signal sends one advisory datagram. All errors are ignored; the console
// control callback that calls this runs on an OS-created thread and must
// never block or fail loudly.
func (c *Channel) Signal() {
	s := c.w.Load()
	if s == invalidSock || s == 0 {
		return
	}
	b := [1]byte{1}
	buf := windows.WSABuf{Len: 1, Buf: &b[0]}
	var sent uint32
	_ = windows.WSASend(windows.Handle(s), &buf, 1, &sent, 0, nil, nil)
}

// Drain receives until the socket is empty so stale datagrams cannot
// produce wakeups for conditions that were already consumed.
func (c *Channel) Drain() {
	s := c.r.Load()
	if s == invalidSock || s == 0 {
		return
	}
	var b [64]byte
	for {
		buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
		var recvd, flags uint32
		if err := windows.WSARecv(windows.Handle(s), &buf, 1, &recvd, &flags, nil, nil); err != nil {
			return
		}
		if recvd == 0 {
			return
		}
	}
}

// ReadFD exposes the read socket for external multiplexing (WSAPoll,
// select, WSAEventSelect). ok is false after Close.
func (c *Channel) ReadFD() (fd uintptr, ok bool) {
	s := c.r.Load()
	if s == invalidSock || s == 0 {
		return 0, false
	}
	return s, true
}

// Wait blocks in WSAPoll until the read socket is readable. timeoutMillis
// < 0 waits forever; on expiry Wait returns [ErrTimeout]. A socket
// invalidated by Close reports [ErrClosed] so a waiter raced by teardown
// returns instead of hanging.
func (c *Channel) Wait(timeoutMillis int) error {
	s := c.r.Load()
	if s == invalidSock || s == 0 {
		return ErrClosed
	}
	misses := 0
	for {
		pfd := wsaPollFd{fd: s, events: pollrdnorm}
		ret, _, _ := procWSAPoll.Call(uintptr(unsafe.Pointer(&pfd)), 1, uintptr(timeoutMillis))
		if int32(ret) < 0 {
			werr := windows.WSAGetLastError()
			if werr == windows.WSAENOTSOCK || werr == windows.WSAEINVAL {
				return ErrClosed
			}
			misses++
			if misses >= maxPollMisses {
				return fmt.Errorf("WSAPoll: %w", werr)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if ret == 0 {
			return ErrTimeout
		}
		if pfd.revents&(pollnval|pollerr|pollhup) != 0 {
			return ErrClosed
		}
		return nil
	}
}

// Close invalidates both sockets and releases the winsock reference taken
// by Create. The write side goes first so a peer blocked in WSAPoll
// observes the reset and unblocks. Idempotent.
func (c *Channel) Close() {
	closed := false
	if s := c.w.Swap(invalidSock); s != invalidSock && s != 0 {
		windows.Closesocket(windows.Handle(s))
		closed = true
	}
	if s := c.r.Swap(invalidSock); s != invalidSock && s != 0 {
		windows.Closesocket(windows.Handle(s))
	}
	if closed {
		windows.WSACleanup()
	}
}
