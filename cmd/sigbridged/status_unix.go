// status_unix.go serves the status endpoint over a unix domain socket in
// the data directory. A stale socket file from a previous instance is
// removed before listening; the PID lock already guarantees no live
// instance owns it.

//go:build unix

package main

import (
	"net"
	"os"

	"tools.zach/dev/sigbridge/internal/paths"
)

// listenStatus opens the unix socket listener for the status endpoint.
func listenStatus(dd paths.DataDir) (net.Listener, error) {
	os.Remove(dd.Socket())
	return net.Listen("unix", dd.Socket())
}
