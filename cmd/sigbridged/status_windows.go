// status_windows.go serves the status endpoint over a named pipe using
// the go-winio library, the Windows counterpart of the unix domain
// socket.

//go:build windows

package main

import (
	"net"

	"github.com/Microsoft/go-winio"
	"tools.zach/dev/sigbridge/internal/paths"
)

// listenStatus opens the named pipe listener for the status endpoint.
func listenStatus(dd paths.DataDir) (net.Listener, error) {
	return winio.ListenPipe(paths.PipeName, nil)
}
