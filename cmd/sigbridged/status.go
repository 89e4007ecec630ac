// status.go implements the local status endpoint: each connection gets
// one JSON document describing the daemon and the bridge, then is closed.
// The transport is platform-specific (unix socket or named pipe); see
// status_unix.go and status_windows.go.

package main

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"time"

	sigbridge "tools.zach/dev/sigbridge"
	"tools.zach/dev/sigbridge/internal/paths"
)

// statusInfo is the JSON document served per connection.
type statusInfo struct {
	PID           int    `json:"pid"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	LastSignal    string `json:"last_signal"`
	Triggered     bool   `json:"triggered"`
}

// startStatus opens the platform listener and serves status documents
// until the returned closer is closed.
func startStatus(dd paths.DataDir, b *sigbridge.Bridge, version string, start time.Time) (io.Closer, error) {
	ln, err := listenStatus(dd)
	if err != nil {
		return nil, err
	}
	go serveStatus(ln, b, version, start)
	return ln, nil
}

// serveStatus answers each connection with one status document. Accept
// errors end the loop; the listener closing on shutdown is the normal
// exit path.
func serveStatus(ln net.Listener, b *sigbridge.Bridge, version string, start time.Time) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		_ = json.NewEncoder(conn).Encode(statusInfo{
			PID:           os.Getpid(),
			Version:       version,
			UptimeSeconds: int64(time.Since(start).Seconds()),
			LastSignal:    b.Caught().String(),
			Triggered:     b.IsTriggered(),
		})
		conn.Close()
	}
}
