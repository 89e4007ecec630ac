// status_unix_test.go dials the status socket and checks the served
// document.

//go:build unix

package main

import (
	"encoding/json"
	"net"
	"os"
	"testing"
	"time"

	sigbridge "tools.zach/dev/sigbridge"
	"tools.zach/dev/sigbridge/internal/paths"
)

func TestStatusEndpointServesDocument(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}

	b := sigbridge.New() // unarmed: last signal reads as "none"
	closer, err := startStatus(dd, b, "test-version", time.Now())
	if err != nil {
		t.Fatalf("startStatus failed: %v", err)
	}
	defer closer.Close()

	conn, err := net.Dial("unix", dd.Socket())
	if err != nil {
		t.Fatalf("dial status socket: %v", err)
	}
	defer conn.Close()

	var got statusInfo
	if err := json.NewDecoder(conn).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", got.PID, os.Getpid())
	}
	if got.Version != "test-version" {
		t.Fatalf("version = %q", got.Version)
	}
	if got.LastSignal != "none" || got.Triggered {
		t.Fatalf("unexpected signal state: %+v", got)
	}
}

func TestStatusListenerReplacesStaleSocket(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	// A dead instance's socket file must not block a new listener.
	if err := os.WriteFile(dd.Socket(), nil, 0o600); err != nil {
		t.Fatalf("seed stale socket file: %v", err)
	}

	ln, err := listenStatus(dd)
	if err != nil {
		t.Fatalf("listenStatus over stale socket failed: %v", err)
	}
	ln.Close()
}
