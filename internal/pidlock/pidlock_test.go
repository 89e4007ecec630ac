// pidlock_test.go covers mutual exclusion between two acquisitions,
// holder PID reporting, stale-file reclamation, and release semantics.
// flock and LockFileEx both bind the lock to the open file description,
// so a second Acquire conflicts even from the same process.

package pidlock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	if got := readPID(path); got != os.Getpid() {
		t.Fatalf("pid file holds %d, want %d", got, os.Getpid())
	}
}

func TestSecondAcquireFailsWithHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer l.Release()

	_, err = Acquire(path)
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("second Acquire: got %v, want *HeldError", err)
	}
	if held.PID != os.Getpid() {
		t.Fatalf("holder pid = %d, want %d", held.PID, os.Getpid())
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	l.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("pid file not removed on Release")
	}

	l2, err := Acquire(path)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	l2.Release()
}

func TestStaleFileIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")
	// A pid file with no live locker, as left by a crashed instance.
	if err := os.WriteFile(path, []byte("999999"), 0o600); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire on stale file failed: %v", err)
	}
	defer l.Release()

	if got := readPID(path); got != os.Getpid() {
		t.Fatalf("stale pid not overwritten: %d", got)
	}
}

func TestReleaseNilSafe(t *testing.T) {
	var l *Lock
	l.Release()

	l = &Lock{}
	l.Release()
}
