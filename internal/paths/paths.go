// Package paths centralizes the file and directory names used by the
// sigbridged daemon. Everything lives under one data directory; this
// package is the single source of truth for what is named what.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory entries.
const (
	PIDFile    = "sigbridged.pid"
	ConfigFile = "config.toml"
	LogFile    = "sigbridged.log"
	SocketFile = "status.sock" // unix only; Windows uses a named pipe
	HooksDir   = "hooks.d"
)

// PipeName is the Windows named pipe for the status endpoint.
const PipeName = `\\.\pipe\sigbridged-status`

// DataDirRel is the default data directory, relative to $HOME.
const DataDirRel = ".sigbridged"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Socket returns the full path to the status socket.
func (d DataDir) Socket() string { return filepath.Join(d.Root, SocketFile) }

// Hooks returns the full path to the shutdown hooks directory.
func (d DataDir) Hooks() string { return filepath.Join(d.Root, HooksDir) }
