// Package transport runs the inferior GHCi process and exposes its raw
// byte streams. A Transport knows nothing about commands or sentinels; it
// only writes newline-terminated text and delivers output chunks and the
// final termination event.
package transport

import "errors"

// ErrNotRunning is returned by Send when the subprocess has exited.
var ErrNotRunning = errors.New("subprocess is not running")

// Event is one inbound occurrence from the subprocess: either a raw
// output chunk or the termination notice.
type Event struct {
	// Data is the raw output fragment. Nil for the termination event.
	Data []byte
	// Exited is true for the final event of the stream.
	Exited bool
}

// Transport drives one subprocess.
type Transport interface {
	// Send writes text plus a line terminator to the subprocess stdin.
	// Returns ErrNotRunning (possibly wrapped) if the process is gone.
	Send(text string) error

	// Events delivers output chunks in arrival order, then exactly one
	// Exited event, then the channel is closed.
	Events() <-chan Event

	// Alive reports whether the subprocess is still running.
	Alive() bool

	// Close terminates the subprocess and releases its streams.
	Close() error
}
