package transport

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
)

const readChunkSize = 4096

// Local runs the subprocess directly on the host via os/exec. Stdout and
// stderr are merged into a single chunk stream; GHCi interleaves
// diagnostics and results freely and the protocol layer treats them
// uniformly.
type Local struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan Event
	done   chan struct{} // closed by Close; unblocks readers when the consumer is gone
	alive  atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// NewLocal starts command with args in dir and wires up its streams.
// Extra environment entries are appended to the current environment.
func NewLocal(ctx context.Context, command string, args []string, dir string, env []string) (*Local, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	t := &Local{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	t.alive.Store(true)

	var readers sync.WaitGroup
	readers.Add(2)
	go t.readStream(stdout, &readers)
	go t.readStream(stderr, &readers)

	go func() {
		readers.Wait()
		_ = cmd.Wait()
		t.alive.Store(false)
		select {
		case t.events <- Event{Exited: true}:
		default:
			// Close abandoned a full stream; channel closure below is
			// the termination signal.
		}
		close(t.events)
	}()

	return t, nil
}

func (t *Local) readStream(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case t.events <- Event{Data: chunk}:
			case <-t.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Send writes text plus a newline to the subprocess stdin.
func (t *Local) Send(text string) error {
	if !t.alive.Load() {
		return ErrNotRunning
	}
	if _, err := io.WriteString(t.stdin, text+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return nil
}

// Events returns the inbound event stream.
func (t *Local) Events() <-chan Event {
	return t.events
}

// Alive reports whether the subprocess is still running.
func (t *Local) Alive() bool {
	return t.alive.Load()
}

// Close terminates the subprocess and releases the reader goroutines
// even if the caller stopped consuming Events. The stream still closes
// once the process is reaped; an Exited event precedes the closure when
// the channel has room.
func (t *Local) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		_ = t.stdin.Close()
		if t.alive.Load() && t.cmd.Process != nil {
			t.closeErr = t.cmd.Process.Kill()
		}
	})
	return t.closeErr
}
