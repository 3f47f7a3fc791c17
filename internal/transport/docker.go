package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// execPollInterval is how often the exec is inspected for termination.
const execPollInterval = 100 * time.Millisecond

// Docker runs the subprocess inside an existing container via docker exec
// with an attached (hijacked) connection. Output is demultiplexed from the
// docker stream format into the same merged chunk stream Local produces.
type Docker struct {
	cli    *client.Client
	execID string
	conn   types.HijackedResponse
	events chan Event
	done   <-chan struct{} // closed by Close; unblocks readers when the consumer is gone
	alive  atomic.Bool
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewDockerClient builds a docker API client from the environment.
func NewDockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return cli, nil
}

// NewDocker starts command inside containerID and attaches to its streams.
func NewDocker(ctx context.Context, cli *client.Client, containerID string, command []string, workdir string, env []string) (*Docker, error) {
	execResp, err := cli.ContainerExecCreate(ctx, containerID, dockercontainer.ExecOptions{
		Cmd:          command,
		Env:          env,
		WorkingDir:   workdir,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := cli.ContainerExecAttach(ctx, execResp.ID, dockercontainer.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	t := &Docker{
		cli:    cli,
		execID: execResp.ID,
		conn:   attachResp,
		events: make(chan Event, 64),
		done:   pollCtx.Done(),
		cancel: cancel,
	}
	t.alive.Store(true)

	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()

	go func() {
		defer func() { _ = stdoutWriter.Close() }()
		defer func() { _ = stderrWriter.Close() }()
		_, _ = stdcopy.StdCopy(stdoutWriter, stderrWriter, attachResp.Reader)
	}()

	// On Close the demux goroutine may be blocked writing into a pipe
	// whose reader gave up; failing the pipes lets it return.
	go func() {
		<-pollCtx.Done()
		_ = stdoutReader.CloseWithError(io.ErrClosedPipe)
		_ = stderrReader.CloseWithError(io.ErrClosedPipe)
	}()

	var readers sync.WaitGroup
	readers.Add(2)
	go t.readStream(stdoutReader, &readers)
	go t.readStream(stderrReader, &readers)

	go func() {
		readers.Wait()
		t.waitExit(pollCtx)
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

func (t *Docker) readStream(r io.Reader, wg *sync.WaitGroup) {
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

// waitExit polls the exec until it stops running. The attach stream has
// already closed at this point, so this normally returns on the first
// inspection.
func (t *Docker) waitExit(ctx context.Context) {
	for {
		inspect, err := t.cli.ContainerExecInspect(ctx, t.execID)
		if err != nil || !inspect.Running {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(execPollInterval):
		}
	}
}

// Send writes text plus a newline over the hijacked connection.
func (t *Docker) Send(text string) error {
	if !t.alive.Load() {
		return ErrNotRunning
	}
	if _, err := t.conn.Conn.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return nil
}

// Events returns the inbound event stream.
func (t *Docker) Events() <-chan Event {
	return t.events
}

// Alive reports whether the exec is still running.
func (t *Docker) Alive() bool {
	return t.alive.Load()
}

// Close shuts down the attached connection. Docker has no direct way to
// kill an exec; closing stdin makes GHCi exit on EOF.
func (t *Docker) Close() error {
	t.closeOnce.Do(func() {
		_ = t.conn.CloseWrite()
		t.conn.Close()
		t.cancel()
	})
	return nil
}
