package ghci

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/s9gf4ult/haskell-mode/internal/logger"
	"github.com/s9gf4ult/haskell-mode/internal/trace"
	"github.com/s9gf4ult/haskell-mode/internal/transport"
)

// Process drives one inferior GHCi subprocess: it owns the command queue,
// the response buffer, and the protocol state machine that connects them.
//
// All protocol transitions are serialized: inbound events may be
// delivered from any goroutine (Run pump, Drive polls) but are handled
// one at a time. Commands never run in parallel.
type Process struct {
	name      string
	transport transport.Transport
	traceLog  *trace.Log
	onEnded   func(name string)

	// evMu serializes inbound event handling; mu guards queue, buffer
	// and flags. Callbacks run with neither held, so they may re-enter
	// Enqueue.
	evMu sync.Mutex
	mu   sync.Mutex

	queue  commandQueue
	buffer responseBuffer

	restarting       bool
	evaluating       bool
	sentStdin        bool
	suggestedImports bool
	endedSent        bool
}

// New creates a Process on top of a started transport.
func New(name string, t transport.Transport) *Process {
	return &Process{name: name, transport: t}
}

// Name returns the identifier used to locate the owning session.
func (p *Process) Name() string { return p.name }

// SetTrace installs an optional wire-traffic mirror.
func (p *Process) SetTrace(l *trace.Log) { p.traceLog = l }

// OnEnded registers the notification sink fired when the subprocess
// terminates (at most once per termination, suppressed during restart).
func (p *Process) OnEnded(fn func(name string)) { p.onEnded = fn }

// Enqueue appends cmd to the queue tail and attempts to start draining.
// It never rejects; the queue is unbounded. Safe to call from inside a
// command callback.
func (p *Process) Enqueue(cmd *Command) {
	p.mu.Lock()
	p.queue.push(cmd)
	p.mu.Unlock()
	p.TryStartNext()
}

// TryStartNext installs the queue head as the current command and issues
// it, if no command is currently active. If the subprocess is dead the
// queue is flushed wholesale and the ended notification fires.
func (p *Process) TryStartNext() {
	p.mu.Lock()
	if p.queue.current != nil {
		p.mu.Unlock()
		return
	}
	if !p.transport.Alive() {
		dropped := p.queue.flush()
		p.buffer.reset()
		p.mu.Unlock()
		if dropped > 0 {
			logger.Info("%s: dropped %d queued command(s), process is gone", p.name, dropped)
		}
		p.fireEnded()
		return
	}
	cmd := p.queue.pop()
	if cmd == nil {
		p.mu.Unlock()
		return
	}
	p.queue.current = cmd
	p.evaluating = false
	p.sentStdin = false
	p.suggestedImports = false
	p.mu.Unlock()

	if cmd.Issue != nil {
		cmd.Issue(cmd.State)
	}
}

// HandleOutput feeds one raw output chunk through the protocol driver:
// append to the response buffer, run the live callback, then scan for the
// sentinel and finalize the current command when found.
func (p *Process) HandleOutput(chunk []byte) {
	p.traceLog.Inbound(chunk)

	p.evMu.Lock()
	defer p.evMu.Unlock()

	p.mu.Lock()
	cur := p.queue.current
	if cur == nil {
		// Output with no command in flight has nothing to attribute it
		// to. It was mirrored above; drop it.
		p.mu.Unlock()
		return
	}
	p.buffer.append(chunk)
	p.mu.Unlock()

	p.runLive(cur)

	p.mu.Lock()
	idx := bytes.IndexByte(p.buffer.content[p.buffer.cursor:], Sentinel)
	if idx < 0 {
		p.buffer.cursor = p.buffer.len()
		p.mu.Unlock()
		return
	}
	final := string(p.buffer.content[:p.buffer.cursor+idx])
	p.buffer.reset()
	p.mu.Unlock()

	p.finalize(cur, final)
}

// runLive invokes the live callback while it returns true, stopping as
// soon as the response has not grown since the previous invocation. A
// callback that always returns true therefore cannot spin the driver.
func (p *Process) runLive(cur *Command) {
	if cur.Live == nil {
		return
	}
	prev := -1
	for {
		p.mu.Lock()
		n := p.buffer.len()
		content := p.buffer.String()
		p.mu.Unlock()
		if n == prev {
			return
		}
		prev = n
		if !cur.Live(cur.State, content) {
			return
		}
	}
}

func (p *Process) finalize(cur *Command, final string) {
	if cur.Complete != nil {
		if err := cur.Complete(cur.State, final); err != nil {
			logger.Error("%s: completion callback failed: %v", p.name, err)
		}
	}
	p.mu.Lock()
	p.queue.current = nil
	p.evaluating = false
	p.mu.Unlock()
	p.TryStartNext()
}

// HandleTermination forces the driver back to idle: the response buffer
// is reset, the in-flight command is dropped without its Complete
// callback, pending commands are discarded, and the ended notification
// fires unless a restart is in progress.
func (p *Process) HandleTermination() {
	p.evMu.Lock()
	defer p.evMu.Unlock()

	p.mu.Lock()
	dropped := p.queue.flush()
	p.buffer.reset()
	p.mu.Unlock()
	if dropped > 0 {
		logger.Info("%s: process exited with %d command(s) in flight", p.name, dropped)
	}
	p.fireEnded()
}

// fireEnded delivers the ended notification at most once per process
// lifetime. A pending restart consumes the notification instead.
func (p *Process) fireEnded() {
	p.mu.Lock()
	if p.endedSent {
		p.mu.Unlock()
		return
	}
	p.endedSent = true
	suppressed := p.restarting
	if suppressed {
		p.restarting = false
	}
	fn := p.onEnded
	p.mu.Unlock()

	if !suppressed && fn != nil {
		fn(p.name)
	}
}

// Send writes a newline-terminated line to the subprocess. A dead
// transport is not surfaced to the caller: the ended notification fires
// instead (unless restarting) and Send reports success.
func (p *Process) Send(text string) error {
	if err := p.transport.Send(text); err != nil {
		if errors.Is(err, transport.ErrNotRunning) {
			p.fireEnded()
			return nil
		}
		return err
	}
	p.traceLog.Outbound([]byte(text + "\n"))
	return nil
}

// Drive waits up to timeout for one inbound event and dispatches it.
// Returns false when nothing arrived in time or the event stream is
// closed.
func (p *Process) Drive(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev, ok := <-p.transport.Events():
		if !ok {
			// Stream closed without a final Exited event.
			p.HandleTermination()
			return false
		}
		p.dispatch(ev)
		return true
	case <-timer.C:
		return false
	}
}

// Run pumps transport events into the driver until the event stream
// closes or ctx is cancelled.
func (p *Process) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.transport.Events():
			if !ok {
				p.HandleTermination()
				return
			}
			p.dispatch(ev)
		}
	}
}

func (p *Process) dispatch(ev transport.Event) {
	if ev.Exited {
		p.HandleTermination()
		return
	}
	p.HandleOutput(ev.Data)
}

// Alive reports whether the underlying subprocess is running.
func (p *Process) Alive() bool { return p.transport.Alive() }

// QueueDepth returns the number of pending (not yet issued) commands.
func (p *Process) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.depth()
}

// Busy reports whether a command is active or pending.
func (p *Process) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.current != nil || p.queue.depth() > 0
}

// SetRestarting marks (or clears) an intentional restart, which makes
// the next termination notification silent.
func (p *Process) SetRestarting(v bool) {
	p.mu.Lock()
	p.restarting = v
	p.mu.Unlock()
}

// Restarting reports whether an intentional restart is in progress.
func (p *Process) Restarting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restarting
}

// SetEvaluating marks the process as running a user evaluation. Cleared
// automatically when a command is installed or finalized.
func (p *Process) SetEvaluating(v bool) {
	p.mu.Lock()
	p.evaluating = v
	p.mu.Unlock()
}

// Evaluating reports whether a user evaluation is in flight.
func (p *Process) Evaluating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evaluating
}

// SetSentStdin records that stdin data was forwarded to the running
// program. Cleared when a command is installed.
func (p *Process) SetSentStdin(v bool) {
	p.mu.Lock()
	p.sentStdin = v
	p.mu.Unlock()
}

// SentStdin reports whether stdin data was forwarded during the current
// command.
func (p *Process) SentStdin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentStdin
}

// SetSuggestedImports records that import suggestions were offered for
// the current command. Cleared when a command is installed.
func (p *Process) SetSuggestedImports(v bool) {
	p.mu.Lock()
	p.suggestedImports = v
	p.mu.Unlock()
}

// SuggestedImports reports whether import suggestions were offered during
// the current command.
func (p *Process) SuggestedImports() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suggestedImports
}
