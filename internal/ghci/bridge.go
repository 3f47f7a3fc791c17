package ghci

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// syncPollInterval bounds each wait for inbound output while a
	// synchronous request is in flight.
	syncPollInterval = 50 * time.Millisecond

	// syncMaxPolls caps the poll loop (~2 minutes at the default
	// interval) so a wedged subprocess cannot block the caller forever.
	syncMaxPolls = 2400
)

var (
	// ErrSyncTimeout is returned when a synchronous request exhausts its
	// poll budget without an answer.
	ErrSyncTimeout = errors.New("timed out waiting for response")

	// ErrProcessEnded is returned when the subprocess dies before
	// answering a synchronous request.
	ErrProcessEnded = errors.New("process ended before responding")
)

// syncCell is the single-slot mailbox a synchronous request's completion
// callback writes into.
type syncCell struct {
	mu   sync.Mutex
	done bool
	text string
}

func (c *syncCell) put(text string) {
	c.mu.Lock()
	c.text = text
	c.done = true
	c.mu.Unlock()
}

func (c *syncCell) get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.done
}

// SyncRequest sends request and blocks until the matching response
// arrives, the subprocess dies, ctx is cancelled, or the poll budget runs
// out. It is the only blocking operation in the engine: the calling
// goroutine drives the queue itself, polling the transport with a short
// timeout per iteration.
//
// SyncRequest must not be called from inside a Live or Complete callback
// of a command running on the same process: the callback already runs on
// the driving loop and the nested poll would deadlock behind itself.
func (p *Process) SyncRequest(ctx context.Context, request string) (string, error) {
	cell := &syncCell{}
	p.Enqueue(&Command{
		State: cell,
		Issue: func(any) {
			// Installation resets the per-command flags, so this sticks
			// for the lifetime of the request.
			p.SetEvaluating(true)
			_ = p.Send(request)
		},
		Complete: func(state any, response string) error {
			p.SetEvaluating(false)
			state.(*syncCell).put(response)
			return nil
		},
	})

	for i := 0; i < syncMaxPolls; i++ {
		if text, done := cell.get(); done {
			return text, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !p.transport.Alive() {
			// Flush the dead queue, then report. The enqueued command
			// will never complete.
			p.TryStartNext()
			if text, done := cell.get(); done {
				return text, nil
			}
			return "", ErrProcessEnded
		}
		p.TryStartNext()
		p.Drive(syncPollInterval)
	}

	if text, done := cell.get(); done {
		return text, nil
	}
	return "", ErrSyncTimeout
}
