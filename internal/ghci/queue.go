package ghci

// commandQueue holds pending commands in enqueue order plus the single
// current (active) command. It is not safe for concurrent use; the
// owning Process serializes access.
type commandQueue struct {
	pending []*Command
	current *Command
}

// push appends cmd to the tail. The queue is unbounded and never rejects.
func (q *commandQueue) push(cmd *Command) {
	q.pending = append(q.pending, cmd)
}

// pop removes and returns the head, or nil if no commands are pending.
func (q *commandQueue) pop() *Command {
	if len(q.pending) == 0 {
		return nil
	}
	cmd := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return cmd
}

// flush drops the current command and all pending commands, returning how
// many were discarded.
func (q *commandQueue) flush() int {
	n := len(q.pending)
	if q.current != nil {
		n++
		q.current = nil
	}
	q.pending = nil
	return n
}

func (q *commandQueue) depth() int {
	return len(q.pending)
}
