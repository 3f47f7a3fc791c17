// Package trace mirrors raw wire traffic between the driver and the
// inferior process to an append-only, line-oriented log. The mirror is
// observational only: the protocol layer never reads it back.
package trace

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Direction tags for log lines.
const (
	tagInbound  = "<- "
	tagOutbound = "-> "
)

// Log buffers partial lines per direction and writes one tagged line per
// completed line of traffic.
type Log struct {
	mu  sync.Mutex
	w   io.WriteCloser
	in  bytes.Buffer
	out bytes.Buffer
}

// New wraps an existing writer.
func New(w io.WriteCloser) *Log {
	return &Log{w: w}
}

// Open creates (or appends to) a trace log file at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace log: %w", err)
	}
	return New(f), nil
}

// Inbound mirrors a chunk received from the subprocess.
func (l *Log) Inbound(p []byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(&l.in, tagInbound, p)
}

// Outbound mirrors text sent to the subprocess.
func (l *Log) Outbound(p []byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(&l.out, tagOutbound, p)
}

func (l *Log) write(buf *bytes.Buffer, tag string, p []byte) {
	buf.Write(p)
	for {
		data := buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return
		}
		line := data[:idx]
		fmt.Fprintf(l.w, "%s%s\n", tag, printable(line))
		buf.Next(idx + 1)
	}
}

// Close flushes any partial lines and closes the underlying writer.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.in.Len() > 0 {
		fmt.Fprintf(l.w, "%s%s\n", tagInbound, printable(l.in.Bytes()))
		l.in.Reset()
	}
	if l.out.Len() > 0 {
		fmt.Fprintf(l.w, "%s%s\n", tagOutbound, printable(l.out.Bytes()))
		l.out.Reset()
	}
	return l.w.Close()
}

// printable renders control bytes (notably the sentinel) visibly.
func printable(line []byte) string {
	var b bytes.Buffer
	b.Grow(len(line))
	for _, c := range line {
		if c < 0x20 && c != '\t' {
			fmt.Fprintf(&b, "^%c", c+'@')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
