package transport

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func collectUntil(t *testing.T, events <-chan Event, want []byte) {
	t.Helper()
	var got bytes.Buffer
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed before %q arrived (got %q)", want, got.Bytes())
			}
			if ev.Exited {
				t.Fatalf("process exited before %q arrived (got %q)", want, got.Bytes())
			}
			got.Write(ev.Data)
			if bytes.Contains(got.Bytes(), want) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q (got %q)", want, got.Bytes())
		}
	}
}

func TestLocalEcho(t *testing.T) {
	tr, err := NewLocal(context.Background(), "cat", nil, "", nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}
	defer func() { _ = tr.Close() }()

	if !tr.Alive() {
		t.Fatal("Alive() = false immediately after start")
	}
	if err := tr.Send("hello"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	collectUntil(t, tr.Events(), []byte("hello\n"))
}

func TestLocalCloseWithBackloggedOutput(t *testing.T) {
	// A flood of output with no consumer fills the event buffer; Close
	// must still release the readers and reap the process.
	tr, err := NewLocal(context.Background(), "yes", nil, "", nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}

	// Let the readers wedge against the full channel.
	time.Sleep(200 * time.Millisecond)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-tr.Events():
			if !ok {
				if tr.Alive() {
					t.Error("Alive() = true after Close")
				}
				return
			}
		case <-deadline:
			t.Fatal("event stream never closed after Close")
		}
	}
}

func TestLocalTermination(t *testing.T) {
	tr, err := NewLocal(context.Background(), "cat", nil, "", nil)
	if err != nil {
		t.Fatalf("NewLocal returned error: %v", err)
	}
	_ = tr.Close()

	exits := 0
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-tr.Events():
			if !ok {
				if exits != 1 {
					t.Errorf("saw %d Exited events, want 1", exits)
				}
				if tr.Alive() {
					t.Error("Alive() = true after termination")
				}
				if err := tr.Send("late"); err == nil {
					t.Error("Send after exit returned nil error, want ErrNotRunning")
				}
				return
			}
			if ev.Exited {
				exits++
			}
		case <-deadline:
			t.Fatal("timed out waiting for termination event")
		}
	}
}
