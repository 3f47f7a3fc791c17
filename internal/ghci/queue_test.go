package ghci

import "testing"

func TestQueuePushPopOrder(t *testing.T) {
	var q commandQueue
	a, b, c := &Command{}, &Command{}, &Command{}
	q.push(a)
	q.push(b)
	q.push(c)

	if q.depth() != 3 {
		t.Fatalf("depth() = %d, want 3", q.depth())
	}
	for i, want := range []*Command{a, b, c} {
		if got := q.pop(); got != want {
			t.Errorf("pop() #%d returned wrong command", i)
		}
	}
	if got := q.pop(); got != nil {
		t.Error("pop() on empty queue returned non-nil")
	}
}

func TestQueueFlush(t *testing.T) {
	var q commandQueue
	q.push(&Command{})
	q.push(&Command{})
	q.current = &Command{}

	if n := q.flush(); n != 3 {
		t.Errorf("flush() = %d, want 3", n)
	}
	if q.current != nil {
		t.Error("current not cleared by flush")
	}
	if q.depth() != 0 {
		t.Errorf("depth() after flush = %d, want 0", q.depth())
	}
}
