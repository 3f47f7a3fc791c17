package history

import (
	"testing"
	"time"
)

func TestRecordAndList(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Now().Add(-time.Minute)
	entries := []*Entry{
		{Session: "main", Request: "1+1", Response: "2", OK: true, StartedAt: base, DurationMs: 12},
		{Session: "main", Request: ":t map", Response: "map :: (a -> b) -> [a] -> [b]", OK: true, StartedAt: base.Add(time.Second), DurationMs: 5},
		{Session: "scratch", Request: "undefined", Response: "", OK: false, Error: "timed out", StartedAt: base.Add(2 * time.Second), DurationMs: 60000},
	}
	for _, e := range entries {
		if err := store.Record(e); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
		if e.ID == "" {
			t.Error("Record left ID unset")
		}
	}

	got, err := store.List("main", 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(main) returned %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Request != ":t map" {
		t.Errorf("List(main)[0].Request = %q, want :t map", got[0].Request)
	}

	all, err := store.List("", 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(all) returned %d entries, want 3", len(all))
	}
	if !all[2].OK && all[2].Error == "" {
		t.Error("failed entry lost its error text")
	}
}

func TestListLimit(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Now()
	for i := 0; i < 5; i++ {
		e := &Entry{Session: "main", Request: "r", Response: "x", OK: true,
			StartedAt: base.Add(time.Duration(i) * time.Second), DurationMs: 1}
		if err := store.Record(e); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	got, err := store.List("main", 3)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("List with limit 3 returned %d entries", len(got))
	}
}
