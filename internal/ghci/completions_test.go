package ghci

import (
	"context"
	"errors"
	"testing"
)

func TestParseCompletions(t *testing.T) {
	resp := "2 11 \"Data.\"\n\"Data.Map\"\n\"Data.Maybe\"\n"
	got, err := parseCompletions(resp)
	if err != nil {
		t.Fatalf("parseCompletions returned error: %v", err)
	}
	if got.Prefix != "Data." {
		t.Errorf("Prefix = %q, want %q", got.Prefix, "Data.")
	}
	if got.Total != 11 {
		t.Errorf("Total = %d, want 11", got.Total)
	}
	want := []string{"Data.Map", "Data.Maybe"}
	if len(got.Candidates) != len(want) {
		t.Fatalf("Candidates = %q, want %q", got.Candidates, want)
	}
	for i := range want {
		if got.Candidates[i] != want[i] {
			t.Errorf("Candidates[%d] = %q, want %q", i, got.Candidates[i], want[i])
		}
	}
}

func TestParseCompletionsEmpty(t *testing.T) {
	got, err := parseCompletions("0 0 \"\"\n")
	if err != nil {
		t.Fatalf("parseCompletions returned error: %v", err)
	}
	if len(got.Candidates) != 0 {
		t.Errorf("Candidates = %q, want none", got.Candidates)
	}
}

func TestParseCompletionsCountMismatch(t *testing.T) {
	resp := "2 2 \"ab\"\n\"abs\"\n\"abort\"\n\"about\"\n"
	_, err := parseCompletions(resp)
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("parseCompletions error = %v, want ErrCountMismatch", err)
	}
}

func TestParseCompletionsUnknownCommand(t *testing.T) {
	resp := "unknown command ':complete'\nuse :? for help.\n"
	_, err := parseCompletions(resp)
	if !errors.Is(err, ErrNoCompletionSupport) {
		t.Errorf("parseCompletions error = %v, want ErrNoCompletionSupport", err)
	}
}

func TestParseCompletionsMalformedHeader(t *testing.T) {
	for _, resp := range []string{
		"",
		"nonsense\n",
		"1\n",
		"x y \"p\"\n",
		"1 2 unquoted\n",
		"-1 2 \"p\"\n",
	} {
		if _, err := parseCompletions(resp); !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("parseCompletions(%q) error = %v, want ErrMalformedHeader", resp, err)
		}
	}
}

func TestCompleteIdentifier(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(text string) {
		if text == `:complete repl "pu"` {
			ft.emit("2 2 \"\"\n\"putStr\"\n\"putStrLn\"\n\x04")
		}
	}
	p := New("test", ft)

	got, err := p.CompleteIdentifier(context.Background(), "pu")
	if err != nil {
		t.Fatalf("CompleteIdentifier returned error: %v", err)
	}
	want := []string{"putStr", "putStrLn"}
	if len(got.Candidates) != len(want) {
		t.Fatalf("Candidates = %q, want %q", got.Candidates, want)
	}
	for i := range want {
		if got.Candidates[i] != want[i] {
			t.Errorf("Candidates[%d] = %q, want %q", i, got.Candidates[i], want[i])
		}
	}
}

func TestCompleteIdentifierFailureLeavesQueueUsable(t *testing.T) {
	ft := newFakeTransport()
	ft.onSend = func(text string) {
		if text == `:complete repl "ab"` {
			// Header declares 2 but three lines follow.
			ft.emit("2 2 \"ab\"\n\"abs\"\n\"abort\"\n\"about\"\n\x04")
			return
		}
		ft.emit("4\x04")
	}
	p := New("test", ft)

	if _, err := p.CompleteIdentifier(context.Background(), "ab"); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("CompleteIdentifier error = %v, want ErrCountMismatch", err)
	}

	got, err := p.SyncRequest(context.Background(), "2+2")
	if err != nil {
		t.Fatalf("SyncRequest after protocol violation returned error: %v", err)
	}
	if got != "4" {
		t.Errorf("SyncRequest = %q, want %q", got, "4")
	}
}
