package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/s9gf4ult/haskell-mode/internal/config"
	"github.com/s9gf4ult/haskell-mode/internal/history"
	"github.com/s9gf4ult/haskell-mode/internal/transport"
)

// fakeTransport is a scripted subprocess: every Send is recorded and
// optionally answered through the reply function.
type fakeTransport struct {
	mu     sync.Mutex
	sent   []string
	alive  atomic.Bool
	closed atomic.Bool
	events chan transport.Event
	reply  func(text string) []byte
}

func newFakeTransport(reply func(text string) []byte) *fakeTransport {
	t := &fakeTransport{
		events: make(chan transport.Event, 64),
		reply:  reply,
	}
	t.alive.Store(true)
	return t
}

func (t *fakeTransport) Send(text string) error {
	if !t.alive.Load() {
		return transport.ErrNotRunning
	}
	t.mu.Lock()
	t.sent = append(t.sent, text)
	t.mu.Unlock()
	if t.reply != nil {
		t.events <- transport.Event{Data: t.reply(text)}
	}
	return nil
}

func (t *fakeTransport) Events() <-chan transport.Event { return t.events }
func (t *fakeTransport) Alive() bool                    { return t.alive.Load() }

func (t *fakeTransport) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.alive.Store(false)
		close(t.events)
	}
	return nil
}

func (t *fakeTransport) sentLines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

// ghciReply mimics a GHCi that has the sentinel prompt installed: every
// line is answered, setup lines with an empty response.
func ghciReply(text string) []byte {
	if strings.HasPrefix(text, ":set") {
		return []byte{0x04}
	}
	return []byte("=> " + text + "\x04")
}

func testConfig() *config.Config {
	return &config.Config{
		Profiles: map[string]config.Profile{
			"ghci": {
				Command: "ghci",
				Backend: config.BackendLocal,
				Setup:   config.DefaultSetup(),
			},
		},
	}
}

// newTestManager wires a manager to fake transports and returns the
// manager plus the list of transports it created.
func newTestManager(t *testing.T, hist *history.Store) (*Manager, *[]*fakeTransport) {
	t.Helper()
	m := NewManager(testConfig(), hist)
	var created []*fakeTransport
	var mu sync.Mutex
	m.SetTransportFactory(func(ctx context.Context, profile config.Profile) (transport.Transport, error) {
		ft := newFakeTransport(ghciReply)
		mu.Lock()
		created = append(created, ft)
		mu.Unlock()
		return ft, nil
	})
	t.Cleanup(m.Close)
	return m, &created
}

func TestStartUnknownProfile(t *testing.T) {
	m, _ := newTestManager(t, nil)
	_, err := m.Start(context.Background(), "dev", "missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Start() error = %v, want ErrProfileNotFound", err)
	}
}

func TestStartDuplicate(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_, err := m.Start(context.Background(), "dev", "ghci")
	if !errors.Is(err, ErrSessionExists) {
		t.Errorf("second Start() error = %v, want ErrSessionExists", err)
	}
}

func TestStartQueuesSetupCommands(t *testing.T) {
	m, created := newTestManager(t, nil)
	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ft := (*created)[0]
	want := config.DefaultSetup()
	deadline := time.After(2 * time.Second)
	for len(ft.sentLines()) < len(want) {
		select {
		case <-deadline:
			t.Fatalf("setup commands not sent, got %v", ft.sentLines())
		case <-time.After(5 * time.Millisecond):
		}
	}
	got := ft.sentLines()
	for i, line := range want {
		if got[i] != line {
			t.Errorf("setup[%d] = %q, want %q", i, got[i], line)
		}
	}
}

func TestEvalRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := m.Eval(context.Background(), "dev", "1+1")
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != "=> 1+1" {
		t.Errorf("Eval() = %q, want %q", got, "=> 1+1")
	}
}

func TestEvalUnknownSession(t *testing.T) {
	m, _ := newTestManager(t, nil)
	_, err := m.Eval(context.Background(), "nope", "1+1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Eval() error = %v, want ErrSessionNotFound", err)
	}
}

func TestEvalRecordsHistory(t *testing.T) {
	hist, err := history.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("history.NewStore() error = %v", err)
	}
	defer func() { _ = hist.Close() }()

	m, _ := newTestManager(t, hist)
	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Eval(context.Background(), "dev", "length [1,2,3]"); err != nil {
		t.Fatalf("Eval() error = %v", err)
	}

	entries, err := hist.List("dev", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Request != "length [1,2,3]" {
		t.Errorf("Request = %q, want %q", entries[0].Request, "length [1,2,3]")
	}
	if !entries[0].OK {
		t.Error("entry not marked OK")
	}
}

func TestStopRemovesSession(t *testing.T) {
	m, created := newTestManager(t, nil)
	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := m.Stop("dev"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := m.Get("dev"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after Stop error = %v, want ErrSessionNotFound", err)
	}
	if !(*created)[0].closed.Load() {
		t.Error("transport not closed on Stop")
	}
	if err := m.Stop("dev"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Stop() twice error = %v, want ErrSessionNotFound", err)
	}
}

func TestRestartSpawnsFreshTransport(t *testing.T) {
	m, created := newTestManager(t, nil)
	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := m.Restart(context.Background(), "dev"); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if len(*created) != 2 {
		t.Fatalf("transports created = %d, want 2", len(*created))
	}
	if !(*created)[0].closed.Load() {
		t.Error("old transport not closed on Restart")
	}

	// The fresh process answers as usual.
	got, err := m.Eval(context.Background(), "dev", "2+2")
	if err != nil {
		t.Fatalf("Eval() after restart error = %v", err)
	}
	if got != "=> 2+2" {
		t.Errorf("Eval() = %q, want %q", got, "=> 2+2")
	}
}

func TestList(t *testing.T) {
	m, _ := newTestManager(t, nil)
	for _, name := range []string{"b", "a"} {
		if _, err := m.Start(context.Background(), name, "ghci"); err != nil {
			t.Fatalf("Start(%q) error = %v", name, err)
		}
	}

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].Name != "a" || infos[1].Name != "b" {
		t.Errorf("List() order = [%s %s], want [a b]", infos[0].Name, infos[1].Name)
	}
	if !infos[0].Alive {
		t.Error("session reported not alive")
	}
}

func TestCompleteIdentifier(t *testing.T) {
	m := NewManager(testConfig(), nil)
	m.SetTransportFactory(func(ctx context.Context, profile config.Profile) (transport.Transport, error) {
		return newFakeTransport(func(text string) []byte {
			if strings.HasPrefix(text, ":set") {
				return []byte{0x04}
			}
			if strings.HasPrefix(text, ":complete repl") {
				return []byte("2 2 \"putStr\"\n\"putStr\"\n\"putStrLn\"\n\x04")
			}
			return []byte{0x04}
		}), nil
	})
	t.Cleanup(m.Close)

	if _, err := m.Start(context.Background(), "dev", "ghci"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	comps, err := m.Complete(context.Background(), "dev", "putStr")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(comps.Candidates) != 2 {
		t.Errorf("len(Candidates) = %d, want 2", len(comps.Candidates))
	}
	if comps.Prefix != "putStr" {
		t.Errorf("Prefix = %q, want %q", comps.Prefix, "putStr")
	}
}
