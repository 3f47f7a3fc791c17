// Package session manages named REPL sessions: one GHCi subprocess and
// its protocol driver per session, plus the bookkeeping around them
// (trace logs, history, metrics).
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/docker/docker/client"

	"github.com/s9gf4ult/haskell-mode/internal/config"
	"github.com/s9gf4ult/haskell-mode/internal/ghci"
	"github.com/s9gf4ult/haskell-mode/internal/history"
	"github.com/s9gf4ult/haskell-mode/internal/logger"
	"github.com/s9gf4ult/haskell-mode/internal/metrics"
	"github.com/s9gf4ult/haskell-mode/internal/trace"
	"github.com/s9gf4ult/haskell-mode/internal/transport"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// TransportFactory creates the subprocess transport for a profile.
// Swappable so tests can inject a fake.
type TransportFactory func(ctx context.Context, profile config.Profile) (transport.Transport, error)

// Session is one running REPL with its protocol driver.
type Session struct {
	Name      string
	Profile   string
	StartedAt time.Time

	proc     *ghci.Process
	tr       transport.Transport
	traceLog *trace.Log
	cancel   context.CancelFunc
}

// Process exposes the protocol driver, mainly for flag accessors.
func (s *Session) Process() *ghci.Process { return s.proc }

// Info is the listing view of a session.
type Info struct {
	Name       string    `json:"name"`
	Profile    string    `json:"profile"`
	StartedAt  time.Time `json:"started_at"`
	Alive      bool      `json:"alive"`
	Busy       bool      `json:"busy"`
	QueueDepth int       `json:"queue_depth"`
}

// Manager handles session lifecycle.
type Manager struct {
	cfg     *config.Config
	history *history.Store // nil when history is disabled
	factory TransportFactory

	mu       sync.Mutex
	sessions map[string]*Session

	dockerOnce sync.Once
	dockerCli  *client.Client
	dockerErr  error
}

// NewManager creates a session manager using the real transports.
func NewManager(cfg *config.Config, hist *history.Store) *Manager {
	m := &Manager{
		cfg:      cfg,
		history:  hist,
		sessions: make(map[string]*Session),
	}
	m.factory = m.defaultFactory
	return m
}

// SetTransportFactory replaces the transport factory. For tests.
func (m *Manager) SetTransportFactory(f TransportFactory) { m.factory = f }

func (m *Manager) defaultFactory(ctx context.Context, profile config.Profile) (transport.Transport, error) {
	switch profile.Backend {
	case config.BackendDocker:
		m.dockerOnce.Do(func() {
			m.dockerCli, m.dockerErr = transport.NewDockerClient()
		})
		if m.dockerErr != nil {
			return nil, fmt.Errorf("docker client: %w", m.dockerErr)
		}
		cmd := append([]string{profile.Command}, profile.Args...)
		return transport.NewDocker(ctx, m.dockerCli, profile.Container.ID, cmd, profile.WorkingDir, profile.Env)
	default:
		return transport.NewLocal(ctx, profile.Command, profile.Args, profile.WorkingDir, profile.Env)
	}
}

// Start creates a named session from a configured profile, spawns the
// subprocess, and queues the profile's setup commands.
func (m *Manager) Start(ctx context.Context, name, profileName string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, name)
	}
	profile, ok := m.cfg.Profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileName)
	}

	sess, err := m.startLocked(ctx, name, profileName, profile)
	if err != nil {
		return nil, err
	}
	m.sessions[name] = sess
	metrics.ActiveSessions.Inc()
	logger.Info("Session %s started (profile %s, backend %s)", name, profileName, profile.Backend)
	return sess, nil
}

// startLocked spawns transport+driver for a session. Caller holds m.mu.
func (m *Manager) startLocked(ctx context.Context, name, profileName string, profile config.Profile) (*Session, error) {
	tr, err := m.factory(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", profile.Command, err)
	}

	proc := ghci.New(name, tr)

	var traceLog *trace.Log
	if m.cfg.Server.LogDir != "" {
		traceLog, err = trace.Open(filepath.Join(m.cfg.Server.LogDir, name+".trace.log"))
		if err != nil {
			logger.Error("Session %s: trace log unavailable: %v", name, err)
			traceLog = nil
		} else {
			proc.SetTrace(traceLog)
		}
	}

	proc.OnEnded(func(procName string) {
		metrics.ProcessEnded.WithLabelValues(procName).Inc()
		logger.Info("Session %s: subprocess ended", procName)
		// The notification can fire from inside a queue operation while
		// the manager lock is held, so cleanup runs on its own goroutine.
		go m.remove(procName)
	})

	runCtx, cancel := context.WithCancel(context.Background())
	go proc.Run(runCtx)

	sess := &Session{
		Name:      name,
		Profile:   profileName,
		StartedAt: time.Now(),
		proc:      proc,
		tr:        tr,
		traceLog:  traceLog,
		cancel:    cancel,
	}

	for _, line := range profile.Setup {
		setup := line
		proc.Enqueue(&ghci.Command{
			Issue: func(any) { _ = proc.Send(setup) },
		})
	}
	return sess, nil
}

// remove drops a session from the map if it is still registered. Safe
// to call more than once for the same name.
func (m *Manager) remove(name string) {
	m.mu.Lock()
	sess, ok := m.sessions[name]
	if ok {
		delete(m.sessions, name)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	metrics.ActiveSessions.Dec()
	sess.cancel()
	_ = sess.tr.Close()
	if sess.traceLog != nil {
		_ = sess.traceLog.Close()
	}
}

// Stop terminates a session's subprocess and forgets it.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	sess, ok := m.sessions[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	// Suppress the ended notification: this is a deliberate stop.
	sess.proc.SetRestarting(true)
	m.remove(name)
	logger.Info("Session %s stopped", name)
	return nil
}

// Restart replaces a session's subprocess with a fresh one from the same
// profile. Pending commands on the old process are discarded.
func (m *Manager) Restart(ctx context.Context, name string) (*Session, error) {
	m.mu.Lock()
	old, ok := m.sessions[name]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	profileName := old.Profile
	profile, ok := m.cfg.Profiles[profileName]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileName)
	}
	m.mu.Unlock()

	old.proc.SetRestarting(true)
	metrics.ProcessRestarts.WithLabelValues(name).Inc()
	m.remove(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.startLocked(ctx, name, profileName, profile)
	if err != nil {
		return nil, err
	}
	m.sessions[name] = sess
	metrics.ActiveSessions.Inc()
	logger.Info("Session %s restarted", name)
	return sess, nil
}

// Get returns a session by name.
func (m *Manager) Get(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return sess, nil
}

// List returns all sessions sorted by name.
func (m *Manager) List() []*Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]*Info, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, &Info{
			Name:       sess.Name,
			Profile:    sess.Profile,
			StartedAt:  sess.StartedAt,
			Alive:      sess.proc.Alive(),
			Busy:       sess.proc.Busy(),
			QueueDepth: sess.proc.QueueDepth(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Eval sends input to a session and blocks for the delimited response.
// The exchange is recorded in the history store when one is configured.
func (m *Manager) Eval(ctx context.Context, name, input string) (string, error) {
	sess, err := m.Get(name)
	if err != nil {
		return "", err
	}

	start := time.Now()
	response, err := sess.proc.SyncRequest(ctx, input)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(name, status).Inc()
	metrics.CommandDuration.WithLabelValues(name).Observe(duration.Seconds())
	metrics.ResponseBytes.WithLabelValues(name).Add(float64(len(response)))

	if m.history != nil {
		entry := &history.Entry{
			Session:    name,
			Request:    input,
			Response:   response,
			OK:         err == nil,
			StartedAt:  start,
			DurationMs: duration.Milliseconds(),
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if herr := m.history.Record(entry); herr != nil {
			logger.Error("Session %s: history record failed: %v", name, herr)
		}
	}

	return response, err
}

// Complete asks a session's REPL for identifier completions.
func (m *Manager) Complete(ctx context.Context, name, input string) (*ghci.Completions, error) {
	sess, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return sess.proc.CompleteIdentifier(ctx, input)
}

// Close stops every session. Called on server shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if err := m.Stop(name); err != nil {
			logger.Error("Failed to stop session %s: %v", name, err)
		}
	}
}
