package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/s9gf4ult/haskell-mode/internal/config"
	"github.com/s9gf4ult/haskell-mode/internal/logger"
)

var ErrEntryNotFound = errors.New("schedule entry not found")

// ExecutionFunc is called by the runner to execute a due entry.
// It should return the session's response text and any error.
type ExecutionFunc func(ctx context.Context, entry *Entry) (string, error)

// Entry is a parsed schedule loaded from configuration.
type Entry struct {
	Name    string
	Session string // profile/session name to evaluate against
	Command string // GHCi input to send

	sched cron.Schedule

	mu   sync.Mutex // guards next; written by the runner loop, read by handlers
	next time.Time
}

// NextRunAt returns the next scheduled run time for the entry.
func (e *Entry) NextRunAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next
}

// advance moves the entry past now and reports whether it was due.
func (e *Entry) advance(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.next.After(now) {
		return false
	}
	e.next = e.sched.Next(now)
	return true
}

// Runner manages scheduled session commands. Entries come from the
// server configuration and are held in memory; execution results land
// in the history store via the execution func.
type Runner struct {
	entries     []*Entry
	executeFunc ExecutionFunc
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	// Track running executions per entry for overlap skipping
	running   map[string]bool
	runningMu sync.Mutex
}

// NewRunner parses the configured schedule entries and creates a
// runner. Invalid cron expressions are rejected up front.
func NewRunner(entries []config.ScheduleEntry, executeFunc ExecutionFunc) (*Runner, error) {
	now := time.Now()
	parsed := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		sched, err := ParseCron(e.Cron)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, &Entry{
			Name:    e.Name,
			Session: e.Session,
			Command: e.Command,
			sched:   sched,
			next:    sched.Next(now),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		entries:     parsed,
		executeFunc: executeFunc,
		interval:    time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		running:     make(map[string]bool),
	}, nil
}

// Start begins the scheduler loop
func (r *Runner) Start() {
	if len(r.entries) == 0 {
		return
	}
	r.wg.Add(1)
	go r.loop()
	logger.Info("Schedule runner started with %d entries", len(r.entries))
}

// Stop gracefully stops the runner and waits for in-flight executions
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	logger.Info("Schedule runner stopped")
}

// loop wakes every interval to check for due entries
func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkDue(time.Now())
		}
	}
}

// checkDue finds and executes entries whose next run time has passed
func (r *Runner) checkDue(now time.Time) {
	for _, entry := range r.entries {
		if !entry.advance(now) {
			continue
		}
		r.executeEntry(entry)
	}
}

// executeEntry runs one entry, skipping if the previous run is still active
func (r *Runner) executeEntry(entry *Entry) {
	r.runningMu.Lock()
	if r.running[entry.Name] {
		r.runningMu.Unlock()
		logger.Info("Skipping schedule %s: previous execution still running", entry.Name)
		return
	}
	r.running[entry.Name] = true
	r.runningMu.Unlock()

	// Execute in goroutine to not block the ticker
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.runningMu.Lock()
			delete(r.running, entry.Name)
			r.runningMu.Unlock()
		}()

		logger.Info("Executing schedule %s on session %s", entry.Name, entry.Session)
		if _, err := r.executeFunc(r.ctx, entry); err != nil {
			logger.Error("Schedule %s failed: %v", entry.Name, err)
			return
		}
		logger.Info("Schedule %s completed, next run at %s", entry.Name, entry.NextRunAt().Format(time.RFC3339))
	}()
}

// IsRunning reports whether an entry has an execution in flight.
func (r *Runner) IsRunning(name string) bool {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()
	return r.running[name]
}

// TriggerNow manually triggers an entry by name, ignoring its cron
// expression. Returns the execution result.
func (r *Runner) TriggerNow(name string) (string, error) {
	for _, entry := range r.entries {
		if entry.Name == name {
			logger.Info("Manually triggering schedule %s", name)
			return r.executeFunc(r.ctx, entry)
		}
	}
	return "", ErrEntryNotFound
}

// Entries returns the parsed schedule entries.
func (r *Runner) Entries() []*Entry {
	return r.entries
}
