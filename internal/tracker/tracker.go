package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

var (
	// ErrAlreadyRunning is returned by Run while the script is starting or polling.
	ErrAlreadyRunning = errors.New("script is already running")
	// ErrNoRecentExecution is returned by Logs when no execution is known.
	ErrNoRecentExecution = errors.New("no recent execution found for this script")
	// ErrNoExecutionID is returned when the backend accepted a run without an execution id.
	ErrNoExecutionID = errors.New("no execution ID provided")
	// ErrCancelled is returned by Run when tracking was cancelled before the start request returned.
	ErrCancelled = errors.New("tracking cancelled")
	ErrClosed    = errors.New("tracker closed")
)

// Client is the subset of the gateway the tracker calls.
type Client interface {
	RunScript(ctx context.Context, scriptID int) (*gateway.RunScriptResponse, error)
	ExecutionStatus(ctx context.Context, executionID int) (*gateway.ExecutionStatus, error)
	ScriptLogs(ctx context.Context, scriptID, skip, limit int) ([]gateway.Execution, error)
	ExecutionLogs(ctx context.Context, executionID int, level gateway.LogLevel) ([]gateway.LogEntry, error)
}

// Scripts is the script cache updated when a run completes.
type Scripts interface {
	Script(scriptID int) (gateway.Script, bool)
	ApplyExecution(scriptID int, at *gateway.Timestamp, exec *gateway.Execution) bool
}

type Config struct {
	PollInterval    time.Duration
	MaxPollDuration time.Duration
	// MaxPollFailures is the number of consecutive failed polls after which
	// the execution is given up as timed out.
	MaxPollFailures int
	MaxBackoff      time.Duration
	// ReconcileTimeout bounds the best-effort log fetch after completion.
	ReconcileTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:     3 * time.Second,
		MaxPollDuration:  30 * time.Minute,
		MaxPollFailures:  8,
		MaxBackoff:       time.Minute,
		ReconcileTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxPollDuration <= 0 {
		c.MaxPollDuration = d.MaxPollDuration
	}
	if c.MaxPollFailures <= 0 {
		c.MaxPollFailures = d.MaxPollFailures
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.ReconcileTimeout <= 0 {
		c.ReconcileTimeout = d.ReconcileTimeout
	}
	return c
}

type entry struct {
	state State
	// gen changes whenever the current run is abandoned, so late results
	// from an earlier run are dropped.
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Tracker runs scripts and follows their executions until they finish. Each
// execution is polled by one goroutine owned by the tracker, one request at
// a time.
type Tracker struct {
	client   Client
	scripts  Scripts
	notifier Notifier
	logger   zerolog.Logger
	cfg      Config
	now      func() time.Time

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	entries map[int]*entry
	closed  bool
}

func New(client Client, scripts Scripts, notifier Notifier, logger zerolog.Logger, cfg Config) *Tracker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		client:    client,
		scripts:   scripts,
		notifier:  notifier,
		logger:    logger.With().Str("component", "tracker").Logger(),
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
		baseCtx:   ctx,
		cancelAll: cancel,
		entries:   make(map[int]*entry),
	}
}

func (t *Tracker) entryLocked(scriptID int) *entry {
	e, ok := t.entries[scriptID]
	if !ok {
		e = &entry{state: State{ScriptID: scriptID, Phase: PhaseIdle, UpdatedAt: t.now()}}
		t.entries[scriptID] = e
	}
	return e
}

func (t *Tracker) transitionLocked(e *entry, to Phase) {
	from := e.state.Phase
	e.state.Phase = to
	e.state.Running = to.Active()
	e.state.UpdatedAt = t.now()

	if from == PhasePolling {
		activePolls.Dec()
	}
	if to == PhasePolling {
		activePolls.Inc()
	}
	transitionsTotal.WithLabelValues(string(to)).Inc()

	t.notifier.Transition(Event{
		ID:          uuid.NewString(),
		ScriptID:    e.state.ScriptID,
		ExecutionID: e.state.ExecutionID,
		From:        from,
		To:          to,
		Error:       e.state.Error,
		At:          e.state.UpdatedAt,
	})
	t.logger.Debug().
		Int("script_id", e.state.ScriptID).
		Int("execution_id", e.state.ExecutionID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("phase transition")
}

// finishLocked releases waiters and the poll goroutine of the current run.
func (t *Tracker) finishLocked(e *entry) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// Run triggers a script and starts following its execution. It returns once
// the backend has accepted or refused the run; polling continues in the
// background.
func (t *Tracker) Run(ctx context.Context, scriptID int) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	e := t.entryLocked(scriptID)
	if e.state.Phase.Active() {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	if e.state.Phase.Terminal() {
		t.transitionLocked(e, PhaseIdle)
	}
	e.gen++
	gen := e.gen
	e.done = make(chan struct{})
	e.state.ExecutionID = 0
	e.state.Error = ""
	e.state.StartedAt = t.now()
	t.transitionLocked(e, PhaseStarting)
	t.mu.Unlock()

	runsStartedTotal.Inc()
	resp, err := t.client.RunScript(ctx, scriptID)
	if err == nil && resp.Status == gateway.ExecutionFailed {
		msg := resp.Error
		if msg == "" {
			msg = "Script execution failed"
		}
		err = &gateway.APIError{Status: 200, Message: msg}
	}
	if err == nil && resp.ExecutionID == 0 {
		err = ErrNoExecutionID
	}

	t.mu.Lock()
	if e.gen != gen || t.closed {
		t.mu.Unlock()
		return ErrCancelled
	}
	if err != nil {
		msg := gateway.Message(err, "Failed to run script")
		if errors.Is(err, ErrNoExecutionID) {
			msg = "No execution ID provided"
		}
		e.state.Error = msg
		t.transitionLocked(e, PhaseIdle)
		t.finishLocked(e)
		t.mu.Unlock()

		t.logger.Warn().Err(err).Int("script_id", scriptID).Msg("failed to start script")
		t.notifier.Notify(Notification{ScriptID: scriptID, Level: LevelError, Title: "Error", Message: msg})
		return fmt.Errorf("run script %d: %w", scriptID, err)
	}

	e.state.ExecutionID = resp.ExecutionID
	pollCtx, cancel := context.WithCancel(t.baseCtx)
	e.cancel = cancel
	t.transitionLocked(e, PhasePolling)
	t.wg.Add(1)
	go t.poll(pollCtx, scriptID, gen, resp.ExecutionID)
	t.mu.Unlock()

	t.logger.Info().Int("script_id", scriptID).Int("execution_id", resp.ExecutionID).Msg("script execution started")
	t.notifier.Notify(Notification{ScriptID: scriptID, Level: LevelSuccess, Title: "Success", Message: "Script execution started"})
	return nil
}

// Cancel stops following a script's run and returns it to idle. The remote
// execution is not stopped. Reports false when nothing was in flight.
func (t *Tracker) Cancel(scriptID int) bool {
	t.mu.Lock()
	e, ok := t.entries[scriptID]
	if !ok || !e.state.Phase.Active() {
		t.mu.Unlock()
		return false
	}
	e.gen++
	t.transitionLocked(e, PhaseIdle)
	t.finishLocked(e)
	t.mu.Unlock()

	t.logger.Info().Int("script_id", scriptID).Msg("stopped tracking script execution")
	t.notifier.Notify(Notification{ScriptID: scriptID, Level: LevelInfo, Title: "Stopped", Message: "Stopped tracking script execution"})
	return true
}

// Prune cancels tracking for every active script not in visible.
func (t *Tracker) Prune(visible []int) {
	keep := make(map[int]bool, len(visible))
	for _, id := range visible {
		keep[id] = true
	}

	t.mu.Lock()
	var drop []int
	for id, e := range t.entries {
		if !keep[id] && e.state.Phase.Active() {
			drop = append(drop, id)
		}
	}
	t.mu.Unlock()

	for _, id := range drop {
		t.Cancel(id)
	}
}

// Close stops every poll and waits for the poll goroutines to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.wg.Wait()
		return
	}
	t.closed = true
	t.cancelAll()
	for _, e := range t.entries {
		if e.state.Phase.Active() {
			e.gen++
			t.transitionLocked(e, PhaseIdle)
		}
		t.finishLocked(e)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// State returns the tracking state of a script. Unknown scripts are idle.
func (t *Tracker) State(scriptID int) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked(scriptID)
}

// States returns all known states ordered by script id.
func (t *Tracker) States() []State {
	t.mu.Lock()
	out := make([]State, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.state)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ScriptID < out[j].ScriptID })
	return out
}

// Wait blocks until the script's current run is no longer active and
// returns the resulting state.
func (t *Tracker) Wait(ctx context.Context, scriptID int) (State, error) {
	t.mu.Lock()
	e, ok := t.entries[scriptID]
	if !ok || e.done == nil {
		st := t.stateLocked(scriptID)
		t.mu.Unlock()
		return st, nil
	}
	done := e.done
	t.mu.Unlock()

	select {
	case <-done:
		return t.State(scriptID), nil
	case <-ctx.Done():
		return t.State(scriptID), ctx.Err()
	}
}

func (t *Tracker) stateLocked(scriptID int) State {
	if e, ok := t.entries[scriptID]; ok {
		return e.state
	}
	return State{ScriptID: scriptID, Phase: PhaseIdle}
}

// LastExecution returns the most recent known execution of a script, from
// the tracker first and the script cache second.
func (t *Tracker) LastExecution(scriptID int) (*gateway.Execution, bool) {
	t.mu.Lock()
	if e, ok := t.entries[scriptID]; ok && e.state.LastExecution != nil {
		exec := *e.state.LastExecution
		t.mu.Unlock()
		return &exec, true
	}
	t.mu.Unlock()

	if t.scripts != nil {
		if s, ok := t.scripts.Script(scriptID); ok && s.LastExecution != nil && s.LastExecution.ExecutionID != 0 {
			exec := *s.LastExecution
			return &exec, true
		}
	}
	return nil, false
}

// Logs returns the log lines of the script's last known execution.
func (t *Tracker) Logs(ctx context.Context, scriptID int, level gateway.LogLevel) ([]gateway.LogEntry, error) {
	exec, ok := t.LastExecution(scriptID)
	if !ok || exec.ExecutionID == 0 {
		return nil, ErrNoRecentExecution
	}
	logs, err := t.client.ExecutionLogs(ctx, exec.ExecutionID, level)
	if err != nil {
		return nil, fmt.Errorf("execution %d logs: %w", exec.ExecutionID, err)
	}
	return logs, nil
}

// Executions returns the script's recent executions from the backend.
func (t *Tracker) Executions(ctx context.Context, scriptID, skip, limit int) ([]gateway.Execution, error) {
	execs, err := t.client.ScriptLogs(ctx, scriptID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("script %d executions: %w", scriptID, err)
	}
	return execs, nil
}
