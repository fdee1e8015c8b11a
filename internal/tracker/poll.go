package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

func (t *Tracker) newBackoff() retry.Backoff {
	b := retry.NewExponential(t.cfg.PollInterval)
	b = retry.WithCappedDuration(t.cfg.MaxBackoff, b)
	return retry.WithMaxRetries(uint64(t.cfg.MaxPollFailures-1), b)
}

// poll follows one execution until it leaves pending/running, the tracker
// gives up, or the run is abandoned. Each status request completes before
// the next is scheduled.
func (t *Tracker) poll(ctx context.Context, scriptID int, gen uint64, executionID int) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, t.cfg.MaxPollDuration)
	defer cancel()

	logger := t.logger.With().Int("script_id", scriptID).Int("execution_id", executionID).Logger()

	var backoff retry.Backoff
	failures := 0
	timer := time.NewTimer(t.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.pollStopped(ctx, scriptID, gen)
			return
		case <-timer.C:
		}

		st, err := t.client.ExecutionStatus(ctx, executionID)
		if err != nil {
			if ctx.Err() != nil {
				t.pollStopped(ctx, scriptID, gen)
				return
			}
			failures++
			pollErrorsTotal.Inc()
			if backoff == nil {
				backoff = t.newBackoff()
			}
			next, stop := backoff.Next()
			if stop {
				logger.Error().Err(err).Int("failures", failures).Msg("giving up on execution status")
				t.timeout(scriptID, gen, fmt.Sprintf("Lost contact with execution %d after %d failed status checks", executionID, failures))
				return
			}
			logger.Warn().Err(err).Int("failures", failures).Dur("retry_in", next).Msg("execution status poll failed")
			timer.Reset(next)
			continue
		}

		failures = 0
		backoff = nil

		switch {
		case st.Status.InFlight():
			timer.Reset(t.cfg.PollInterval)
		case st.Status == gateway.ExecutionFailed:
			t.fail(scriptID, gen, st)
			return
		default:
			t.complete(scriptID, gen, st)
			return
		}
	}
}

// pollStopped handles a done poll context: the duration bound expired, or
// the run was cancelled and has already been moved to idle.
func (t *Tracker) pollStopped(ctx context.Context, scriptID int, gen uint64) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.timeout(scriptID, gen, fmt.Sprintf("Execution status unknown after %s", t.cfg.MaxPollDuration))
	}
}

func (t *Tracker) timeout(scriptID int, gen uint64, msg string) {
	t.mu.Lock()
	e, ok := t.entries[scriptID]
	if !ok || e.gen != gen || e.state.Phase != PhasePolling {
		t.mu.Unlock()
		return
	}
	e.state.Error = msg
	t.transitionLocked(e, PhaseTimedOut)
	t.finishLocked(e)
	t.mu.Unlock()

	t.notifier.Notify(Notification{ScriptID: scriptID, Level: LevelError, Title: "Error", Message: msg})
}

func (t *Tracker) fail(scriptID int, gen uint64, st *gateway.ExecutionStatus) {
	msg := st.ErrorMessage
	if msg == "" {
		msg = "Script execution failed"
	}

	t.mu.Lock()
	e, ok := t.entries[scriptID]
	if !ok || e.gen != gen || e.state.Phase != PhasePolling {
		t.mu.Unlock()
		return
	}
	e.state.Error = msg
	e.state.LastExecution = &gateway.Execution{
		ExecutionID: st.ExecutionID,
		ScriptID:    scriptID,
		Timestamp:   st.EndTime,
		Status:      gateway.ExecutionFailed,
		Error:       msg,
	}
	if e.state.LastExecution.ExecutionID == 0 {
		e.state.LastExecution.ExecutionID = e.state.ExecutionID
	}
	t.transitionLocked(e, PhaseFailed)
	t.finishLocked(e)
	t.mu.Unlock()

	t.logger.Warn().Int("script_id", scriptID).Str("error", msg).Msg("script execution failed")
	t.notifier.Notify(Notification{ScriptID: scriptID, Level: LevelError, Title: "Error", Message: msg})
}

// complete applies the optimistic result of a finished run, then reconciles
// it with the backend's latest execution record.
func (t *Tracker) complete(scriptID int, gen uint64, st *gateway.ExecutionStatus) {
	at := st.EndTime
	if at == nil || at.IsZero() {
		at = gateway.NewTimestamp(t.now())
	}

	t.mu.Lock()
	e, ok := t.entries[scriptID]
	if !ok || e.gen != gen || e.state.Phase != PhasePolling {
		t.mu.Unlock()
		return
	}
	exec := &gateway.Execution{
		ExecutionID: e.state.ExecutionID,
		ScriptID:    scriptID,
		Timestamp:   at,
		Status:      gateway.ExecutionCompleted,
	}
	e.state.LastExecutionTime = at
	e.state.LastExecution = exec
	t.transitionLocked(e, PhaseCompleted)
	t.finishLocked(e)
	t.mu.Unlock()

	if t.scripts != nil {
		t.scripts.ApplyExecution(scriptID, at, exec)
	}
	t.logger.Info().Int("script_id", scriptID).Int("execution_id", exec.ExecutionID).Msg("script execution completed")
	t.notifier.Notify(Notification{ScriptID: scriptID, Level: LevelSuccess, Title: "Success", Message: "Script execution completed"})

	t.reconcile(scriptID, gen)
}

// reconcile replaces the optimistic execution with the backend's record.
// Failures keep the optimistic value and are never surfaced.
func (t *Tracker) reconcile(scriptID int, gen uint64) {
	ctx, cancel := context.WithTimeout(t.baseCtx, t.cfg.ReconcileTimeout)
	defer cancel()

	execs, err := t.client.ScriptLogs(ctx, scriptID, 0, 1)
	if err != nil {
		t.logger.Debug().Err(err).Int("script_id", scriptID).Msg("reconcile last execution")
		return
	}
	if len(execs) == 0 || execs[0].ExecutionID == 0 {
		return
	}
	latest := execs[0]
	if latest.ScriptID == 0 {
		latest.ScriptID = scriptID
	}
	var at *gateway.Timestamp
	if latest.Timestamp != nil && !latest.Timestamp.IsZero() {
		at = latest.Timestamp
	}

	t.mu.Lock()
	e, ok := t.entries[scriptID]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	if at != nil {
		e.state.LastExecutionTime = at
	} else {
		latest.Timestamp = e.state.LastExecutionTime
	}
	e.state.LastExecution = &latest
	t.mu.Unlock()

	if t.scripts != nil {
		t.scripts.ApplyExecution(scriptID, at, &latest)
	}
}
