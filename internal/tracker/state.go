package tracker

import (
	"time"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

// Phase is the tracker's view of a script's current run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStarting  Phase = "starting"
	PhasePolling   Phase = "polling"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	// PhaseTimedOut means the tracker gave up polling; the remote outcome is
	// unknown.
	PhaseTimedOut Phase = "timed_out"
)

// Active reports whether a run is in flight.
func (p Phase) Active() bool {
	return p == PhaseStarting || p == PhasePolling
}

// Terminal reports whether the run has ended.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseTimedOut
}

// State is a snapshot of one script's tracking state.
type State struct {
	ScriptID          int                `json:"script_id"`
	Phase             Phase              `json:"phase"`
	Running           bool               `json:"running"`
	ExecutionID       int                `json:"execution_id,omitempty"`
	StartedAt         time.Time          `json:"started_at,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
	LastExecutionTime *gateway.Timestamp `json:"last_execution_time,omitempty"`
	LastExecution     *gateway.Execution `json:"last_execution,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// Event describes one phase transition.
type Event struct {
	ID          string    `json:"id"`
	ScriptID    int       `json:"script_id"`
	ExecutionID int       `json:"execution_id,omitempty"`
	From        Phase     `json:"from"`
	To          Phase     `json:"to"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is an operator-facing message.
type Notification struct {
	ScriptID int    `json:"script_id"`
	Level    Level  `json:"level"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Notifier receives transitions and operator notifications. Transition is
// called with the tracker lock held, in transition order; implementations
// must not block or call back into the tracker.
type Notifier interface {
	Transition(Event)
	Notify(Notification)
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) Transition(Event)    {}
func (NopNotifier) Notify(Notification) {}
