package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

// Preset is a predefined schedule offered next to the custom expression.
type Preset struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

var Presets = []Preset{
	{Key: "hourly", Label: "Every hour", Value: "0 * * * *"},
	{Key: "every-6-hours", Label: "Every 6 hours", Value: "0 */6 * * *"},
	{Key: "daily", Label: "Daily at midnight", Value: "0 0 * * *"},
	{Key: "weekly", Label: "Weekly on Sunday", Value: "0 0 * * 0"},
	{Key: "monthly", Label: "Monthly", Value: "0 0 1 * *"},
}

// LookupPreset finds a preset by key or cron value.
func LookupPreset(s string) (Preset, bool) {
	for _, p := range Presets {
		if p.Key == s || p.Value == s {
			return p, true
		}
	}
	return Preset{}, false
}

// Resolve returns the cron expression for a preset key, or s unchanged.
func Resolve(s string) string {
	if p, ok := LookupPreset(s); ok {
		return p.Value
	}
	return s
}

// Client is the subset of the gateway used to save schedules.
type Client interface {
	CreateJob(ctx context.Context, scriptID int, cronExpression string) (*gateway.Job, error)
	UpdateJob(ctx context.Context, jobID, cronExpression string) (*gateway.Job, error)
}

// Editor edits the schedule of one script. Presets and custom input share a
// single expression.
type Editor struct {
	client Client

	mu     sync.Mutex
	expr   string
	preset string
	err    string
	closed bool
}

// NewEditor opens an editor seeded with the current expression, if any.
func NewEditor(client Client, current string) *Editor {
	e := &Editor{client: client, expr: current}
	if p, ok := LookupPreset(current); ok {
		e.preset = p.Key
	}
	return e
}

// SelectPreset copies a preset into the expression and clears the
// validation error.
func (e *Editor) SelectPreset(key string) error {
	p, ok := LookupPreset(key)
	if !ok {
		return fmt.Errorf("unknown schedule preset %q", key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expr = p.Value
	e.preset = p.Key
	e.err = ""
	return nil
}

// SetCustom replaces the expression with operator input.
func (e *Editor) SetCustom(expr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expr = expr
	e.preset = ""
	if p, ok := LookupPreset(strings.TrimSpace(expr)); ok && p.Value == strings.TrimSpace(expr) {
		e.preset = p.Key
	}
}

func (e *Editor) Expression() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expr
}

// Preset returns the key of the selected preset, empty for custom input.
func (e *Editor) Preset() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preset
}

// Error returns the message shown inline, empty when there is none.
func (e *Editor) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Closed reports whether the schedule was saved.
func (e *Editor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Submit validates and saves the expression. An existing job is updated,
// otherwise a new one is created. After a successful save refresh is called
// and the editor is closed. Invalid input is never sent.
func (e *Editor) Submit(ctx context.Context, scriptID int, existing *gateway.Job, refresh func(context.Context)) (*gateway.Job, error) {
	e.mu.Lock()
	expr := strings.TrimSpace(e.expr)
	if err := Validate(expr); err != nil {
		e.err = err.Error()
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	var (
		job *gateway.Job
		err error
	)
	if existing != nil {
		job, err = e.client.UpdateJob(ctx, existing.JobID, expr)
	} else {
		job, err = e.client.CreateJob(ctx, scriptID, expr)
	}
	if err != nil {
		e.mu.Lock()
		e.err = gateway.Message(err, "Failed to update schedule")
		e.mu.Unlock()
		return nil, fmt.Errorf("save schedule for script %d: %w", scriptID, err)
	}

	if refresh != nil {
		refresh(ctx)
	}

	e.mu.Lock()
	e.err = ""
	e.closed = true
	e.mu.Unlock()
	return job, nil
}
