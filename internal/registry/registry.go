package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

// ScheduledJobPrefix marks the canonical recurring job of a script. Manual
// runs get other job ids.
const ScheduledJobPrefix = "script_"

// Client is the subset of the gateway the registry uses.
type Client interface {
	ListJobs(ctx context.Context, scheduledOnly bool) ([]gateway.Job, error)
	ToggleJob(ctx context.Context, jobID string) error
}

// Registry caches the scheduled jobs known to the backend.
type Registry struct {
	client Client
	logger zerolog.Logger

	mu   sync.RWMutex
	jobs []gateway.Job
}

func New(client Client, logger zerolog.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Refresh reloads the scheduled jobs.
func (r *Registry) Refresh(ctx context.Context) error {
	jobs, err := r.client.ListJobs(ctx, true)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	r.mu.Lock()
	r.jobs = jobs
	r.mu.Unlock()
	return nil
}

// Jobs returns a copy of the cached jobs.
func (r *Registry) Jobs() []gateway.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]gateway.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Toggle flips a job's enabled flag on the backend and reloads the jobs. The
// cached flag is not changed locally; it only moves once the reload returns
// the server's value.
func (r *Registry) Toggle(ctx context.Context, jobID string) error {
	if err := r.client.ToggleJob(ctx, jobID); err != nil {
		return fmt.Errorf("toggle job %s: %w", jobID, err)
	}
	r.logger.Info().Str("job_id", jobID).Msg("job toggled")
	return r.Refresh(ctx)
}

// ScheduledJob returns the cached recurring job of a script.
func (r *Registry) ScheduledJob(scriptID int) (gateway.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return FindScheduledJob(r.jobs, scriptID)
}

// Lookup returns the cached job with the given job id.
func (r *Registry) Lookup(jobID string) (gateway.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.JobID == jobID {
			return j, true
		}
	}
	return gateway.Job{}, false
}

// FindScheduledJob returns the job for scriptID whose job id carries the
// recurring-job prefix.
func FindScheduledJob(jobs []gateway.Job, scriptID int) (gateway.Job, bool) {
	for _, j := range jobs {
		if j.ScriptID == scriptID && strings.HasPrefix(j.JobID, ScheduledJobPrefix) {
			return j, true
		}
	}
	return gateway.Job{}, false
}
