// Package workspace holds the per-operator dashboard state: the selected
// warehouse, its script directory, the job registry and the execution
// tracker.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/svennapp/svennProductsFE/internal/directory"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/prefs"
	"github.com/svennapp/svennProductsFE/internal/registry"
	"github.com/svennapp/svennProductsFE/internal/schedule"
	"github.com/svennapp/svennProductsFE/internal/tracker"
)

// Backend is every backend call a workspace makes. *gateway.Client
// satisfies it.
type Backend interface {
	directory.Client
	registry.Client
	tracker.Client
	schedule.Client
	BasicStats(ctx context.Context) (gateway.BasicStats, error)
}

// ScriptView is a script merged with its scheduled job and tracking state.
type ScriptView struct {
	gateway.Script
	ScheduledJob *gateway.Job  `json:"scheduled_job,omitempty"`
	State        tracker.State `json:"state"`
}

// Overview is the dashboard landing summary.
type Overview struct {
	Stats       gateway.BasicStats  `json:"stats"`
	Warehouses  []gateway.Warehouse `json:"warehouses"`
	WarehouseID int                 `json:"warehouse_id"`
	Jobs        []gateway.Job       `json:"jobs"`
	Running     []tracker.State     `json:"running"`
}

type Workspace struct {
	Subject   string
	Directory *directory.Directory
	Registry  *registry.Registry
	Tracker   *tracker.Tracker

	backend Backend
	prefs   prefs.Store
	logger  zerolog.Logger

	initOnce sync.Once

	mu       sync.Mutex
	lastUsed time.Time
}

func newWorkspace(subject string, backend Backend, store prefs.Store, notifier tracker.Notifier, logger zerolog.Logger, cfg tracker.Config) *Workspace {
	logger = logger.With().Str("subject", subject).Logger()
	dir := directory.New(backend, logger)
	return &Workspace{
		Subject:   subject,
		Directory: dir,
		Registry:  registry.New(backend, logger),
		Tracker:   tracker.New(backend, dir, notifier, logger, cfg),
		backend:   backend,
		prefs:     store,
		logger:    logger.With().Str("component", "workspace").Logger(),
	}
}

// initTimeout bounds the restore done when a workspace is first used.
const initTimeout = 30 * time.Second

// init restores the remembered warehouse and loads the job list. Failures
// are logged; the workspace stays usable with empty lists. The restore runs
// once, so it is detached from the cancellation of the request that
// triggered it.
func (w *Workspace) init(ctx context.Context) {
	w.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
		defer cancel()

		warehouseID, err := w.prefs.Warehouse(ctx, w.Subject)
		if err != nil {
			w.logger.Warn().Err(err).Msg("failed to load remembered warehouse")
		}
		if warehouseID > 0 {
			if err := w.Directory.SetWarehouse(ctx, warehouseID); err != nil {
				w.logger.Warn().Err(err).Int("warehouse_id", warehouseID).Msg("failed to restore warehouse")
			}
		}
		if err := w.Registry.Refresh(ctx); err != nil {
			w.logger.Warn().Err(err).Msg("failed to load jobs")
		}
	})
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// SelectWarehouse switches the warehouse, remembers it and stops tracking
// scripts that are no longer listed.
func (w *Workspace) SelectWarehouse(ctx context.Context, warehouseID int) error {
	if warehouseID < 0 {
		return fmt.Errorf("invalid warehouse id %d", warehouseID)
	}
	err := w.Directory.SetWarehouse(ctx, warehouseID)

	if perr := w.prefs.SetWarehouse(ctx, w.Subject, warehouseID); perr != nil {
		w.logger.Warn().Err(perr).Int("warehouse_id", warehouseID).Msg("failed to remember warehouse")
	}

	w.prune()
	return err
}

// RefreshScripts refetches the selected warehouse's scripts and stops
// tracking any that are no longer listed.
func (w *Workspace) RefreshScripts(ctx context.Context) error {
	err := w.Directory.Refresh(ctx)
	w.prune()
	return err
}

func (w *Workspace) prune() {
	scripts := w.Directory.Scripts()
	visible := make([]int, len(scripts))
	for i, s := range scripts {
		visible[i] = s.ID
	}
	w.Tracker.Prune(visible)
}

// Scripts lists the scripts of the selected warehouse.
func (w *Workspace) Scripts() []ScriptView {
	scripts := w.Directory.Scripts()
	views := make([]ScriptView, len(scripts))
	for i, s := range scripts {
		views[i] = w.view(s)
	}
	return views
}

// Script returns one script of the selected warehouse.
func (w *Workspace) Script(scriptID int) (ScriptView, bool) {
	s, ok := w.Directory.Script(scriptID)
	if !ok {
		return ScriptView{}, false
	}
	return w.view(s), true
}

func (w *Workspace) view(s gateway.Script) ScriptView {
	v := ScriptView{Script: s, State: w.Tracker.State(s.ID)}
	if job, ok := w.Registry.ScheduledJob(s.ID); ok {
		v.ScheduledJob = &job
	}
	return v
}

// SaveSchedule creates or updates the scheduled job of a script. input is a
// preset key or a cron expression.
func (w *Workspace) SaveSchedule(ctx context.Context, scriptID int, input string) (*gateway.Job, error) {
	var existing *gateway.Job
	current := ""
	if job, ok := w.Registry.ScheduledJob(scriptID); ok {
		existing = &job
		current = job.CronExpression
	}

	editor := schedule.NewEditor(w.backend, current)
	if err := editor.SelectPreset(input); err != nil {
		editor.SetCustom(input)
	}

	return editor.Submit(ctx, scriptID, existing, func(ctx context.Context) {
		if err := w.Registry.Refresh(ctx); err != nil {
			w.logger.Warn().Err(err).Msg("failed to reload jobs after schedule change")
		}
	})
}

// Overview loads stats, warehouses and jobs concurrently.
func (w *Workspace) Overview(ctx context.Context) (*Overview, error) {
	ov := &Overview{WarehouseID: w.Directory.WarehouseID()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := w.backend.BasicStats(gctx)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		ov.Stats = stats
		return nil
	})
	g.Go(func() error {
		warehouses, err := w.Directory.Warehouses(gctx)
		if err != nil {
			return err
		}
		ov.Warehouses = warehouses
		return nil
	})
	g.Go(func() error {
		return w.Registry.Refresh(gctx)
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	ov.Jobs = w.Registry.Jobs()
	for _, st := range w.Tracker.States() {
		if st.Running {
			ov.Running = append(ov.Running, st)
		}
	}
	return ov, nil
}
