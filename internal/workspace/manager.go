package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/events"
	"github.com/svennapp/svennProductsFE/internal/prefs"
	"github.com/svennapp/svennProductsFE/internal/tracker"
)

var ErrClosed = errors.New("workspace manager closed")

var activeWorkspaces = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "workspaces_active",
	Help: "Number of operator workspaces held in memory",
})

type Config struct {
	// IdleTTL is how long a workspace is kept without requests or live
	// subscribers.
	IdleTTL time.Duration
	Tracker tracker.Config
}

// Manager owns one workspace per operator subject.
type Manager struct {
	backend Backend
	prefs   prefs.Store
	hub     *events.Hub
	logger  zerolog.Logger
	cfg     Config
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	closed     bool
}

func NewManager(backend Backend, store prefs.Store, hub *events.Hub, logger zerolog.Logger, cfg Config) *Manager {
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	if hub == nil {
		hub = events.NewHub(0)
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	return &Manager{
		backend:    backend,
		prefs:      store,
		hub:        hub,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// Hub returns the event hub the workspaces publish to.
func (m *Manager) Hub() *events.Hub {
	return m.hub
}

// Get returns the workspace for subject, creating and initialising it on
// first use.
func (m *Manager) Get(ctx context.Context, subject string) (*Workspace, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	ws, ok := m.workspaces[subject]
	if !ok {
		ws = newWorkspace(subject, m.backend, m.prefs, m.hub.Notifier(subject), m.logger, m.cfg.Tracker)
		m.workspaces[subject] = ws
		activeWorkspaces.Inc()
		m.logger.Info().Str("subject", subject).Msg("workspace created")
	}
	ws.touch(m.now())
	m.mu.Unlock()

	ws.init(ctx)
	return ws, nil
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Sweep tears down workspaces idle for longer than IdleTTL. A workspace
// with a connected event subscriber is never idle.
func (m *Manager) Sweep() int {
	now := m.now()
	var evicted []*Workspace

	m.mu.Lock()
	for subject, ws := range m.workspaces {
		if m.hub.Subscribers(subject) > 0 {
			ws.touch(now)
			continue
		}
		if now.Sub(ws.idleSince()) >= m.cfg.IdleTTL {
			delete(m.workspaces, subject)
			evicted = append(evicted, ws)
		}
	}
	m.mu.Unlock()

	for _, ws := range evicted {
		ws.Tracker.Close()
		activeWorkspaces.Dec()
		m.logger.Info().Str("subject", ws.Subject).Msg("idle workspace torn down")
	}
	return len(evicted)
}

// Run sweeps idle workspaces until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close tears down every workspace. Get fails afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	all := m.workspaces
	m.workspaces = make(map[string]*Workspace)
	m.mu.Unlock()

	for _, ws := range all {
		ws.Tracker.Close()
		activeWorkspaces.Dec()
	}
}
