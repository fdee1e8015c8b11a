// Package cli implements the scrapectl commands.
package cli

import (
	"context"
	"errors"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/prefs"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

var errNoWarehouse = errors.New("no warehouse selected, run 'scrapectl use <warehouse_id>' first")

// App carries what every command needs. The operator's workspace is the
// same one the dashboard API keeps per session, restored from local prefs.
type App struct {
	Config  *Config
	Backend *gateway.Client
	Logger  zerolog.Logger

	manager *workspace.Manager
}

func NewApp(cfg *Config, backend *gateway.Client, store prefs.Store, logger zerolog.Logger) *App {
	trackerCfg := tracker.DefaultConfig()
	trackerCfg.PollInterval = cfg.PollInterval

	return &App{
		Config:  cfg,
		Backend: backend,
		Logger:  logger,
		manager: workspace.NewManager(backend, store, nil, logger, workspace.Config{
			IdleTTL: 24 * time.Hour,
			Tracker: trackerCfg,
		}),
	}
}

func (a *App) workspace(ctx context.Context) (*workspace.Workspace, error) {
	return a.manager.Get(ctx, a.Config.Operator)
}

// Close stops any polling still in flight.
func (a *App) Close() {
	a.manager.Close()
}

// NewRootCmd assembles the scrapectl command tree.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scrapectl",
		Short:         "Operate scraper scripts, schedules and logs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(WarehousesCmd(app))
	rootCmd.AddCommand(UseCmd(app))
	rootCmd.AddCommand(ScriptsCmd(app))
	rootCmd.AddCommand(RunCmd(app))
	rootCmd.AddCommand(JobsCmd(app))
	rootCmd.AddCommand(ToggleCmd(app))
	rootCmd.AddCommand(ScheduleCmd(app))
	rootCmd.AddCommand(LogsCmd(app))
	rootCmd.AddCommand(ProductsCmd(app))
	return rootCmd
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatTime(ts *gateway.Timestamp) string {
	if ts == nil {
		return "-"
	}
	return ts.Time.UTC().Format(time.RFC3339)
}
