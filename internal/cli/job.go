package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/svennapp/svennProductsFE/internal/schedule"
)

func JobsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List scheduled jobs with their next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := ws.Registry.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			jobs := ws.Registry.Jobs()
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scheduled jobs.")
				return nil
			}

			now := time.Now().UTC()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "JOB ID\tSCRIPT\tCRON\tENABLED\tNEXT RUN")
			for _, j := range jobs {
				next := "-"
				if j.Enabled {
					if runs, err := schedule.NextRuns(j.CronExpression, now, 1); err == nil && len(runs) == 1 {
						next = runs[0].Format(time.RFC3339)
					}
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%t\t%s\n", j.JobID, j.ScriptID, j.CronExpression, j.Enabled, next)
			}
			return tw.Flush()
		},
	}
}

func ToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <job_id>",
		Short: "Enable or disable a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := strings.TrimSpace(args[0])
			if jobID == "" {
				return fmt.Errorf("job id must not be empty")
			}
			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := ws.Registry.Toggle(cmd.Context(), jobID); err != nil {
				return fmt.Errorf("failed to toggle job %s: %w", jobID, err)
			}

			job, ok := ws.Registry.Lookup(jobID)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Toggled job %s\n", jobID)
				return nil
			}
			state := "disabled"
			if job.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s\n", jobID, state)
			return nil
		},
	}
}
