package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/svennapp/svennProductsFE/internal/schedule"
)

func ScheduleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Edit and preview script schedules",
	}
	cmd.AddCommand(ScheduleSetCmd(app))
	cmd.AddCommand(ScheduleApplyCmd(app))
	cmd.AddCommand(ScheduleNextCmd())
	cmd.AddCommand(SchedulePresetsCmd())
	return cmd
}

func ScheduleSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <script_id> <cron|preset>",
		Short: "Create or update a script's schedule",
		Long: "Create or update a script's schedule. The schedule is a preset key " +
			"(see 'schedule presets') or a five-field cron expression; the fields " +
			"may be passed quoted or as separate arguments.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptID, err := parseID("script", args[0])
			if err != nil {
				return err
			}
			input := strings.Join(args[1:], " ")

			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}
			job, err := ws.SaveSchedule(cmd.Context(), scriptID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script %d scheduled: %s (job %s)\n", scriptID, job.CronExpression, job.JobID)
			return nil
		},
	}
}

func ScheduleApplyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply -f <file.yaml>",
		Short: "Apply schedules from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read schedule file: %w", err)
			}
			entries, err := ParseScheduleFile(data)
			if err != nil {
				return err
			}

			if dryRun {
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "would schedule script %d: %s\n", e.ScriptID, e.Expression())
				}
				return nil
			}

			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}
			var errs []error
			applied := 0
			for _, e := range entries {
				job, err := ws.SaveSchedule(cmd.Context(), e.ScriptID, e.Schedule)
				if err != nil {
					errs = append(errs, err)
					fmt.Fprintf(cmd.OutOrStdout(), "script %d: %v\n", e.ScriptID, err)
					continue
				}
				applied++
				fmt.Fprintf(cmd.OutOrStdout(), "script %d: %s (job %s)\n", e.ScriptID, job.CronExpression, job.JobID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d of %d schedules\n", applied, len(entries))
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringP("file", "f", "", "YAML file with a schedules list")
	cmd.Flags().Bool("dry-run", false, "Validate and print without saving")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func ScheduleNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next <cron|preset>",
		Short: "Preview the next run times of a schedule (UTC)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("count")
			if n <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			expr := schedule.Resolve(strings.Join(args, " "))
			runs, err := schedule.NextRuns(expr, time.Now().UTC(), n)
			if err != nil {
				return err
			}
			for _, t := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 5, "Number of runs to show")
	return cmd
}

func SchedulePresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the schedule presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "KEY\tCRON\tDESCRIPTION")
			for _, p := range schedule.Presets {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, p.Value, p.Label)
			}
			return tw.Flush()
		},
	}
}
