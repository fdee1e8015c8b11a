package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/svennapp/svennProductsFE/internal/events"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/logexport"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

func parseID(kind, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

func RunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script_id>",
		Short: "Run a script now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptID, err := parseID("script", args[0])
			if err != nil {
				return err
			}
			wait, _ := cmd.Flags().GetBool("wait")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}

			var sub *events.Subscription
			if wait {
				sub = app.manager.Hub().Subscribe(app.Config.Operator)
				defer sub.Unsubscribe()
			}

			if err := ws.Tracker.Run(cmd.Context(), scriptID); err != nil {
				return err
			}
			st := ws.Tracker.State(scriptID)
			fmt.Fprintf(cmd.OutOrStdout(), "Started script %d (execution %d)\n", scriptID, st.ExecutionID)
			if !wait {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return follow(ctx, cmd.OutOrStdout(), ws, sub, scriptID)
		},
	}
	cmd.Flags().Bool("wait", false, "Follow the execution until it finishes")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Give up waiting after this long")
	return cmd
}

// follow prints transitions and notifications for scriptID until its run
// is no longer active.
func follow(ctx context.Context, out io.Writer, ws *workspace.Workspace, sub *events.Subscription, scriptID int) error {
	for ws.Tracker.State(scriptID).Phase.Active() {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				st, err := ws.Tracker.Wait(ctx, scriptID)
				if err != nil {
					return fmt.Errorf("wait for script %d: %w", scriptID, err)
				}
				return report(out, st)
			}
			printMessage(out, scriptID, msg)
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for script %d: %w", scriptID, ctx.Err())
		}
	}
	return report(out, ws.Tracker.State(scriptID))
}

func printMessage(out io.Writer, scriptID int, msg events.Message) {
	switch msg.Kind {
	case events.KindTransition:
		if msg.Transition.ScriptID == scriptID {
			fmt.Fprintf(out, "  %s -> %s\n", msg.Transition.From, msg.Transition.To)
		}
	case events.KindNotification:
		if msg.Notification.ScriptID == scriptID {
			fmt.Fprintf(out, "  [%s] %s\n", msg.Notification.Level, msg.Notification.Message)
		}
	}
}

func report(out io.Writer, st tracker.State) error {
	switch st.Phase {
	case tracker.PhaseCompleted:
		fmt.Fprintf(out, "Script %d completed (execution %d)\n", st.ScriptID, st.ExecutionID)
		return nil
	case tracker.PhaseFailed, tracker.PhaseTimedOut:
		return fmt.Errorf("script %d %s: %s", st.ScriptID, st.Phase, st.Error)
	}
	fmt.Fprintf(out, "Script %d is %s\n", st.ScriptID, st.Phase)
	return nil
}

func LogsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <script_id>",
		Short: "Show the logs of a script's most recent execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptID, err := parseID("script", args[0])
			if err != nil {
				return err
			}
			levelFlag, _ := cmd.Flags().GetString("level")
			level, err := gateway.ParseLogLevel(levelFlag)
			if err != nil {
				return err
			}

			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}

			execID, _ := cmd.Flags().GetInt("execution")
			if execID <= 0 {
				execID, err = latestExecution(cmd.Context(), ws, scriptID)
				if err != nil {
					return err
				}
			}

			logs, err := app.Backend.ExecutionLogs(cmd.Context(), execID, level)
			if err != nil {
				return fmt.Errorf("failed to fetch logs: %w", err)
			}
			if len(logs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No logs for execution %d.\n", execID)
				return nil
			}
			for _, l := range logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s  %s\n", formatTime(l.Timestamp), l.Level, l.Message)
			}
			return nil
		},
	}
	cmd.Flags().String("level", "", "Only show this level (info, warning, error)")
	cmd.Flags().Int("execution", 0, "Show this execution instead of the latest")
	cmd.AddCommand(LogsExportCmd(app))
	return cmd
}

// latestExecution prefers what the workspace knows and falls back to the
// backend's execution history.
func latestExecution(ctx context.Context, ws *workspace.Workspace, scriptID int) (int, error) {
	if exec, ok := ws.Tracker.LastExecution(scriptID); ok {
		return exec.ExecutionID, nil
	}
	execs, err := ws.Tracker.Executions(ctx, scriptID, 0, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch executions: %w", err)
	}
	if len(execs) == 0 || execs[0].ExecutionID == 0 {
		return 0, tracker.ErrNoRecentExecution
	}
	return execs[0].ExecutionID, nil
}

func LogsExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <execution_id>",
		Short: "Archive an execution's logs to S3 as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			execID, err := parseID("execution", args[0])
			if err != nil {
				return err
			}
			levelFlag, _ := cmd.Flags().GetString("level")
			level, err := gateway.ParseLogLevel(levelFlag)
			if err != nil {
				return err
			}

			s3cfg := app.Config.S3
			if v, _ := cmd.Flags().GetString("bucket"); v != "" {
				s3cfg.Bucket = v
			}
			if v, _ := cmd.Flags().GetString("prefix"); v != "" {
				s3cfg.Prefix = v
			}
			if s3cfg.Bucket == "" {
				return errors.New("no bucket configured, pass --bucket or set s3.bucket")
			}

			exporter := logexport.New(app.Backend, logexport.NewS3Client(s3cfg), s3cfg.Bucket, s3cfg.Prefix, app.Logger)
			key, err := exporter.Export(cmd.Context(), execID, level)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported execution %d to s3://%s/%s\n", execID, s3cfg.Bucket, key)
			return nil
		},
	}
	cmd.Flags().String("bucket", "", "Destination bucket (defaults to s3.bucket)")
	cmd.Flags().String("prefix", "", "Key prefix (defaults to s3.prefix)")
	cmd.Flags().String("level", "", "Only export this level")
	return cmd
}
