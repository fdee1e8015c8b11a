package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func WarehousesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "warehouses",
		Short: "List warehouses, marking the selected one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}
			warehouses, err := ws.Directory.Warehouses(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list warehouses: %w", err)
			}
			if len(warehouses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No warehouses found.")
				return nil
			}

			selected := ws.Directory.WarehouseID()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "\tID\tNAME\tDESCRIPTION")
			for _, w := range warehouses {
				mark := ""
				if w.ID == selected {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", mark, w.ID, w.Name, w.Description)
			}
			return tw.Flush()
		},
	}
}

func UseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <warehouse_id>",
		Short: "Select and remember a warehouse (0 clears the selection)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid warehouse id %q", args[0])
			}
			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}

			if id != 0 {
				warehouses, err := ws.Directory.Warehouses(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list warehouses: %w", err)
				}
				found := false
				for _, w := range warehouses {
					if w.ID == id {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("warehouse %d not found", id)
				}
			}

			if err := ws.SelectWarehouse(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to load scripts: %w", err)
			}
			if id == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Warehouse selection cleared.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using warehouse %d (%d scripts)\n", id, len(ws.Scripts()))
			return nil
		},
	}
}

func ScriptsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "List the scripts of the selected warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if id, _ := cmd.Flags().GetInt("warehouse"); id > 0 {
				if err := ws.Directory.SetWarehouse(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to load scripts: %w", err)
				}
			}
			if ws.Directory.WarehouseID() == 0 {
				return errNoWarehouse
			}
			if err := ws.Directory.Err(); err != nil {
				return fmt.Errorf("failed to load scripts: %w", err)
			}

			scripts := ws.Scripts()
			if len(scripts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No scripts in warehouse %d.\n", ws.Directory.WarehouseID())
				return nil
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSCHEDULE\tLAST RUN\tSTATUS")
			for _, s := range scripts {
				sched := "-"
				if s.ScheduledJob != nil {
					sched = s.ScheduledJob.CronExpression
					if !s.ScheduledJob.Enabled {
						sched += " (disabled)"
					}
				}
				status := "-"
				if s.LastExecution != nil {
					status = string(s.LastExecution.Status)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Type, sched, formatTime(s.LastExecutionTime), status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("warehouse", 0, "List this warehouse instead of the remembered one")
	return cmd
}
