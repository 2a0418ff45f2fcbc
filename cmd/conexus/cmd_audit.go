package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/conexus/pkg/audit"
	"github.com/newtron-network/conexus/pkg/cli"
)

func newAuditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View audit logs",
		Long: `View the audit log of earlier runs.

Every resource created, reused or attached, every rejected line and every
launched instance is logged with:
  - Timestamp and run id
  - Tenant and configuration line
  - Operation, resource and action
  - Success/failure status

Examples:
  conexus audit list --tenant 0b3f6c2e9a7d4e51b8c2f0a1d9e8c7b6
  conexus audit list --last 24h
  conexus audit list --failures`,
	}
	cmd.AddCommand(newAuditListCmd(app))
	return cmd
}

func newAuditListCmd(app *App) *cobra.Command {
	var (
		tenant     string
		runID      string
		last       string
		limit      int
		failures   bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := audit.Filter{
				Tenant:      tenant,
				RunID:       runID,
				Limit:       limit,
				FailureOnly: failures,
			}

			if last != "" {
				duration, err := time.ParseDuration(last)
				if err != nil {
					return fmt.Errorf("invalid duration: %s", last)
				}
				filter.StartTime = time.Now().Add(-duration)
			}

			events, err := audit.QueryFile(app.opts.AuditLog, filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			if jsonOutput {
				return json.NewEncoder(app.out).Encode(events)
			}

			if len(events) == 0 {
				fmt.Fprintln(app.out, "No audit events found")
				return nil
			}

			t := cli.NewTable("TIMESTAMP", "TENANT", "LINE", "OPERATION", "RESOURCE", "ACTION").WithWriter(app.out)
			for _, event := range events {
				line := ""
				if event.Line > 0 {
					line = strconv.Itoa(event.Line)
				}
				t.Row(
					event.Timestamp.Format("2006-01-02 15:04:05"),
					event.Tenant,
					line,
					event.Operation,
					event.Resource,
					colorAction(event),
				)
			}
			t.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Filter by tenant id")
	cmd.Flags().StringVar(&runID, "run", "", "Filter by run id")
	cmd.Flags().StringVar(&last, "last", "", "Show events from last duration (e.g., 24h, 30m)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum events to show")
	cmd.Flags().BoolVar(&failures, "failures", false, "Show only rejected or failed items")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func colorAction(e *audit.Event) string {
	switch {
	case !e.Success:
		return cli.Red(string(e.Action))
	case e.Action == audit.ActionCreated || e.Action == audit.ActionLaunched:
		return cli.Green(string(e.Action))
	default:
		return string(e.Action)
	}
}
