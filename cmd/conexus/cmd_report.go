package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/conexus/pkg/batch"
	"github.com/newtron-network/conexus/pkg/cli"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect saved run reports",
		Long: `Inspect a YAML report written by 'conexus run --report'.

Examples:
  conexus report show run.yaml`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <file>",
		Short: "Print the summary of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := batch.ReadReport(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Run %s on %s (%s to %s)\n",
				cli.Bold(summary.RunID), summary.Config,
				summary.Started.Format("2006-01-02 15:04:05"),
				summary.Finished.Format("15:04:05"))
			printSummary(app.out, summary)
			return nil
		},
	})
	return cmd
}
