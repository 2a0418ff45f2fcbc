package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/conexus/pkg/backend/labdb"
	"github.com/newtron-network/conexus/pkg/cli"
	"github.com/newtron-network/conexus/pkg/settings"
	"github.com/newtron-network/conexus/pkg/util"
)

func newLabCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Manage the Redis lab backend",
		Long: `Manage the Redis-backed lab cloud used with --backend lab.

The lab backend stores tenants, routers, networks, subnets, router
interfaces and servers as Redis hashes, so a configuration file can be
run end to end without OpenStack.

Examples:
  conexus lab seed-tenant 0b3f6c2e9a7d4e51b8c2f0a1d9e8c7b6 acme
  conexus lab get ROUTER <id>`,
	}
	cmd.AddCommand(newLabSeedTenantCmd(app), newLabGetCmd(app))
	return cmd
}

func (a *App) withLab(ctx context.Context, fn func(store *labdb.Store) error) error {
	store := labdb.New(a.opts.LabAddr, 0)
	defer store.Close()
	if err := store.Connect(ctx); err != nil {
		return err
	}
	return fn(store)
}

func newLabSeedTenantCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-tenant <id> <name>",
		Short: "Create a tenant in the lab identity table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withLab(cmd.Context(), func(store *labdb.Store) error {
				if err := store.SeedTenant(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(app.out, "Tenant %s (%s) seeded in %s\n", args[0], args[1], app.opts.LabAddr)
				return nil
			})
		},
	}
}

func newLabGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Show one lab object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := strings.ToUpper(args[0])
			return app.withLab(cmd.Context(), func(store *labdb.Store) error {
				fields, err := store.Get(cmd.Context(), table, args[1])
				if err != nil {
					return err
				}
				if fields == nil {
					return fmt.Errorf("%s|%s: %w", table, args[1], util.ErrNotFound)
				}
				t := cli.NewTable("FIELD", "VALUE").WithWriter(app.out)
				for _, row := range labRows(fields) {
					t.Row(row[0], row[1])
				}
				t.Flush()
				return nil
			})
		},
	}
}

// labRows orders the fields of a lab object for display. Allocation pools
// are expanded to one row per range.
func labRows(fields map[string]string) [][2]string {
	var rows [][2]string
	for _, k := range settings.SortedKeys(fields) {
		if k != labdb.FieldAllocationPools {
			rows = append(rows, [2]string{k, fields[k]})
			continue
		}
		for _, p := range labdb.ParsePools(fields[k]) {
			rows = append(rows, [2]string{"allocation_pool", p.Start + " - " + p.End})
		}
	}
	return rows
}
