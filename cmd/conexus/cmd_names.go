package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/conexus/pkg/cli"
	"github.com/newtron-network/conexus/pkg/config"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

func newNamesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "names <vlan> [transit-subnet]",
		Short: "Show the resource names derived from a transit VLAN",
		Long: `Show the name of every resource provisioned for a transit VLAN under the
selected naming scheme. With a transit subnet, also show the transit host
address used as the subnet's allocation pool.

Examples:
  conexus names 2001
  conexus names 2001 10.20.1.0/24 --naming legacy`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vlan, err := strconv.Atoi(args[0])
			if err != nil || vlan < config.MinVLAN || vlan > config.MaxVLAN {
				return fmt.Errorf("%w: vlan %q must be an integer in %d..%d",
					util.ErrInvalidConfig, args[0], config.MinVLAN, config.MaxVLAN)
			}

			t := cli.NewTable("KIND", "CLASS", "NAME").WithWriter(app.out)
			for _, kind := range model.AllKinds {
				t.Row(string(kind), string(kind.Class()), util.DeriveResourceName(app.opts.Naming, kind, vlan))
			}
			t.Flush()

			if len(args) == 2 {
				host, err := util.TransitHostAddress(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(app.out, "\nTransit host: %s\n", host)
			}
			return nil
		},
	}
}
