// Conexus - multi-tenant network topology provisioner
//
// Reads a line-oriented configuration file, one tenant per line, and for
// every valid line builds the tenant's DMZ, overlay and transit networks,
// the routers joining them, and then launches the requested instances.
// Every run is idempotent: resources found by name are reused, so a
// partially failed run is completed by running it again.
//
// Examples:
//
//	conexus run -c local.conf                    # Provision every line
//	conexus validate -c local.conf               # Check the file only
//	conexus names 2001                           # Resource names for VLAN 2001
//	conexus audit list --tenant <id> --last 24h  # What earlier runs did
//	conexus --backend lab lab seed-tenant <id> <name>
//
// Credentials come from flags or the usual OS_* environment variables.
// Persistent defaults are kept with: conexus settings set <key> <value>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/cli"
	"github.com/newtron-network/conexus/pkg/settings"
	"github.com/newtron-network/conexus/pkg/util"
	"github.com/newtron-network/conexus/pkg/version"
)

// errIncomplete is returned when a run finished but some line was rejected
// or failed. The summary has already been printed.
var errIncomplete = errors.New("run completed with errors")

// App holds the state shared by all commands of one invocation.
type App struct {
	v    *viper.Viper
	opts Options
	out  io.Writer

	// connect opens the cloud backend selected by opts.
	connect func(ctx context.Context, opts Options) (backend.Cloud, func(), error)
}

func newApp() *App {
	return &App{
		v:       viper.New(),
		out:     os.Stdout,
		connect: connectBackend,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(newApp()).ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errIncomplete) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:               "conexus",
		Short:             "Multi-tenant network topology provisioner",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		Long: `Conexus provisions per-tenant network topologies from a configuration file.

Each line names a tenant, an image and flavor, an instance count, the
overlay subnet, the transit VLAN and subnet, and the DMZ subnet. Lines are
processed in order; a bad line is reported and skipped.

  conexus run -c local.conf`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}
	root.SetOut(app.out)

	addGlobalFlags(root.PersistentFlags())

	root.AddGroup(
		&cobra.Group{ID: "provision", Title: "Provisioning:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{
		newRunCmd(app), newValidateCmd(app), newNamesCmd(app), newReportCmd(app),
	} {
		cmd.GroupID = "provision"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newAuditCmd(app), newSettingsCmd(app), newLabCmd(app), newVersionCmd(app),
	} {
		cmd.GroupID = "meta"
		root.AddCommand(cmd)
	}
	return root
}

// setup loads settings, binds flags and environment into viper and applies
// the logging options. It runs before every command.
func (a *App) setup(cmd *cobra.Command) error {
	s, err := settings.Load()
	if err != nil {
		util.Warnf("Could not load settings: %v", err)
		s = &settings.Settings{}
	}

	if err := bindConfig(a.v, cmd.Root().PersistentFlags(), s); err != nil {
		return err
	}
	opts, err := resolveOptions(a.v)
	if err != nil {
		return err
	}
	a.opts = opts

	if opts.Debug {
		util.SetLogLevel("debug")
	} else {
		util.SetLogLevel("info")
	}
	if opts.LogFormat == logFormatJSON {
		util.SetJSONFormat()
	}
	if opts.NoColor {
		cli.SetColor(false)
	}
	return nil
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(app.out, "conexus")
		},
	}
}

func printVersion(w io.Writer, tool string) {
	if version.Version == "dev" {
		fmt.Fprintf(w, "%s dev build (version not set at link time)\n", tool)
	} else {
		fmt.Fprintf(w, "%s %s\n", tool, version.Info())
	}
}
