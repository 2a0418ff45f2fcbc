package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/newtron-network/conexus/pkg/audit"
	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/batch"
	"github.com/newtron-network/conexus/pkg/cli"
	"github.com/newtron-network/conexus/pkg/config"
	"github.com/newtron-network/conexus/pkg/fleet"
	"github.com/newtron-network/conexus/pkg/topology"
	"github.com/newtron-network/conexus/pkg/util"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Provision every line of the configuration file",
		Long: `Provision every line of the configuration file.

For each valid line the tenant's topology is resolved or created and the
requested instances are launched. Rejected and failed lines are reported
in the summary; the exit status is 1 if there were any.

Examples:
  conexus run -c local.conf
  conexus run -c local.conf --report run.yaml
  conexus run --backend lab -c lab.conf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runBatch(cmd.Context(), false)
		},
	}
}

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file without provisioning",
		Long: `Parse and validate every line of the configuration file.

Tenants are looked up in the identity service, so credentials are still
required. Nothing is created.

Examples:
  conexus validate -c local.conf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runBatch(cmd.Context(), true)
		},
	}
}

func (a *App) runBatch(ctx context.Context, validateOnly bool) error {
	if err := requireCredentials(a.opts); err != nil {
		return err
	}
	entries, err := config.ParseFile(a.opts.ConfigPath)
	if err != nil {
		return err
	}

	cloud, release, err := a.connect(ctx, a.opts)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", a.opts.Backend, err)
	}
	defer release()

	runner, closeAudit := a.newRunner(cloud, validateOnly)
	defer closeAudit()

	summary, runErr := runner.Run(ctx, entries)
	if summary != nil {
		summary.Config = a.opts.ConfigPath
		if validateOnly {
			printValidation(a.out, summary)
		} else {
			printSummary(a.out, summary)
		}
		if a.opts.ReportPath != "" {
			if err := batch.WriteReport(a.opts.ReportPath, summary); err != nil {
				util.Warnf("%v", err)
			}
		}
	}
	if runErr != nil {
		return runErr
	}
	if !summary.OK() {
		return errIncomplete
	}
	return nil
}

// newRunner assembles the pipeline for one run. The returned function
// closes the audit log.
func (a *App) newRunner(cloud backend.Cloud, validateOnly bool) (*batch.Runner, func()) {
	runID := uuid.NewString()
	log := util.WithField("run_id", runID)

	var logger audit.Logger
	closeAudit := func() {}
	fl, err := audit.NewFileLogger(a.opts.AuditLog, audit.DefaultRotation)
	if err != nil {
		log.Warnf("Could not initialize audit logging: %v", err)
	} else {
		logger = fl
		closeAudit = func() { fl.Close() }
	}
	recorder := audit.NewRecorder(logger, runID, auditUser(a.opts))

	validator := config.NewValidator(cloud)
	validator.Log = log.WithField("component", "validator")

	prov := topology.NewProvisioner(cloud)
	prov.Naming = a.opts.Naming
	prov.Log = log.WithField("component", "provisioner")
	prov.Audit = recorder

	launcher := fleet.NewLauncher(cloud)
	launcher.ReadyTimeout = a.opts.ReadyTimeout
	launcher.PollInterval = a.opts.PollInterval
	launcher.Log = log.WithField("component", "fleet")
	launcher.Audit = recorder

	return &batch.Runner{
		Validator:    validator,
		Provisioner:  prov,
		Launcher:     launcher,
		Log:          log.WithField("component", "batch"),
		Audit:        recorder,
		ValidateOnly: validateOnly,
	}, closeAudit
}

func colorStatus(s batch.Status) string {
	switch s {
	case batch.StatusProvisioned, batch.StatusValid:
		return cli.Green(string(s))
	case batch.StatusRejected:
		return cli.Yellow(string(s))
	default:
		return cli.Red(string(s))
	}
}

func printSummary(w io.Writer, s *batch.Summary) {
	fmt.Fprintln(w)
	t := cli.NewTable("LINE", "TENANT", "STATUS", "DETAIL").WithWriter(w)
	for _, l := range s.Lines {
		status := colorStatus(l.Status)
		if l.Status == batch.StatusProvisioned && l.FailedInstances() > 0 {
			status = cli.Yellow(string(l.Status))
		}
		t.Row(strconv.Itoa(l.Line), l.TenantID, status, l.Detail())
	}
	t.Flush()

	fmt.Fprintf(w, "\n%d provisioned, %d rejected, %d failed\n",
		s.Count(batch.StatusProvisioned), s.Count(batch.StatusRejected), s.Count(batch.StatusFailed))
	if s.Cancelled {
		fmt.Fprintln(w, cli.Yellow("Run cancelled; remaining lines were not processed."))
	}
}

func printValidation(w io.Writer, s *batch.Summary) {
	for _, l := range s.Lines {
		label := fmt.Sprintf("line %d", l.Line)
		if l.TenantName != "" {
			label += " (" + l.TenantName + ")"
		}
		detail := ""
		if d := l.Detail(); d != "" && l.Status != batch.StatusValid {
			detail = "  " + cli.Dim(d)
		}
		fmt.Fprintf(w, "%s %s%s\n", cli.DotPad(label, 40), colorStatus(l.Status), detail)
	}
	fmt.Fprintf(w, "\n%d valid, %d rejected\n", s.Count(batch.StatusValid), s.Count(batch.StatusRejected))
}
