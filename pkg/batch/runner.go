// Package batch runs a configuration file end to end: every line is
// validated, its topology provisioned and its fleet launched before the
// next line is read.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/audit"
	"github.com/newtron-network/conexus/pkg/config"
	"github.com/newtron-network/conexus/pkg/fleet"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/topology"
	"github.com/newtron-network/conexus/pkg/util"
)

// Status is the outcome of one configuration line.
type Status string

const (
	StatusProvisioned Status = "provisioned"
	StatusValid       Status = "valid" // validate-only runs
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
)

// InstanceResult is the outcome of one launched instance.
type InstanceResult struct {
	Name   string `yaml:"name"`
	ID     string `yaml:"id,omitempty"`
	Status string `yaml:"status,omitempty"`
	Error  string `yaml:"error,omitempty"`
	Failed bool   `yaml:"failed,omitempty"`
}

// LineResult is the outcome of one configuration line.
type LineResult struct {
	Line       int              `yaml:"line"`
	TenantID   string           `yaml:"tenant_id,omitempty"`
	TenantName string           `yaml:"tenant_name,omitempty"`
	VLAN       int              `yaml:"vlan,omitempty"`
	Status     Status           `yaml:"status"`
	Reasons    []string         `yaml:"reasons,omitempty"`
	Error      string           `yaml:"error,omitempty"`
	Step       int              `yaml:"failed_step,omitempty"`
	Topology   *model.Topology  `yaml:"topology,omitempty"`
	Instances  []InstanceResult `yaml:"instances,omitempty"`
}

// FailedInstances counts the instances that could not be launched or
// entered ERROR.
func (r LineResult) FailedInstances() int {
	n := 0
	for _, inst := range r.Instances {
		if inst.Failed {
			n++
		}
	}
	return n
}

// Detail is a one-line description of the result for tables and logs.
func (r LineResult) Detail() string {
	switch r.Status {
	case StatusRejected:
		return strings.Join(r.Reasons, "; ")
	case StatusFailed:
		return r.Error
	case StatusProvisioned:
		detail := fmt.Sprintf("%d instance(s)", len(r.Instances))
		if n := r.FailedInstances(); n > 0 {
			detail += fmt.Sprintf(", %d failed", n)
		}
		return detail
	}
	return ""
}

// Summary collects the results of a run in line order.
type Summary struct {
	RunID     string       `yaml:"run_id,omitempty"`
	Config    string       `yaml:"config,omitempty"`
	Started   time.Time    `yaml:"started"`
	Finished  time.Time    `yaml:"finished"`
	Cancelled bool         `yaml:"cancelled,omitempty"`
	Lines     []LineResult `yaml:"lines"`
}

// Count returns the number of lines with status s.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, l := range s.Lines {
		if l.Status == status {
			n++
		}
	}
	return n
}

// OK reports whether every line was accepted and every instance launched.
func (s *Summary) OK() bool {
	if s.Cancelled {
		return false
	}
	for _, l := range s.Lines {
		if l.Status == StatusRejected || l.Status == StatusFailed || l.FailedInstances() > 0 {
			return false
		}
	}
	return true
}

// Runner drives the validator, provisioner and launcher over a file.
type Runner struct {
	Validator   *config.Validator
	Provisioner *topology.Provisioner
	Launcher    *fleet.Launcher
	Log         *logrus.Entry
	Audit       *audit.Recorder

	// ValidateOnly stops after validation; nothing is provisioned.
	ValidateOnly bool
}

// RunFile parses the file at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*Summary, error) {
	entries, err := config.ParseFile(path)
	if err != nil {
		return nil, err
	}
	summary, err := r.Run(ctx, entries)
	if summary != nil {
		summary.Config = path
	}
	return summary, err
}

// Run processes entries strictly in order. A rejected line or a failed
// topology build is recorded and the run moves on to the next line.
//
// The returned error is non-nil only when the run could not continue at
// all: the tenant listing failed or ctx was cancelled. The summary then
// holds the lines processed so far.
func (r *Runner) Run(ctx context.Context, entries []config.RawEntry) (*Summary, error) {
	log := util.EntryOr(r.Log, "batch")
	summary := &Summary{RunID: r.Audit.RunID(), Started: time.Now()}
	defer func() { summary.Finished = time.Now() }()

	for i, raw := range entries {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			log.Warnf("Run cancelled before line %d; %d line(s) not processed", raw.Line, len(entries)-i)
			return summary, err
		}

		result, err := r.runLine(ctx, raw)
		summary.Lines = append(summary.Lines, result)
		if err != nil {
			log.Errorf("Run stopped at line %d; %d remaining line(s) not processed", raw.Line, len(entries)-i-1)
			return summary, err
		}
	}

	log.Infof("Processed %d line(s): %d provisioned, %d rejected, %d failed",
		len(summary.Lines), summary.Count(StatusProvisioned),
		summary.Count(StatusRejected), summary.Count(StatusFailed))
	return summary, nil
}

func (r *Runner) runLine(ctx context.Context, raw config.RawEntry) (LineResult, error) {
	log := util.WithLine(util.EntryOr(r.Log, "batch"), raw.Line)
	result := LineResult{Line: raw.Line, TenantID: raw.Field(config.FieldTenantID)}

	entry, err := r.Validator.Validate(ctx, raw)
	if err != nil {
		if !errors.Is(err, util.ErrValidationFailed) {
			result.Status = StatusFailed
			result.Error = err.Error()
			log.Errorf("Cannot validate line: %v", err)
			return result, err
		}
		result.Status = StatusRejected
		result.Reasons = config.Reasons(err)
		log.Warnf("Skipping line: %s", strings.Join(result.Reasons, "; "))
		r.Audit.Record(audit.NewEvent(result.TenantID, audit.OpValidate, audit.ActionRejected).
			WithLine(raw.Line).WithError(err))
		return result, nil
	}
	result.TenantID = entry.TenantID
	result.TenantName = entry.TenantName
	result.VLAN = entry.TransitVLAN
	log = util.WithTenant(log, entry.TenantID)

	if r.ValidateOnly {
		result.Status = StatusValid
		return result, nil
	}

	topo, err := r.Provisioner.Provision(ctx, entry)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		var stepErr *util.StepError
		if errors.As(err, &stepErr) {
			result.Step = stepErr.Step
		}
		log.Errorf("Provisioning failed: %v", err)
		return result, nil
	}
	result.Status = StatusProvisioned
	result.Topology = &topo

	if r.Launcher == nil || entry.VMCount == 0 {
		return result, nil
	}
	instances := r.Launcher.Launch(ctx, fleet.Request{
		TenantID:         entry.TenantID,
		Line:             entry.Line,
		ImageID:          entry.ImageID,
		FlavorID:         entry.FlavorID,
		Count:            entry.VMCount,
		DMZNetworkID:     topo.DMZNetworkID,
		OverlayNetworkID: topo.OverlayNetworkID,
	})
	for _, inst := range instances {
		ir := InstanceResult{Name: inst.Name, ID: inst.ID, Status: inst.Status, Failed: inst.Failed()}
		if inst.Err != nil {
			ir.Error = inst.Err.Error()
		}
		result.Instances = append(result.Instances, ir)
	}
	return result, nil
}
