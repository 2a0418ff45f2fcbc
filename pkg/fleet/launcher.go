// Package fleet launches the instances of one configuration entry onto its
// DMZ and overlay networks.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v3"
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/audit"
	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

// Defaults for Launcher fields left zero.
const (
	DefaultNamePrefix   = "PaaS-VM-"
	DefaultReadyTimeout = 5 * time.Minute
	DefaultPollInterval = 5 * time.Second
)

var (
	// ErrServerFailed is returned for an instance the backend put in ERROR.
	ErrServerFailed = errors.New("instance entered ERROR state")
	// ErrNotReady is returned for an instance still building at the deadline.
	ErrNotReady = errors.New("instance not active before timeout")
)

// Request is one fleet to launch.
type Request struct {
	TenantID         string
	Line             int
	ImageID          string
	FlavorID         string
	Count            int
	DMZNetworkID     string
	OverlayNetworkID string
}

// Instance is the outcome of launching one server.
type Instance struct {
	Name   string `json:"name" yaml:"name"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
	Err    error  `json:"-" yaml:"-"`
}

// Failed reports whether the instance could not be created or errored.
func (i Instance) Failed() bool {
	return i.Err != nil && !errors.Is(i.Err, ErrNotReady)
}

// Launcher creates fleets one instance at a time.
type Launcher struct {
	Compute      backend.Compute
	NamePrefix   string
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Log          *logrus.Entry
	Audit        *audit.Recorder
}

// NewLauncher returns a launcher with the default name prefix and poll
// settings.
func NewLauncher(compute backend.Compute) *Launcher {
	return &Launcher{
		Compute:      compute,
		NamePrefix:   DefaultNamePrefix,
		ReadyTimeout: DefaultReadyTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Launch creates req.Count instances named <prefix>0 .. <prefix>N-1, each
// attached to the DMZ network and then the overlay network. After each
// create it polls the instance until it is ACTIVE, enters ERROR, or the
// ready timeout passes. Failures are logged and recorded per instance;
// the remaining instances are still launched. Only a cancelled context
// stops the fleet early.
func (l *Launcher) Launch(ctx context.Context, req Request) []Instance {
	log := util.WithTenant(util.EntryOr(l.Log, "fleet"), req.TenantID)
	prefix := l.NamePrefix
	if prefix == "" {
		prefix = DefaultNamePrefix
	}

	instances := make([]Instance, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		if ctx.Err() != nil {
			log.Warnf("Fleet stopped after %d of %d instances: %v", i, req.Count, ctx.Err())
			break
		}
		inst := l.launchOne(ctx, log, req, util.DeriveServerName(prefix, i))
		instances = append(instances, inst)
	}
	return instances
}

func (l *Launcher) launchOne(ctx context.Context, log *logrus.Entry, req Request, name string) Instance {
	log = log.WithField("server", name)
	inst := Instance{Name: name}
	start := time.Now()

	server, err := l.Compute.CreateServer(ctx, model.ServerSpec{
		Name:       name,
		ImageID:    req.ImageID,
		FlavorID:   req.FlavorID,
		NetworkIDs: []string{req.DMZNetworkID, req.OverlayNetworkID},
	})
	if err != nil {
		inst.Err = fmt.Errorf("creating instance %s: %w", name, err)
		log.Errorf("Could not create instance: %v", err)
		l.record(req, inst, audit.ActionFailed, start)
		return inst
	}
	inst.ID = server.ID
	inst.Status = server.Status
	log.Infof("Created instance %s (%s)", name, server.ID)

	inst.Status, inst.Err = l.waitActive(ctx, server)
	switch {
	case inst.Err == nil:
		log.Infof("Instance %s is %s", name, inst.Status)
		l.record(req, inst, audit.ActionLaunched, start)
	case errors.Is(inst.Err, ErrNotReady):
		log.Warnf("Instance %s still %s after %s", name, inst.Status, l.readyTimeout())
		l.record(req, inst, audit.ActionLaunched, start)
	default:
		log.Errorf("Instance %s: %v", name, inst.Err)
		l.record(req, inst, audit.ActionFailed, start)
	}
	return inst
}

// waitActive polls the instance status at PollInterval until it is ACTIVE
// or ERROR, for at most ReadyTimeout. It returns the last status seen.
func (l *Launcher) waitActive(ctx context.Context, server model.Server) (string, error) {
	status := server.Status
	interval := l.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := uint(l.readyTimeout()/interval) + 1

	errBuilding := errors.New("building")
	err := retry.Do(
		func() error {
			s, err := l.Compute.GetServer(ctx, server.ID)
			if err != nil {
				return err
			}
			status = s.Status
			switch s.Status {
			case model.ServerStatusActive:
				return nil
			case model.ServerStatusError:
				return ErrServerFailed
			default:
				return errBuilding
			}
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, ErrServerFailed) }),
		retry.LastErrorOnly(true),
	)
	switch {
	case err == nil:
		return status, nil
	case errors.Is(err, ErrServerFailed):
		return status, ErrServerFailed
	case errors.Is(err, errBuilding):
		return status, ErrNotReady
	case ctx.Err() != nil:
		return status, ctx.Err()
	default:
		return status, fmt.Errorf("polling instance %s: %w", server.Name, err)
	}
}

func (l *Launcher) readyTimeout() time.Duration {
	if l.ReadyTimeout <= 0 {
		return DefaultReadyTimeout
	}
	return l.ReadyTimeout
}

func (l *Launcher) record(req Request, inst Instance, action audit.Action, start time.Time) {
	e := audit.NewEvent(req.TenantID, audit.OpLaunch, action).
		WithResource(model.KindServer, inst.Name, inst.ID).
		WithLine(req.Line).
		WithDuration(time.Since(start))
	if inst.Err != nil {
		e.WithError(inst.Err)
	}
	l.Audit.Record(e)
}
