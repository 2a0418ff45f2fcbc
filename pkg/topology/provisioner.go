// Package topology builds the per-tenant network topology: the DMZ router,
// network and subnet, the overlay and transit networks with their subnets,
// the router joining them, and the gateway and interface attachments.
//
// Every resource is identified by a name derived from the transit VLAN and
// is resolved before it is created, so running the same entry twice
// creates nothing the second time. An existing resource is reused as-is;
// its attributes are not compared with the entry.
package topology

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/audit"
	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

// Provisioning steps, in execution order.
const (
	StepDMZRouter = iota + 1
	StepDMZNetwork
	StepDMZSubnet
	StepDMZGateway
	StepRouter
	StepOverlayNetwork
	StepOverlaySubnet
	StepTransitNetwork
	StepTransitSubnet
	StepTransitGateway
	StepOverlayInterface
)

// ProviderNetworkType is the provider network type of transit networks.
const ProviderNetworkType = "vlan"

// Provisioner creates or reuses the topology of one ConfigEntry.
type Provisioner struct {
	Net    backend.Networking
	Naming util.NamingScheme
	Log    *logrus.Entry
	Audit  *audit.Recorder
}

// NewProvisioner returns a provisioner using the distinct naming scheme.
func NewProvisioner(net backend.Networking) *Provisioner {
	return &Provisioner{Net: net, Naming: util.NamingDistinct}
}

// build carries the state of one Provision call.
type build struct {
	p        *Provisioner
	entry    model.ConfigEntry
	resolver *Resolver
	log      *logrus.Entry
}

// Provision resolves or creates every resource of the entry's topology in
// dependency order and returns their ids. The DMZ and overlay network ids
// are the ones instances attach to.
//
// The first failing step aborts the build and is returned as a
// *util.StepError. Resources created by earlier steps are left in place;
// the next run resolves and reuses them. The only tolerated failure is
// the overlay subnet already being attached to the router.
func (p *Provisioner) Provision(ctx context.Context, entry model.ConfigEntry) (model.Topology, error) {
	log := util.WithTenant(util.EntryOr(p.Log, "provisioner"), entry.TenantID).
		WithField("vlan", entry.TransitVLAN)
	b := &build{
		p:        p,
		entry:    entry,
		resolver: NewResolver(p.Net, log),
		log:      log,
	}
	return b.run(ctx)
}

func (b *build) run(ctx context.Context) (model.Topology, error) {
	var (
		topo model.Topology
		err  error
	)
	e, net, noSNAT := b.entry, b.p.Net, model.Bool(false)

	// DMZ
	topo.DMZRouterID, err = b.ensure(ctx, StepDMZRouter, model.KindDMZRouter,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateRouter(ctx, model.RouterSpec{Name: name, TenantID: e.TenantID})
		})
	if err != nil {
		return topo, err
	}

	topo.DMZNetworkID, err = b.ensure(ctx, StepDMZNetwork, model.KindDMZNetwork,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateNetwork(ctx, model.NetworkSpec{Name: name, TenantID: e.TenantID, External: true})
		})
	if err != nil {
		return topo, err
	}

	topo.DMZSubnetID, err = b.ensure(ctx, StepDMZSubnet, model.KindDMZSubnet,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateSubnet(ctx, model.SubnetSpec{
				Name:      name,
				TenantID:  e.TenantID,
				NetworkID: topo.DMZNetworkID,
				CIDR:      e.DMZSubnet,
			})
		})
	if err != nil {
		return topo, err
	}

	if err := b.gateway(ctx, StepDMZGateway, model.KindDMZRouter, topo.DMZRouterID,
		model.KindDMZNetwork, model.GatewaySpec{NetworkID: topo.DMZNetworkID, EnableSNAT: noSNAT},
		model.KindDMZSubnet, topo.DMZSubnetID); err != nil {
		return topo, err
	}

	// Overlay and transit
	topo.RouterID, err = b.ensure(ctx, StepRouter, model.KindRouter,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateRouter(ctx, model.RouterSpec{Name: name, TenantID: e.TenantID})
		})
	if err != nil {
		return topo, err
	}

	topo.OverlayNetworkID, err = b.ensure(ctx, StepOverlayNetwork, model.KindOverlayNetwork,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateNetwork(ctx, model.NetworkSpec{Name: name, TenantID: e.TenantID})
		})
	if err != nil {
		return topo, err
	}

	topo.OverlaySubnetID, err = b.ensure(ctx, StepOverlaySubnet, model.KindOverlaySubnet,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateSubnet(ctx, model.SubnetSpec{
				Name:      name,
				TenantID:  e.TenantID,
				NetworkID: topo.OverlayNetworkID,
				CIDR:      e.OverlaySubnet,
			})
		})
	if err != nil {
		return topo, err
	}

	topo.TransitNetworkID, err = b.ensure(ctx, StepTransitNetwork, model.KindTransitNetwork,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateNetwork(ctx, model.NetworkSpec{
				Name:     name,
				TenantID: e.TenantID,
				External: true,
				Provider: &model.ProviderSegment{
					NetworkType:     ProviderNetworkType,
					PhysicalNetwork: e.TransitVLANLabel,
					SegmentationID:  e.TransitVLAN,
				},
			})
		})
	if err != nil {
		return topo, err
	}

	transitName := b.name(model.KindTransitSubnet)
	topo.TransitHost, err = util.TransitHostAddress(e.TransitSubnet)
	if err != nil {
		return topo, util.NewStepError(StepTransitSubnet, "transit host", transitName, err)
	}
	topo.TransitSubnetID, err = b.ensure(ctx, StepTransitSubnet, model.KindTransitSubnet,
		func(ctx context.Context, name string) (model.Resource, error) {
			return net.CreateSubnet(ctx, model.SubnetSpec{
				Name:       name,
				TenantID:   e.TenantID,
				NetworkID:  topo.TransitNetworkID,
				CIDR:       e.TransitSubnet,
				EnableDHCP: model.Bool(false),
				AllocationPools: []model.AllocationPool{
					{Start: topo.TransitHost, End: topo.TransitHost},
				},
			})
		})
	if err != nil {
		return topo, err
	}

	if err := b.gateway(ctx, StepTransitGateway, model.KindRouter, topo.RouterID,
		model.KindTransitNetwork, model.GatewaySpec{NetworkID: topo.TransitNetworkID},
		model.KindTransitSubnet, topo.TransitSubnetID); err != nil {
		return topo, err
	}

	if err := b.attachOverlay(ctx, topo); err != nil {
		return topo, err
	}

	b.log.Infof("Topology ready: dmz network %s, overlay network %s", topo.DMZNetworkID, topo.OverlayNetworkID)
	return topo, nil
}

func (b *build) name(kind model.Kind) string {
	return util.DeriveResourceName(b.p.Naming, kind, b.entry.TransitVLAN)
}

func describe(kind model.Kind) string {
	return strings.ReplaceAll(string(kind), "-", " ")
}

// ensure resolves the named resource of kind, creating it when absent.
func (b *build) ensure(ctx context.Context, step int, kind model.Kind,
	create func(ctx context.Context, name string) (model.Resource, error)) (string, error) {
	name := b.name(kind)
	log := b.log.WithField("kind", kind)

	id, err := b.resolver.Resolve(ctx, kind.Class(), name, b.entry.TenantID)
	if err == nil {
		log.Infof("Reusing existing %s %s (%s)", describe(kind), name, id)
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpProvision, audit.ActionReused).
			WithResource(kind, name, id))
		return id, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpProvision, audit.ActionFailed).
			WithResource(kind, name, "").WithError(err))
		return "", util.NewStepError(step, "resolve "+describe(kind), name, err)
	}

	log.Infof("Creating non-existent %s %s", describe(kind), name)
	start := time.Now()
	res, err := create(ctx, name)
	if err != nil {
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpProvision, audit.ActionFailed).
			WithResource(kind, name, "").WithError(err).WithDuration(time.Since(start)))
		return "", util.NewStepError(step, "create "+describe(kind), name, err)
	}
	if res.TenantID == "" {
		res.TenantID = b.entry.TenantID
	}
	b.resolver.Remember(kind.Class(), res)
	b.record(audit.NewEvent(b.entry.TenantID, audit.OpProvision, audit.ActionCreated).
		WithResource(kind, name, res.ID).WithDuration(time.Since(start)))
	return res.ID, nil
}

// gateway binds router (of routerKind) to the network of gw. The router,
// the network and the network's subnet must all have been resolved by
// earlier steps.
func (b *build) gateway(ctx context.Context, step int, routerKind model.Kind, routerID string,
	netKind model.Kind, gw model.GatewaySpec, subnetKind model.Kind, subnetID string) error {
	routerName := b.name(routerKind)
	owner := "gateway of " + routerName

	var missing error
	switch {
	case routerID == "":
		missing = util.NewDependencyError(owner, describe(routerKind), routerName)
	case gw.NetworkID == "":
		missing = util.NewDependencyError(owner, describe(netKind), b.name(netKind))
	case subnetID == "":
		missing = util.NewDependencyError(owner, describe(subnetKind), b.name(subnetKind))
	}
	if missing != nil {
		return util.NewStepError(step, "gateway", routerName, missing)
	}

	if err := b.p.Net.SetRouterGateway(ctx, routerID, gw); err != nil {
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpAttach, audit.ActionFailed).
			WithResource(routerKind, routerName, routerID).WithError(err))
		return util.NewStepError(step, "gateway", routerName, err)
	}
	b.log.WithField("kind", routerKind).Infof("Set gateway of %s %s to %s %s",
		describe(routerKind), routerName, describe(netKind), b.name(netKind))
	b.record(audit.NewEvent(b.entry.TenantID, audit.OpAttach, audit.ActionAttached).
		WithResource(routerKind, routerName, routerID))
	return nil
}

// attachOverlay adds the overlay subnet as an interface of the router. A
// router that already has a port on the subnet is not an error.
func (b *build) attachOverlay(ctx context.Context, topo model.Topology) error {
	routerName := b.name(model.KindRouter)
	subnetName := b.name(model.KindOverlaySubnet)
	if topo.RouterID == "" || topo.OverlaySubnetID == "" {
		return util.NewStepError(StepOverlayInterface, "interface", routerName,
			util.NewDependencyError("interface of "+routerName, "overlay subnet", subnetName))
	}

	log := b.log.WithField("kind", model.KindRouter)
	err := b.p.Net.AddRouterInterface(ctx, topo.RouterID, topo.OverlaySubnetID)
	switch {
	case err == nil:
		log.Infof("Attached overlay subnet %s to router %s", subnetName, routerName)
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpAttach, audit.ActionAttached).
			WithResource(model.KindOverlaySubnet, subnetName, topo.OverlaySubnetID))
		return nil
	case errors.Is(err, util.ErrAlreadyExists):
		log.Debugf("Overlay subnet %s already attached to router %s", subnetName, routerName)
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpAttach, audit.ActionReused).
			WithResource(model.KindOverlaySubnet, subnetName, topo.OverlaySubnetID))
		return nil
	default:
		b.record(audit.NewEvent(b.entry.TenantID, audit.OpAttach, audit.ActionFailed).
			WithResource(model.KindOverlaySubnet, subnetName, topo.OverlaySubnetID).WithError(err))
		return util.NewStepError(StepOverlayInterface, "interface", routerName, err)
	}
}

func (b *build) record(e *audit.Event) {
	b.p.Audit.Record(e.WithLine(b.entry.Line))
}
