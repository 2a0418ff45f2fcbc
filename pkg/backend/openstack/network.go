package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/external"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/provider"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/subnets"

	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

func (c *Client) ListRouters(ctx context.Context) ([]model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := routers.List(c.network, routers.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("listing routers: %w", err)
	}
	list, err := routers.ExtractRouters(pages)
	if err != nil {
		return nil, fmt.Errorf("decoding routers: %w", err)
	}
	out := make([]model.Resource, 0, len(list))
	for _, r := range list {
		out = append(out, model.Resource{ID: r.ID, Name: r.Name, TenantID: tenantOf(r.TenantID, r.ProjectID)})
	}
	return out, nil
}

func (c *Client) ListNetworks(ctx context.Context) ([]model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := networks.List(c.network, networks.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("listing networks: %w", err)
	}
	list, err := networks.ExtractNetworks(pages)
	if err != nil {
		return nil, fmt.Errorf("decoding networks: %w", err)
	}
	out := make([]model.Resource, 0, len(list))
	for _, n := range list {
		out = append(out, model.Resource{ID: n.ID, Name: n.Name, TenantID: tenantOf(n.TenantID, n.ProjectID)})
	}
	return out, nil
}

func (c *Client) ListSubnets(ctx context.Context) ([]model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := subnets.List(c.network, subnets.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("listing subnets: %w", err)
	}
	list, err := subnets.ExtractSubnets(pages)
	if err != nil {
		return nil, fmt.Errorf("decoding subnets: %w", err)
	}
	out := make([]model.Resource, 0, len(list))
	for _, s := range list {
		out = append(out, model.Resource{ID: s.ID, Name: s.Name, TenantID: tenantOf(s.TenantID, s.ProjectID)})
	}
	return out, nil
}

func (c *Client) CreateRouter(ctx context.Context, spec model.RouterSpec) (model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return model.Resource{}, err
	}
	r, err := routers.Create(c.network, routers.CreateOpts{
		Name:         spec.Name,
		TenantID:     spec.TenantID,
		AdminStateUp: gophercloud.Enabled,
	}).Extract()
	if err != nil {
		return model.Resource{}, fmt.Errorf("creating router %s: %w", spec.Name, err)
	}
	return model.Resource{ID: r.ID, Name: r.Name, TenantID: tenantOf(r.TenantID, r.ProjectID)}, nil
}

// CreateNetwork creates an admin-up network. External sets
// router:external; Provider adds a single provider segment.
func (c *Client) CreateNetwork(ctx context.Context, spec model.NetworkSpec) (model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return model.Resource{}, err
	}
	var opts networks.CreateOptsBuilder = networks.CreateOpts{
		Name:         spec.Name,
		TenantID:     spec.TenantID,
		AdminStateUp: gophercloud.Enabled,
	}
	if spec.Provider != nil {
		opts = provider.CreateOptsExt{
			CreateOptsBuilder: opts,
			Segments: []provider.Segment{{
				NetworkType:     spec.Provider.NetworkType,
				PhysicalNetwork: spec.Provider.PhysicalNetwork,
				SegmentationID:  spec.Provider.SegmentationID,
			}},
		}
	}
	if spec.External {
		opts = external.CreateOptsExt{
			CreateOptsBuilder: opts,
			External:          gophercloud.Enabled,
		}
	}

	n, err := networks.Create(c.network, opts).Extract()
	if err != nil {
		return model.Resource{}, fmt.Errorf("creating network %s: %w", spec.Name, err)
	}
	return model.Resource{ID: n.ID, Name: n.Name, TenantID: tenantOf(n.TenantID, n.ProjectID)}, nil
}

func (c *Client) CreateSubnet(ctx context.Context, spec model.SubnetSpec) (model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return model.Resource{}, err
	}
	opts := subnets.CreateOpts{
		NetworkID:  spec.NetworkID,
		CIDR:       spec.CIDR,
		Name:       spec.Name,
		TenantID:   spec.TenantID,
		IPVersion:  gophercloud.IPv4,
		EnableDHCP: spec.EnableDHCP,
	}
	for _, p := range spec.AllocationPools {
		opts.AllocationPools = append(opts.AllocationPools, subnets.AllocationPool{Start: p.Start, End: p.End})
	}

	s, err := subnets.Create(c.network, opts).Extract()
	if err != nil {
		return model.Resource{}, fmt.Errorf("creating subnet %s: %w", spec.Name, err)
	}
	return model.Resource{ID: s.ID, Name: s.Name, TenantID: tenantOf(s.TenantID, s.ProjectID)}, nil
}

func (c *Client) SetRouterGateway(ctx context.Context, routerID string, gw model.GatewaySpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := routers.Update(c.network, routerID, routers.UpdateOpts{
		GatewayInfo: &routers.GatewayInfo{
			NetworkID:  gw.NetworkID,
			EnableSNAT: gw.EnableSNAT,
		},
	}).Extract()
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("router %s: %w", routerID, util.ErrNotFound)
		}
		return fmt.Errorf("setting gateway of router %s: %w", routerID, err)
	}
	return nil
}

func (c *Client) AddRouterInterface(ctx context.Context, routerID, subnetID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := routers.AddInterface(c.network, routerID, routers.AddInterfaceOpts{SubnetID: subnetID}).Extract()
	if err != nil {
		if isPortConflict(err) {
			return fmt.Errorf("router %s already has a port on subnet %s: %w", routerID, subnetID, util.ErrAlreadyExists)
		}
		return fmt.Errorf("adding subnet %s to router %s: %w", subnetID, routerID, err)
	}
	return nil
}
