// Package backend defines the narrow capabilities the provisioning core
// needs from the cloud: tenant lookup, network CRUD and instance creation.
// Concrete implementations live in the openstack and labdb subpackages.
package backend

import (
	"context"

	"github.com/newtron-network/conexus/pkg/model"
)

// Identity lists the tenants visible to the authenticated session.
type Identity interface {
	ListTenants(ctx context.Context) ([]model.Tenant, error)
}

// Networking is the subset of the network service used to build a
// topology. List calls return every object visible to the session;
// matching by name and tenant is done by the caller.
type Networking interface {
	ListRouters(ctx context.Context) ([]model.Resource, error)
	ListNetworks(ctx context.Context) ([]model.Resource, error)
	ListSubnets(ctx context.Context) ([]model.Resource, error)

	CreateRouter(ctx context.Context, spec model.RouterSpec) (model.Resource, error)
	CreateNetwork(ctx context.Context, spec model.NetworkSpec) (model.Resource, error)
	CreateSubnet(ctx context.Context, spec model.SubnetSpec) (model.Resource, error)

	// SetRouterGateway binds the router's external gateway to a network.
	SetRouterGateway(ctx context.Context, routerID string, gw model.GatewaySpec) error

	// AddRouterInterface attaches a subnet to the router. When the router
	// already has a port on the subnet the returned error wraps
	// util.ErrAlreadyExists.
	AddRouterInterface(ctx context.Context, routerID, subnetID string) error
}

// Compute creates instances and reads their status.
type Compute interface {
	CreateServer(ctx context.Context, spec model.ServerSpec) (model.Server, error)
	GetServer(ctx context.Context, id string) (model.Server, error)
}

// Cloud bundles the three capabilities.
type Cloud interface {
	Identity
	Networking
	Compute
}
