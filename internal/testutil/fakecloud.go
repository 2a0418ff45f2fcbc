// Package testutil provides test helpers: an in-memory cloud for unit tests
// and Redis helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

// Call records one backend invocation. Args holds the identifying values of
// the call (names for creates, ids for attachments).
type Call struct {
	Op   string
	Args []string
}

// FakeCloud is an in-memory backend.Cloud. It enforces the referential
// checks a real network service does (a subnet needs its network, an
// attachment needs its router) so ordering bugs surface as errors.
type FakeCloud struct {
	mu sync.Mutex

	Tenants  []model.Tenant
	Routers  []model.Resource
	Networks []model.Resource
	Subnets  []model.Resource

	NetworkSpecs map[string]model.NetworkSpec // by id
	SubnetSpecs  map[string]model.SubnetSpec  // by id
	Gateways     map[string]model.GatewaySpec // by router id
	Interfaces   map[string]bool              // "router|subnet"

	Servers     []model.Server
	ServerSpecs []model.ServerSpec

	// StatusSequence maps a server name to the statuses GetServer reports
	// on successive polls. The last status repeats. Servers without an
	// entry report ACTIVE.
	StatusSequence map[string][]string

	// Fail makes every call of an op return the error.
	Fail map[string]error
	// FailName makes the create of a resource with this name return the
	// error.
	FailName map[string]error

	Calls []Call

	polls  map[string]int
	nextID int
}

// NewFakeCloud returns an empty cloud knowing the given tenants.
func NewFakeCloud(tenants ...model.Tenant) *FakeCloud {
	return &FakeCloud{
		Tenants:        tenants,
		NetworkSpecs:   map[string]model.NetworkSpec{},
		SubnetSpecs:    map[string]model.SubnetSpec{},
		Gateways:       map[string]model.GatewaySpec{},
		Interfaces:     map[string]bool{},
		StatusSequence: map[string][]string{},
		Fail:           map[string]error{},
		FailName:       map[string]error{},
		polls:          map[string]int{},
	}
}

func (f *FakeCloud) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	if err := f.Fail[op]; err != nil {
		return err
	}
	if len(args) > 0 {
		if err := f.FailName[args[0]]; err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeCloud) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%04d", prefix, f.nextID)
}

// CallCount returns how many times op was invoked.
func (f *FakeCloud) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// CallsFor returns the recorded calls of op in order.
func (f *FakeCloud) CallsFor(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets the recorded calls but keeps the stored resources.
func (f *FakeCloud) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

func (f *FakeCloud) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTenants"); err != nil {
		return nil, err
	}
	return append([]model.Tenant(nil), f.Tenants...), nil
}

func (f *FakeCloud) ListRouters(ctx context.Context) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListRouters"); err != nil {
		return nil, err
	}
	return append([]model.Resource(nil), f.Routers...), nil
}

func (f *FakeCloud) ListNetworks(ctx context.Context) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListNetworks"); err != nil {
		return nil, err
	}
	return append([]model.Resource(nil), f.Networks...), nil
}

func (f *FakeCloud) ListSubnets(ctx context.Context) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSubnets"); err != nil {
		return nil, err
	}
	return append([]model.Resource(nil), f.Subnets...), nil
}

func (f *FakeCloud) CreateRouter(ctx context.Context, spec model.RouterSpec) (model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateRouter", spec.Name, spec.TenantID); err != nil {
		return model.Resource{}, err
	}
	r := model.Resource{ID: f.newID("router"), Name: spec.Name, TenantID: spec.TenantID}
	f.Routers = append(f.Routers, r)
	return r, nil
}

func (f *FakeCloud) CreateNetwork(ctx context.Context, spec model.NetworkSpec) (model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateNetwork", spec.Name, spec.TenantID); err != nil {
		return model.Resource{}, err
	}
	r := model.Resource{ID: f.newID("net"), Name: spec.Name, TenantID: spec.TenantID}
	f.Networks = append(f.Networks, r)
	f.NetworkSpecs[r.ID] = spec
	return r, nil
}

func (f *FakeCloud) CreateSubnet(ctx context.Context, spec model.SubnetSpec) (model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateSubnet", spec.Name, spec.TenantID, spec.NetworkID); err != nil {
		return model.Resource{}, err
	}
	if !has(f.Networks, spec.NetworkID) {
		return model.Resource{}, fmt.Errorf("network %s: %w", spec.NetworkID, util.ErrNotFound)
	}
	r := model.Resource{ID: f.newID("subnet"), Name: spec.Name, TenantID: spec.TenantID}
	f.Subnets = append(f.Subnets, r)
	f.SubnetSpecs[r.ID] = spec
	return r, nil
}

func (f *FakeCloud) SetRouterGateway(ctx context.Context, routerID string, gw model.GatewaySpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetRouterGateway", routerID, gw.NetworkID); err != nil {
		return err
	}
	if !has(f.Routers, routerID) {
		return fmt.Errorf("router %s: %w", routerID, util.ErrNotFound)
	}
	if !has(f.Networks, gw.NetworkID) {
		return fmt.Errorf("network %s: %w", gw.NetworkID, util.ErrNotFound)
	}
	f.Gateways[routerID] = gw
	return nil
}

func (f *FakeCloud) AddRouterInterface(ctx context.Context, routerID, subnetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddRouterInterface", routerID, subnetID); err != nil {
		return err
	}
	if !has(f.Routers, routerID) {
		return fmt.Errorf("router %s: %w", routerID, util.ErrNotFound)
	}
	if !has(f.Subnets, subnetID) {
		return fmt.Errorf("subnet %s: %w", subnetID, util.ErrNotFound)
	}
	key := routerID + "|" + subnetID
	if f.Interfaces[key] {
		return fmt.Errorf("router %s already has a port on subnet %s: %w", routerID, subnetID, util.ErrAlreadyExists)
	}
	f.Interfaces[key] = true
	return nil
}

func (f *FakeCloud) CreateServer(ctx context.Context, spec model.ServerSpec) (model.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateServer", spec.Name, spec.ImageID, spec.FlavorID); err != nil {
		return model.Server{}, err
	}
	for _, id := range spec.NetworkIDs {
		if !has(f.Networks, id) {
			return model.Server{}, fmt.Errorf("network %s: %w", id, util.ErrNotFound)
		}
	}
	s := model.Server{ID: f.newID("server"), Name: spec.Name, Status: model.ServerStatusBuild}
	f.Servers = append(f.Servers, s)
	f.ServerSpecs = append(f.ServerSpecs, spec)
	return s, nil
}

func (f *FakeCloud) GetServer(ctx context.Context, id string) (model.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetServer", id); err != nil {
		return model.Server{}, err
	}
	for _, s := range f.Servers {
		if s.ID != id {
			continue
		}
		seq := f.StatusSequence[s.Name]
		if len(seq) == 0 {
			s.Status = model.ServerStatusActive
			return s, nil
		}
		n := f.polls[id]
		if n >= len(seq) {
			n = len(seq) - 1
		}
		f.polls[id]++
		s.Status = seq[n]
		return s, nil
	}
	return model.Server{}, fmt.Errorf("server %s: %w", id, util.ErrNotFound)
}

func has(list []model.Resource, id string) bool {
	for _, r := range list {
		if r.ID == id {
			return true
		}
	}
	return false
}
