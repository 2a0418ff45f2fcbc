// Package labdb implements the backend capabilities on a plain Redis
// database, so topologies can be provisioned end to end without a cloud.
//
// Objects are hashes keyed "TABLE|id", the same layout SONiC uses for its
// config_db:
//
//	TENANT|<id>                      name
//	ROUTER|<id>                      name tenant_id seq gateway_network_id gateway_enable_snat
//	NETWORK|<id>                     name tenant_id seq external provider_*
//	SUBNET|<id>                      name tenant_id seq network_id cidr enable_dhcp allocation_pools
//	ROUTER_INTERFACE|<router>|<subnet>  created
//	SERVER|<id>                      name image_id flavor_id networks status
//
// Ids are random UUIDs. "seq" orders listings by creation.
package labdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

// Table names.
const (
	TableTenant          = "TENANT"
	TableRouter          = "ROUTER"
	TableNetwork         = "NETWORK"
	TableSubnet          = "SUBNET"
	TableRouterInterface = "ROUTER_INTERFACE"
	TableServer          = "SERVER"

	seqKey = "CONEXUS_LAB|seq"
)

// DefaultAddr is the Redis address used when none is configured.
const DefaultAddr = "127.0.0.1:6379"

// Store is a backend.Cloud kept in Redis.
type Store struct {
	client *redis.Client
}

var _ backend.Cloud = (*Store)(nil)

// New returns a store on the given Redis address and database.
func New(addr string, db int) *Store {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Store{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// Connect tests the connection.
func (s *Store) Connect(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("lab redis %s: %w", s.client.Options().Addr, err)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func key(table string, parts ...string) string {
	return table + "|" + strings.Join(parts, "|")
}

// SeedTenant registers a tenant so entries naming it pass validation.
func (s *Store) SeedTenant(ctx context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: empty tenant id", util.ErrInvalidConfig)
	}
	return s.client.HSet(ctx, key(TableTenant, id), "name", name).Err()
}

func (s *Store) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.table(ctx, TableTenant)
	if err != nil {
		return nil, err
	}
	tenants := make([]model.Tenant, 0, len(rows))
	for _, r := range rows {
		tenants = append(tenants, model.Tenant{ID: r.id, Name: r.vals["name"]})
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	return tenants, nil
}

func (s *Store) ListRouters(ctx context.Context) ([]model.Resource, error) {
	return s.resources(ctx, TableRouter)
}

func (s *Store) ListNetworks(ctx context.Context) ([]model.Resource, error) {
	return s.resources(ctx, TableNetwork)
}

func (s *Store) ListSubnets(ctx context.Context) ([]model.Resource, error) {
	return s.resources(ctx, TableSubnet)
}

func (s *Store) CreateRouter(ctx context.Context, spec model.RouterSpec) (model.Resource, error) {
	return s.create(ctx, TableRouter, spec.Name, spec.TenantID, nil)
}

func (s *Store) CreateNetwork(ctx context.Context, spec model.NetworkSpec) (model.Resource, error) {
	return s.create(ctx, TableNetwork, spec.Name, spec.TenantID, networkFields(spec))
}

func (s *Store) CreateSubnet(ctx context.Context, spec model.SubnetSpec) (model.Resource, error) {
	if err := s.mustExist(ctx, TableNetwork, spec.NetworkID); err != nil {
		return model.Resource{}, err
	}
	return s.create(ctx, TableSubnet, spec.Name, spec.TenantID, subnetFields(spec))
}

func (s *Store) SetRouterGateway(ctx context.Context, routerID string, gw model.GatewaySpec) error {
	if err := s.mustExist(ctx, TableRouter, routerID); err != nil {
		return err
	}
	if err := s.mustExist(ctx, TableNetwork, gw.NetworkID); err != nil {
		return err
	}
	fields := map[string]interface{}{
		"gateway_network_id":  gw.NetworkID,
		"gateway_enable_snat": formatOptionalBool(gw.EnableSNAT),
	}
	return s.client.HSet(ctx, key(TableRouter, routerID), fields).Err()
}

func (s *Store) AddRouterInterface(ctx context.Context, routerID, subnetID string) error {
	if err := s.mustExist(ctx, TableRouter, routerID); err != nil {
		return err
	}
	if err := s.mustExist(ctx, TableSubnet, subnetID); err != nil {
		return err
	}
	added, err := s.client.HSetNX(ctx, key(TableRouterInterface, routerID, subnetID),
		"created", time.Now().UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("router %s already has a port on subnet %s: %w", routerID, subnetID, util.ErrAlreadyExists)
	}
	return nil
}

// CreateServer stores the instance as ACTIVE; there is nothing to boot.
func (s *Store) CreateServer(ctx context.Context, spec model.ServerSpec) (model.Server, error) {
	for _, id := range spec.NetworkIDs {
		if err := s.mustExist(ctx, TableNetwork, id); err != nil {
			return model.Server{}, err
		}
	}
	id := uuid.NewString()
	fields := map[string]interface{}{
		"name":      spec.Name,
		"image_id":  spec.ImageID,
		"flavor_id": spec.FlavorID,
		"networks":  strings.Join(spec.NetworkIDs, ","),
		"status":    model.ServerStatusActive,
	}
	if err := s.client.HSet(ctx, key(TableServer, id), fields).Err(); err != nil {
		return model.Server{}, fmt.Errorf("creating server %s: %w", spec.Name, err)
	}
	return model.Server{ID: id, Name: spec.Name, Status: model.ServerStatusActive}, nil
}

func (s *Store) GetServer(ctx context.Context, id string) (model.Server, error) {
	vals, err := s.client.HGetAll(ctx, key(TableServer, id)).Result()
	if err != nil {
		return model.Server{}, err
	}
	if len(vals) == 0 {
		return model.Server{}, fmt.Errorf("server %s: %w", id, util.ErrNotFound)
	}
	return model.Server{ID: id, Name: vals["name"], Status: vals["status"]}, nil
}

// Get returns the raw fields of TABLE|id, or nil when absent.
func (s *Store) Get(ctx context.Context, table, id string) (map[string]string, error) {
	vals, err := s.client.HGetAll(ctx, key(table, id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

func (s *Store) create(ctx context.Context, table, name, tenantID string, extra map[string]interface{}) (model.Resource, error) {
	seq, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return model.Resource{}, fmt.Errorf("allocating %s sequence: %w", strings.ToLower(table), err)
	}
	id := uuid.NewString()
	fields := map[string]interface{}{
		"name":      name,
		"tenant_id": tenantID,
		"seq":       strconv.FormatInt(seq, 10),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.client.HSet(ctx, key(table, id), fields).Err(); err != nil {
		return model.Resource{}, fmt.Errorf("creating %s %s: %w", strings.ToLower(table), name, err)
	}
	return model.Resource{ID: id, Name: name, TenantID: tenantID}, nil
}

func (s *Store) mustExist(ctx context.Context, table, id string) error {
	if id == "" {
		return fmt.Errorf("%s with empty id: %w", strings.ToLower(table), util.ErrNotFound)
	}
	n, err := s.client.Exists(ctx, key(table, id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.ToLower(table), id, util.ErrNotFound)
	}
	return nil
}

type row struct {
	id   string
	vals map[string]string
}

// table reads every hash of table with one pipelined round trip.
func (s *Store) table(ctx context.Context, table string) ([]row, error) {
	keys, err := s.client.Keys(ctx, table+"|*").Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringStringMapCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}

	rows := make([]row, 0, len(keys))
	for i, k := range keys {
		rows = append(rows, row{id: strings.TrimPrefix(k, table+"|"), vals: cmds[i].Val()})
	}
	return rows, nil
}

func (s *Store) resources(ctx context.Context, table string) ([]model.Resource, error) {
	rows, err := s.table(ctx, table)
	if err != nil {
		return nil, err
	}
	return toResources(rows), nil
}

// toResources converts rows to resources in creation order.
func toResources(rows []row) []model.Resource {
	sort.SliceStable(rows, func(i, j int) bool {
		si, _ := strconv.ParseInt(rows[i].vals["seq"], 10, 64)
		sj, _ := strconv.ParseInt(rows[j].vals["seq"], 10, 64)
		if si != sj {
			return si < sj
		}
		return rows[i].id < rows[j].id
	})
	out := make([]model.Resource, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Resource{ID: r.id, Name: r.vals["name"], TenantID: r.vals["tenant_id"]})
	}
	return out
}

func networkFields(spec model.NetworkSpec) map[string]interface{} {
	f := map[string]interface{}{"external": strconv.FormatBool(spec.External)}
	if p := spec.Provider; p != nil {
		f["provider_network_type"] = p.NetworkType
		f["provider_physical_network"] = p.PhysicalNetwork
		f["provider_segmentation_id"] = strconv.Itoa(p.SegmentationID)
	}
	return f
}

func subnetFields(spec model.SubnetSpec) map[string]interface{} {
	return map[string]interface{}{
		"network_id":         spec.NetworkID,
		"cidr":               spec.CIDR,
		"enable_dhcp":        formatOptionalBool(spec.EnableDHCP),
		FieldAllocationPools: formatPools(spec.AllocationPools),
	}
}

// formatOptionalBool renders nil as "" (backend default).
func formatOptionalBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// FieldAllocationPools is the SUBNET field holding the pools.
const FieldAllocationPools = "allocation_pools"

// formatPools renders pools as "start-end,start-end".
func formatPools(pools []model.AllocationPool) string {
	parts := make([]string, 0, len(pools))
	for _, p := range pools {
		parts = append(parts, p.Start+"-"+p.End)
	}
	return strings.Join(parts, ",")
}

// ParsePools is the inverse of the allocation_pools field format.
func ParsePools(s string) []model.AllocationPool {
	if s == "" {
		return nil
	}
	var pools []model.AllocationPool
	for _, part := range strings.Split(s, ",") {
		start, end, ok := strings.Cut(part, "-")
		if !ok {
			start, end = part, part
		}
		pools = append(pools, model.AllocationPool{Start: start, End: end})
	}
	return pools
}
