package topology

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

// Resolver maps (class, name, tenant) to the id of an existing backend
// object. It fetches each class listing at most once per tenant and keeps
// it for its own lifetime; the provisioner uses one Resolver per entry so
// a listing never outlives a single topology build. Resources created
// during the build are added with Remember.
type Resolver struct {
	net   backend.Networking
	cache *cache.Cache
	log   *logrus.Entry
}

// NewResolver returns a resolver over net.
func NewResolver(net backend.Networking, log *logrus.Entry) *Resolver {
	return &Resolver{
		net:   net,
		cache: cache.New(cache.NoExpiration, 0),
		log:   util.EntryOr(log, "resolver"),
	}
}

func cacheKey(class model.Class, tenantID string) string {
	return string(class) + "|" + tenantID
}

// Resolve returns the id of the first object of class whose name and
// tenant both match. It returns an error wrapping util.ErrNotFound when
// there is none.
func (r *Resolver) Resolve(ctx context.Context, class model.Class, name, tenantID string) (string, error) {
	list, err := r.listing(ctx, class, tenantID)
	if err != nil {
		return "", err
	}
	for _, res := range list {
		if res.Name == name {
			return res.ID, nil
		}
	}
	return "", fmt.Errorf("%s %s for tenant %s: %w", class, name, tenantID, util.ErrNotFound)
}

// Remember adds a freshly created resource to the cached listing so later
// resolutions in the same build see it without another backend call.
func (r *Resolver) Remember(class model.Class, res model.Resource) {
	key := cacheKey(class, res.TenantID)
	v, ok := r.cache.Get(key)
	if !ok {
		return
	}
	list := append(v.([]model.Resource), res)
	r.cache.Set(key, list, cache.NoExpiration)
}

// listing returns the tenant's objects of class, in backend order.
func (r *Resolver) listing(ctx context.Context, class model.Class, tenantID string) ([]model.Resource, error) {
	key := cacheKey(class, tenantID)
	if v, ok := r.cache.Get(key); ok {
		return v.([]model.Resource), nil
	}

	r.log.Debugf("Listing %ss", class)
	var (
		all []model.Resource
		err error
	)
	switch class {
	case model.ClassRouter:
		all, err = r.net.ListRouters(ctx)
	case model.ClassNetwork:
		all, err = r.net.ListNetworks(ctx)
	case model.ClassSubnet:
		all, err = r.net.ListSubnets(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown resource class %q", util.ErrInvalidConfig, class)
	}
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", class, err)
	}

	var owned []model.Resource
	for _, res := range all {
		if res.TenantID == tenantID {
			owned = append(owned, res)
		}
	}
	r.cache.Set(key, owned, cache.NoExpiration)
	return owned, nil
}
