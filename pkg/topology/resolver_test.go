package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/newtron-network/conexus/internal/testutil"
	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

func TestResolver_Resolve(t *testing.T) {
	cloud := testutil.NewFakeCloud()
	cloud.Routers = []model.Resource{
		{ID: "r-other", Name: "CONEXUS_ROUTER_100", TenantID: "tenant-b"},
		{ID: "r-1", Name: "CONEXUS_ROUTER_100", TenantID: "tenant-a"},
		{ID: "r-dup", Name: "CONEXUS_ROUTER_100", TenantID: "tenant-a"},
		{ID: "r-2", Name: "DMZ_ROUTER_100", TenantID: "tenant-a"},
	}

	r := NewResolver(cloud, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		router  string
		tenant  string
		want    string
		missing bool
	}{
		{"first match wins", "CONEXUS_ROUTER_100", "tenant-a", "r-1", false},
		{"tenant scoped", "CONEXUS_ROUTER_100", "tenant-b", "r-other", false},
		{"other name", "DMZ_ROUTER_100", "tenant-a", "r-2", false},
		{"wrong tenant", "DMZ_ROUTER_100", "tenant-b", "", true},
		{"absent", "CONEXUS_ROUTER_200", "tenant-a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, model.ClassRouter, tt.router, tt.tenant)
			if tt.missing {
				if !errors.Is(err, util.ErrNotFound) {
					t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ListsOncePerClassAndTenant(t *testing.T) {
	cloud := testutil.NewFakeCloud()
	cloud.Networks = []model.Resource{
		{ID: "n-1", Name: "DMZ_NETWORK_7", TenantID: "t"},
		{ID: "n-2", Name: "CONEXUS_OVERLAY_7", TenantID: "t"},
	}
	r := NewResolver(cloud, nil)
	ctx := context.Background()

	for _, name := range []string{"DMZ_NETWORK_7", "CONEXUS_OVERLAY_7", "CONEXUS_TRANSIT_7"} {
		r.Resolve(ctx, model.ClassNetwork, name, "t")
	}
	if n := cloud.CallCount("ListNetworks"); n != 1 {
		t.Errorf("ListNetworks called %d times, want 1", n)
	}

	r.Resolve(ctx, model.ClassNetwork, "DMZ_NETWORK_7", "other-tenant")
	if n := cloud.CallCount("ListNetworks"); n != 2 {
		t.Errorf("ListNetworks called %d times after new tenant, want 2", n)
	}

	NewResolver(cloud, nil).Resolve(ctx, model.ClassNetwork, "DMZ_NETWORK_7", "t")
	if n := cloud.CallCount("ListNetworks"); n != 3 {
		t.Errorf("ListNetworks called %d times with a new resolver, want 3", n)
	}
}

func TestResolver_Remember(t *testing.T) {
	cloud := testutil.NewFakeCloud()
	r := NewResolver(cloud, nil)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, model.ClassSubnet, "DMZ_SUBNET_9", "t"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	r.Remember(model.ClassSubnet, model.Resource{ID: "s-1", Name: "DMZ_SUBNET_9", TenantID: "t"})
	got, err := r.Resolve(ctx, model.ClassSubnet, "DMZ_SUBNET_9", "t")
	if err != nil || got != "s-1" {
		t.Errorf("Resolve() after Remember = %q, %v; want s-1", got, err)
	}
	if n := cloud.CallCount("ListSubnets"); n != 1 {
		t.Errorf("ListSubnets called %d times, want 1", n)
	}
}

func TestResolver_ListFailure(t *testing.T) {
	cloud := testutil.NewFakeCloud()
	boom := errors.New("connection refused")
	cloud.Fail["ListRouters"] = boom

	_, err := NewResolver(cloud, nil).Resolve(context.Background(), model.ClassRouter, "x", "t")
	if !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, util.ErrNotFound) {
		t.Error("a listing failure must not look like not-found")
	}
}
