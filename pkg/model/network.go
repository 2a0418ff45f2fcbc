package model

// Resource is the identity of a router, network or subnet as listed by the
// networking backend. Name and TenantID together are the lookup key.
type Resource struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// RouterSpec describes a router to create.
type RouterSpec struct {
	Name     string
	TenantID string
}

// ProviderSegment binds a network to a physical provider network.
type ProviderSegment struct {
	NetworkType     string // "vlan"
	PhysicalNetwork string
	SegmentationID  int
}

// NetworkSpec describes a network to create. Networks are always created
// admin-up.
type NetworkSpec struct {
	Name     string
	TenantID string
	External bool
	Provider *ProviderSegment
}

// AllocationPool is an inclusive range of addresses handed out on a subnet.
type AllocationPool struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SubnetSpec describes an IPv4 subnet to create. A nil EnableDHCP leaves the
// backend default in place.
type SubnetSpec struct {
	Name            string
	TenantID        string
	NetworkID       string
	CIDR            string
	EnableDHCP      *bool
	AllocationPools []AllocationPool
}

// GatewaySpec binds a router's external gateway to a network. A nil
// EnableSNAT leaves the backend default in place.
type GatewaySpec struct {
	NetworkID  string
	EnableSNAT *bool
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
