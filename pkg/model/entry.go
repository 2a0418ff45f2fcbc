package model

// Tenant is an identity-provider project. Read-only here.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MaxTenantIDLen is the longest tenant id the identity provider issues.
const MaxTenantIDLen = 36

// ConfigEntry is one validated line of the configuration file.
type ConfigEntry struct {
	Line             int    `json:"line" yaml:"line"`
	TenantID         string `json:"tenant_id" yaml:"tenant_id"`
	TenantName       string `json:"tenant_name" yaml:"tenant_name"`
	ImageID          string `json:"image_id" yaml:"image_id"`
	FlavorID         string `json:"flavor_id" yaml:"flavor_id"`
	VMCount          int    `json:"vm_count" yaml:"vm_count"`
	OverlaySubnet    string `json:"overlay_subnet" yaml:"overlay_subnet"`
	TransitVLAN      int    `json:"transit_vlan" yaml:"transit_vlan"`
	TransitVLANLabel string `json:"transit_vlan_label" yaml:"transit_vlan_label"`
	TransitSubnet    string `json:"transit_subnet" yaml:"transit_subnet"`
	DMZSubnet        string `json:"dmz_subnet" yaml:"dmz_subnet"`
}

// Topology holds the ids resolved or created for one ConfigEntry.
type Topology struct {
	DMZRouterID      string `json:"dmz_router_id" yaml:"dmz_router_id"`
	DMZNetworkID     string `json:"dmz_network_id" yaml:"dmz_network_id"`
	DMZSubnetID      string `json:"dmz_subnet_id" yaml:"dmz_subnet_id"`
	RouterID         string `json:"router_id" yaml:"router_id"`
	OverlayNetworkID string `json:"overlay_network_id" yaml:"overlay_network_id"`
	OverlaySubnetID  string `json:"overlay_subnet_id" yaml:"overlay_subnet_id"`
	TransitNetworkID string `json:"transit_network_id" yaml:"transit_network_id"`
	TransitSubnetID  string `json:"transit_subnet_id" yaml:"transit_subnet_id"`
	TransitHost      string `json:"transit_host" yaml:"transit_host"`
}
