package util

import (
	"fmt"
	"strconv"

	"github.com/newtron-network/conexus/pkg/model"
)

// NamingScheme selects the resource naming convention.
type NamingScheme string

const (
	// NamingDistinct gives every kind its own prefix.
	NamingDistinct NamingScheme = "distinct"

	// NamingLegacy reproduces the names of the first-generation tool, where
	// a network and its subnet share one name (CONEXUS_OVERLAY_<vlan>,
	// CONEXUS_TRANSIT_<vlan>, DMZ_NETWORK_<vlan>). Backends scope names by
	// object class, so the pairs do not collide there, but the names alone
	// are ambiguous.
	NamingLegacy NamingScheme = "legacy"
)

var namePrefixes = map[NamingScheme]map[model.Kind]string{
	NamingDistinct: {
		model.KindRouter:         "CONEXUS_ROUTER_",
		model.KindOverlayNetwork: "CONEXUS_OVERLAY_",
		model.KindOverlaySubnet:  "CONEXUS_OVERLAY_SUBNET_",
		model.KindTransitNetwork: "CONEXUS_TRANSIT_",
		model.KindTransitSubnet:  "CONEXUS_TRANSIT_SUBNET_",
		model.KindDMZRouter:      "DMZ_ROUTER_",
		model.KindDMZNetwork:     "DMZ_NETWORK_",
		model.KindDMZSubnet:      "DMZ_SUBNET_",
	},
	NamingLegacy: {
		model.KindRouter:         "CONEXUS_ROUTER_",
		model.KindOverlayNetwork: "CONEXUS_OVERLAY_",
		model.KindOverlaySubnet:  "CONEXUS_OVERLAY_",
		model.KindTransitNetwork: "CONEXUS_TRANSIT_",
		model.KindTransitSubnet:  "CONEXUS_TRANSIT_",
		model.KindDMZRouter:      "DMZ_ROUTER_",
		model.KindDMZNetwork:     "DMZ_NETWORK_",
		model.KindDMZSubnet:      "DMZ_NETWORK_",
	},
}

// ParseNamingScheme converts a flag value to a NamingScheme.
func ParseNamingScheme(s string) (NamingScheme, error) {
	switch NamingScheme(s) {
	case "", NamingDistinct:
		return NamingDistinct, nil
	case NamingLegacy:
		return NamingLegacy, nil
	}
	return "", fmt.Errorf("%w: unknown naming scheme %q (valid: distinct, legacy)", ErrInvalidConfig, s)
}

// DeriveResourceName returns the name of the resource of the given kind for
// a transit VLAN, e.g. (router, 2001) -> CONEXUS_ROUTER_2001. Unknown
// schemes fall back to NamingDistinct.
func DeriveResourceName(scheme NamingScheme, kind model.Kind, vlan int) string {
	prefixes, ok := namePrefixes[scheme]
	if !ok {
		prefixes = namePrefixes[NamingDistinct]
	}
	return prefixes[kind] + strconv.Itoa(vlan)
}

// DeriveServerName returns the name of the index-th instance of a fleet.
func DeriveServerName(prefix string, index int) string {
	return prefix + strconv.Itoa(index)
}
