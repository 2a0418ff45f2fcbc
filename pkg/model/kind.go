package model

// Kind identifies one of the named resources that make up a tenant topology.
type Kind string

const (
	KindDMZRouter      Kind = "dmz-router"
	KindDMZNetwork     Kind = "dmz-network"
	KindDMZSubnet      Kind = "dmz-subnet"
	KindRouter         Kind = "router" // joins overlay and transit
	KindOverlayNetwork Kind = "overlay-network"
	KindOverlaySubnet  Kind = "overlay-subnet"
	KindTransitNetwork Kind = "transit-network"
	KindTransitSubnet  Kind = "transit-subnet"

	// KindServer tags fleet instances in audit events. It is not part of
	// a topology and has no derived name.
	KindServer Kind = "server"
)

// AllKinds lists every kind in provisioning order.
var AllKinds = []Kind{
	KindDMZRouter,
	KindDMZNetwork,
	KindDMZSubnet,
	KindRouter,
	KindOverlayNetwork,
	KindOverlaySubnet,
	KindTransitNetwork,
	KindTransitSubnet,
}

// Class is the backend object class a Kind is stored as.
type Class string

const (
	ClassRouter  Class = "router"
	ClassNetwork Class = "network"
	ClassSubnet  Class = "subnet"
)

// Class returns the backend object class for k.
func (k Kind) Class() Class {
	switch k {
	case KindDMZRouter, KindRouter:
		return ClassRouter
	case KindDMZNetwork, KindOverlayNetwork, KindTransitNetwork:
		return ClassNetwork
	default:
		return ClassSubnet
	}
}
