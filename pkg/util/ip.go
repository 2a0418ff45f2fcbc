package util

import (
	"encoding/binary"
	"fmt"
	"net"
)

// TransitHostOffset is the position of the transit endpoint counted from the
// first usable address of the transit subnet. The deployment reserves this
// address for the far side of the provider VLAN; it is not a free-address
// search.
const TransitHostOffset = 6

// ParseIPv4Network parses cidr and returns its IPv4 network. Host bits in
// the input are masked off.
func ParseIPv4Network(cidr string) (*net.IPNet, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
	}
	// IPv4-mapped IPv6 notation parses with a 16-byte mask.
	if ip.To4() == nil || len(ipNet.Mask) != net.IPv4len {
		return nil, fmt.Errorf("%w: %q is not IPv4", ErrInvalidCIDR, cidr)
	}
	ipNet.IP = ipNet.IP.To4()
	return ipNet, nil
}

// IsValidIPv4CIDR checks if a string is a valid IPv4 CIDR notation
func IsValidIPv4CIDR(cidr string) bool {
	_, err := ParseIPv4Network(cidr)
	return err == nil
}

// UsableRange returns the first and last usable host addresses of n. /31
// and /32 follow RFC 3021 and have no network or broadcast address.
func UsableRange(n *net.IPNet) (first, last net.IP) {
	ones, bits := n.Mask.Size()
	base := binary.BigEndian.Uint32(n.IP.To4())
	size := uint32(1) << uint(bits-ones)

	if ones >= 31 {
		return uint32ToIP(base), uint32ToIP(base + size - 1)
	}
	return uint32ToIP(base + 1), uint32ToIP(base + size - 2)
}

// TransitHostAddress returns the fixed transit endpoint of the subnet: the
// address TransitHostOffset positions after the first usable address.
//
//	10.0.0.0/24 -> 10.0.0.7
//
// The subnet must be large enough that the endpoint is itself a usable
// host; smaller subnets fail with ErrSubnetTooSmall, which wraps
// ErrInvalidCIDR.
func TransitHostAddress(cidr string) (string, error) {
	n, err := ParseIPv4Network(cidr)
	if err != nil {
		return "", err
	}

	first, last := UsableRange(n)
	host := binary.BigEndian.Uint32(first) + TransitHostOffset
	if host > binary.BigEndian.Uint32(last) {
		return "", fmt.Errorf("%w: %s has no usable address at offset %d",
			ErrSubnetTooSmall, n.String(), TransitHostOffset)
	}
	return uint32ToIP(host).String(), nil
}

func uint32ToIP(v uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}
