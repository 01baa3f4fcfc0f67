// Package ipnet provides the IP and subnet computations behind the PART_OF
// hierarchy: most-specific containing network for an address, most-specific
// enclosing parent for a subnet, and default subnet derivation for observed
// addresses.
package ipnet

import (
	"fmt"
	"net/netip"

	"github.com/resilmesh/casm/pkg/faults"
)

const (
	// DefaultIPv4Root is the catch-all parent for IPv4 entities.
	DefaultIPv4Root = "0.0.0.0/0"
	// DefaultIPv6Root is the catch-all parent for IPv6 entities.
	DefaultIPv6Root = "::/0"

	defaultIPv4Prefix = 24
	defaultIPv6Prefix = 64
)

// ParseAddr parses an IP address string.
func ParseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, faults.Wrap(faults.BadInput, err, "invalid IP address %q", s)
	}
	return addr, nil
}

// ParsePrefix parses a CIDR range string and normalizes it to its masked form.
func ParsePrefix(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, faults.Wrap(faults.BadInput, err, "invalid CIDR range %q", s)
	}
	return prefix.Masked(), nil
}

// Version returns 4 or 6 for the given address.
func Version(addr netip.Addr) int {
	if addr.Is4() || addr.Is4In6() {
		return 4
	}
	return 6
}

// PrefixVersion returns 4 or 6 for the given network.
func PrefixVersion(prefix netip.Prefix) int {
	return Version(prefix.Addr())
}

// DefaultRoot returns the default catch-all range for the address family.
func DefaultRoot(version int) string {
	if version == 4 {
		return DefaultIPv4Root
	}
	return DefaultIPv6Root
}

// ClosestNetwork returns the most specific network from the list that
// contains the given address, or an invalid prefix when none matches.
// Ties are broken by the longest prefix.
func ClosestNetwork(addr netip.Addr, networks []netip.Prefix) (netip.Prefix, bool) {
	var best netip.Prefix
	found := false
	for _, net := range networks {
		if net.Addr().Is4() != addr.Is4() {
			continue
		}
		if !net.Contains(addr) {
			continue
		}
		if !found || net.Bits() > best.Bits() {
			best = net
			found = true
		}
	}
	return best, found
}

// ClosestParent returns the most specific network from the list that
// encloses the given subnet, excluding the subnet itself.
func ClosestParent(subnet netip.Prefix, networks []netip.Prefix) (netip.Prefix, bool) {
	var best netip.Prefix
	found := false
	for _, net := range networks {
		if net == subnet {
			continue
		}
		if net.Addr().Is4() != subnet.Addr().Is4() {
			continue
		}
		if !net.Contains(subnet.Addr()) || net.Bits() > subnet.Bits() {
			continue
		}
		if !found || net.Bits() > best.Bits() {
			best = net
			found = true
		}
	}
	return best, found
}

// ExtractSubnet computes the CIDR subnet containing the given IP. When no
// prefix length is provided, /24 is assumed for IPv4 and /64 for IPv6.
func ExtractSubnet(ip string, prefixLen int) (string, error) {
	addr, err := ParseAddr(ip)
	if err != nil {
		return "", err
	}
	if prefixLen == 0 {
		if Version(addr) == 4 {
			prefixLen = defaultIPv4Prefix
		} else {
			prefixLen = defaultIPv6Prefix
		}
	}
	prefix, err := addr.Prefix(prefixLen)
	if err != nil {
		return "", faults.Wrap(faults.BadInput, err, "invalid prefix length %d for %q", prefixLen, ip)
	}
	return prefix.String(), nil
}

// ValidateHostname accepts anything that is a valid IP address, CIDR range,
// or DNS hostname. Scan targets are allowed in all three forms.
func ValidateHostname(target string) bool {
	if _, err := netip.ParseAddr(target); err == nil {
		return true
	}
	if _, err := netip.ParsePrefix(target); err == nil {
		return true
	}
	return ValidateDomain(target)
}

// ValidateDomain reports whether the string looks like a valid DNS name.
func ValidateDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	labels := 0
	start := 0
	for i := 0; i <= len(domain); i++ {
		if i == len(domain) || domain[i] == '.' {
			if !validLabel(domain[start:i]) {
				return false
			}
			labels++
			start = i + 1
		}
	}
	return labels >= 2
}

func validLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-':
			if i == 0 || i == len(label)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// FormatAddr renders an address in its canonical compressed form.
func FormatAddr(addr netip.Addr) string {
	if addr.Is4In6() {
		return addr.Unmap().String()
	}
	return addr.String()
}

// MustPrefix parses a CIDR and panics on failure. Test helper.
func MustPrefix(s string) netip.Prefix {
	p, err := ParsePrefix(s)
	if err != nil {
		panic(fmt.Sprintf("ipnet: %v", err))
	}
	return p
}
