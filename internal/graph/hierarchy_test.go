package graph

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/ipnet"
)

func TestPrepareHierarchy(t *testing.T) {
	ips := []netip.Addr{
		netip.MustParseAddr("192.168.1.10"),
		netip.MustParseAddr("10.0.0.5"),
		netip.MustParseAddr("8.8.8.8"),
	}
	subnets := []netip.Prefix{
		ipnet.MustPrefix("192.168.0.0/16"),
		ipnet.MustPrefix("192.168.1.0/24"),
		ipnet.MustPrefix("10.0.0.0/8"),
	}

	ipRows, subnetRows := PrepareHierarchy(ips, subnets)

	ipTargets := map[string]string{}
	for _, row := range ipRows {
		ipTargets[row.Address] = row.Subnet
	}
	// Every IP is attached to the longest-prefix containing subnet.
	assert.Equal(t, "192.168.1.0/24", ipTargets["192.168.1.10"])
	assert.Equal(t, "10.0.0.0/8", ipTargets["10.0.0.5"])
	// Unmatched IPs are left for the default-parent step.
	_, found := ipTargets["8.8.8.8"]
	assert.False(t, found)

	subnetTargets := map[string]string{}
	for _, row := range subnetRows {
		subnetTargets[row.Range] = row.Parent
	}
	// The /24 nests under the /16; the top-level ranges have no parent.
	assert.Equal(t, "192.168.0.0/16", subnetTargets["192.168.1.0/24"])
	_, found = subnetTargets["192.168.0.0/16"]
	assert.False(t, found)
	_, found = subnetTargets["10.0.0.0/8"]
	assert.False(t, found)
}

func TestPrepareHierarchyMixedFamilies(t *testing.T) {
	ips := []netip.Addr{
		netip.MustParseAddr("2001:db8:0:1::5"),
		netip.MustParseAddr("192.168.1.10"),
	}
	subnets := []netip.Prefix{
		ipnet.MustPrefix("2001:db8::/32"),
		ipnet.MustPrefix("2001:db8:0:1::/64"),
		ipnet.MustPrefix("192.168.1.0/24"),
	}

	ipRows, subnetRows := PrepareHierarchy(ips, subnets)
	require.Len(t, ipRows, 2)

	targets := map[string]string{}
	for _, row := range ipRows {
		targets[row.Address] = row.Subnet
	}
	assert.Equal(t, "2001:db8:0:1::/64", targets["2001:db8:0:1::5"])
	assert.Equal(t, "192.168.1.0/24", targets["192.168.1.10"])

	require.Len(t, subnetRows, 1)
	assert.Equal(t, "2001:db8:0:1::/64", subnetRows[0].Range)
	assert.Equal(t, "2001:db8::/32", subnetRows[0].Parent)
	assert.Equal(t, 6, subnetRows[0].Version)
}

func TestPrepareHierarchyEmpty(t *testing.T) {
	ipRows, subnetRows := PrepareHierarchy(nil, nil)
	assert.Empty(t, ipRows)
	assert.Empty(t, subnetRows)
}

func TestNowIsSecondTruncatedUTC(t *testing.T) {
	stamp := Now()
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, stamp)
}
