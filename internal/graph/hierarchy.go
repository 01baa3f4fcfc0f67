package graph

import (
	"context"
	"net/netip"

	"github.com/resilmesh/casm/pkg/ipnet"
)

// IPToSubnet maps one IP onto its most specific containing subnet.
type IPToSubnet struct {
	Address string
	Subnet  string
	Version int
}

// SubnetToParent maps one subnet onto its most specific enclosing subnet.
type SubnetToParent struct {
	Range   string
	Version int
	Parent  string
}

// SyncHierarchy recomputes the whole PART_OF hierarchy: every IP is attached
// to the most specific subnet present in the graph and every subnet to its
// most specific parent. IPs and subnets without a computed parent are picked
// up afterwards by the default-parent constraints.
func (a *Adapter) SyncHierarchy(ctx context.Context) error {
	ips, subnets, err := a.fetchIPsAndSubnets(ctx)
	if err != nil {
		return err
	}

	ipRows, subnetRows := PrepareHierarchy(ips, subnets)

	if err := a.loadHierarchy(ctx, ipRows, subnetRows); err != nil {
		return err
	}
	if err := a.DefaultIPParentConstraint(ctx); err != nil {
		return err
	}
	return a.DefaultSubnetParentConstraint(ctx)
}

// PrepareHierarchy computes the closest-parent maps. Pure; exercised
// directly by the tests.
func PrepareHierarchy(ips []netip.Addr, subnets []netip.Prefix) ([]IPToSubnet, []SubnetToParent) {
	var ipRows []IPToSubnet
	for _, ip := range ips {
		if closest, ok := ipnet.ClosestNetwork(ip, subnets); ok {
			ipRows = append(ipRows, IPToSubnet{
				Address: ipnet.FormatAddr(ip),
				Subnet:  closest.String(),
				Version: ipnet.Version(ip),
			})
		}
	}

	var subnetRows []SubnetToParent
	for _, subnet := range subnets {
		if parent, ok := ipnet.ClosestParent(subnet, subnets); ok {
			subnetRows = append(subnetRows, SubnetToParent{
				Range:   subnet.String(),
				Version: ipnet.PrefixVersion(subnet),
				Parent:  parent.String(),
			})
		}
	}

	return ipRows, subnetRows
}

func (a *Adapter) fetchIPsAndSubnets(ctx context.Context) ([]netip.Addr, []netip.Prefix, error) {
	ipRecords, err := a.run(ctx, "MATCH (ip:IP) RETURN ip.address AS address", nil)
	if err != nil {
		return nil, nil, err
	}
	subnetRecords, err := a.run(ctx, "MATCH (s:Subnet) RETURN s.range AS range", nil)
	if err != nil {
		return nil, nil, err
	}

	var ips []netip.Addr
	for _, record := range ipRecords {
		addr, err := ipnet.ParseAddr(stringValue(record, "address"))
		if err != nil {
			a.log.Warn("skipping unparseable IP", "address", stringValue(record, "address"))
			continue
		}
		ips = append(ips, addr)
	}

	var subnets []netip.Prefix
	for _, record := range subnetRecords {
		prefix, err := ipnet.ParsePrefix(stringValue(record, "range"))
		if err != nil {
			a.log.Warn("skipping unparseable subnet", "range", stringValue(record, "range"))
			continue
		}
		subnets = append(subnets, prefix)
	}

	return ips, subnets, nil
}

// loadHierarchy clears all PART_OF edges among subnets and from IPs to
// subnets, then recreates them from the computed maps. Clearing and
// rebuilding happen in one write transaction so no reader observes a
// half-built hierarchy.
func (a *Adapter) loadHierarchy(ctx context.Context, ips []IPToSubnet, subnets []SubnetToParent) error {
	subnetRows := make([]map[string]any, 0, len(subnets))
	for _, row := range subnets {
		subnetRows = append(subnetRows, map[string]any{
			"ip_range": row.Range,
			"version":  row.Version,
			"parent":   row.Parent,
		})
	}

	ipRows := make([]map[string]any, 0, len(ips))
	for _, row := range ips {
		ipRows = append(ipRows, map[string]any{
			"address": row.Address,
			"subnet":  row.Subnet,
		})
	}

	return a.runWrite(ctx, []statement{
		{`MATCH (:Subnet)-[r:PART_OF]->(:Subnet) DELETE r`, nil},
		{`MATCH (:IP)-[r:PART_OF]->(:Subnet) DELETE r`, nil},
		{`UNWIND $subnets AS sn
		  MERGE (subnet:Subnet {range: sn.ip_range})
		  SET subnet.version = sn.version
		  MERGE (parent:Subnet {range: sn.parent})
		  MERGE (subnet)-[:PART_OF]->(parent)`,
			map[string]any{"subnets": subnetRows}},
		{`UNWIND $ips AS ip_data
		  MATCH (ip:IP {address: ip_data.address})
		  MATCH (subnet:Subnet {range: ip_data.subnet})
		  MERGE (ip)-[:PART_OF]->(subnet)`,
			map[string]any{"ips": ipRows}},
	})
}
