package graph

import (
	"context"

	"github.com/resilmesh/casm/pkg/ipnet"
	"github.com/resilmesh/casm/pkg/models"
)

// StoreAssets upserts an Nmap asset document: subnets, hosts (with their
// node/IP/domain structure), devices, software versions, and applications,
// in one write transaction. The upsert is idempotent: re-submitting the
// same document creates no new nodes and no second open lifecycle edge.
// Default parent constraints are re-applied afterwards so every IP and
// subnet has a correct PART_OF target.
func (a *Adapter) StoreAssets(ctx context.Context, doc *models.NmapResults, orgUnitName string) error {
	now := Now()

	subnets := make([]map[string]any, 0, len(doc.Subnets))
	for _, subnet := range doc.Subnets {
		prefix, err := ipnet.ParsePrefix(subnet.IPRange)
		if err != nil {
			return err
		}
		subnets = append(subnets, map[string]any{
			"range":    prefix.String(),
			"version":  ipnet.PrefixVersion(prefix),
			"note":     subnet.Note,
			"contacts": subnet.Contacts,
		})
	}

	hosts := make([]map[string]any, 0, len(doc.Hosts))
	for _, host := range doc.Hosts {
		addr, err := ipnet.ParseAddr(host.IPAddress)
		if err != nil {
			return err
		}
		hostname := host.IPAddress
		if len(host.DomainNames) > 0 {
			hostname = host.DomainNames[0]
		}
		tag := host.Tag
		if tag == nil {
			tag = []string{}
		}
		hosts = append(hosts, map[string]any{
			"address":      ipnet.FormatAddr(addr),
			"version":      ipnet.Version(addr),
			"hostname":     hostname,
			"domain_names": host.DomainNames,
			"tag":          tag,
		})
	}

	versions := make([]map[string]any, 0, len(doc.SoftwareVersions))
	for _, sv := range doc.SoftwareVersions {
		tag := sv.Tag
		if tag == nil {
			tag = []string{}
		}
		versions = append(versions, map[string]any{
			"version":      sv.Version,
			"description":  sv.Description,
			"ip_addresses": sv.IPAddresses,
			"tag":          tag,
		})
	}

	devices := make([]map[string]any, 0, len(doc.Devices))
	for _, device := range doc.Devices {
		devices = append(devices, map[string]any{
			"name":       device.Name,
			"ip_address": device.IPAddress,
		})
	}

	applications := make([]map[string]any, 0, len(doc.Applications))
	for _, app := range doc.Applications {
		applications = append(applications, map[string]any{
			"name":   app.Name,
			"device": app.Device,
		})
	}

	statements := []statement{
		{orgUnitQuery, map[string]any{"org_unit": orgUnitName}},
		{subnetUpsertQuery, map[string]any{"subnets": subnets, "org_unit": orgUnitName}},
		{hostUpsertQuery, map[string]any{"hosts": hosts, "now": now}},
		{softwareVersionUpsertQuery, map[string]any{"versions": versions, "now": now}},
		{deviceUpsertQuery, map[string]any{"devices": devices}},
		{applicationUpsertQuery, map[string]any{"applications": applications}},
	}
	if err := a.runWrite(ctx, statements); err != nil {
		return err
	}

	if err := a.DefaultIPParentConstraint(ctx); err != nil {
		return err
	}
	return a.DefaultSubnetParentConstraint(ctx)
}

const orgUnitQuery = `
MERGE (ou:OrganizationUnit {name: $org_unit})`

const subnetUpsertQuery = `
UNWIND $subnets AS sn
MERGE (s:Subnet {range: sn.range})
SET s.version = sn.version, s.note = sn.note
WITH s, sn
MATCH (ou:OrganizationUnit {name: $org_unit})
MERGE (s)-[:PART_OF {scope: "org"}]->(ou)
WITH s, sn
UNWIND sn.contacts AS contact
  MERGE (c:Contact {name: contact})
  MERGE (s)-[:HAS]->(c)`

const hostUpsertQuery = `
UNWIND $hosts AS h
MERGE (ip:IP {address: h.address})
SET ip.version = h.version, ip.tag = h.tag
MERGE (host:Host {hostname: h.hostname})
MERGE (node:Node {name: h.address})
MERGE (node)-[:IS_A]->(host)
WITH ip, node, h
OPTIONAL MATCH (node)-[assigned:HAS_ASSIGNED]->(ip) WHERE assigned.end IS NULL
FOREACH (_ IN CASE WHEN assigned IS NULL THEN [1] ELSE [] END |
  CREATE (node)-[:HAS_ASSIGNED {start: datetime($now)}]->(ip))
WITH ip, h
UNWIND h.domain_names AS dn
  MERGE (d:DomainName {domain_name: dn, tag: h.tag})
  WITH ip, d
  OPTIONAL MATCH (ip)-[res:RESOLVES_TO]->(d) WHERE res.end IS NULL
  FOREACH (_ IN CASE WHEN res IS NULL THEN [1] ELSE [] END |
    CREATE (ip)-[:RESOLVES_TO {start: datetime($now)}]->(d))`

const softwareVersionUpsertQuery = `
UNWIND $versions AS v
MERGE (sv:SoftwareVersion {version: v.version, tag: v.tag})
SET sv.description = v.description
WITH sv, v
UNWIND v.ip_addresses AS svip
  MATCH (n:Node {name: svip})-[:IS_A]->(host:Host)
  WITH sv, host
  OPTIONAL MATCH (sv)-[onr:ON]->(host) WHERE onr.end IS NULL
  FOREACH (_ IN CASE WHEN onr IS NULL THEN [1] ELSE [] END |
    CREATE (sv)-[:ON {start: datetime($now)}]->(host))`

const deviceUpsertQuery = `
UNWIND $devices AS dev
MERGE (d:Device {name: dev.name})
WITH d, dev
OPTIONAL MATCH (n:Node {name: dev.ip_address})-[:IS_A]->(host:Host)
FOREACH (_ IN CASE WHEN host IS NULL THEN [] ELSE [1] END |
  MERGE (d)-[:HAS_IDENTITY]->(host))`

const applicationUpsertQuery = `
UNWIND $applications AS app
MERGE (ap:Application {name: app.name})
WITH ap, app
OPTIONAL MATCH (d:Device {name: app.device})
FOREACH (_ IN CASE WHEN d IS NULL THEN [] ELSE [1] END |
  MERGE (ap)-[:RUNNING_ON]->(d))`

// StoreEASM upserts probed-service records: IPs, domain names, network
// services, and detected software versions with lifecycle edges, in one
// write transaction.
func (a *Adapter) StoreEASM(ctx context.Context, records []models.EASMResult) error {
	now := Now()

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := map[string]any{
			"ip":          "",
			"version":     0,
			"domain_name": record.DomainName,
			"port":        record.Port,
			"protocol":    record.Protocol,
			"service":     record.Service,
		}
		if record.IP != "" {
			addr, err := ipnet.ParseAddr(record.IP)
			if err != nil {
				return err
			}
			row["ip"] = ipnet.FormatAddr(addr)
			row["version"] = ipnet.Version(addr)
		}
		versions := make([]map[string]any, 0, len(record.SoftwareVersions))
		for _, sv := range record.SoftwareVersions {
			versions = append(versions, map[string]any{"name": sv.Name, "version": sv.Version})
		}
		row["software_versions"] = versions
		rows = append(rows, row)
	}

	statements := []statement{
		{easmHostQuery, map[string]any{"records": rows, "now": now}},
		{easmServiceQuery, map[string]any{"records": rows, "now": now}},
		{easmSoftwareQuery, map[string]any{"records": rows, "now": now}},
	}
	if err := a.runWrite(ctx, statements); err != nil {
		return err
	}

	if err := a.DefaultIPParentConstraint(ctx); err != nil {
		return err
	}
	return a.DefaultSubnetParentConstraint(ctx)
}

const easmHostQuery = `
UNWIND $records AS r
MERGE (host:Host {hostname: r.domain_name})
MERGE (node:Node {name: coalesce(nullif(r.ip, ""), r.domain_name)})
MERGE (node)-[:IS_A]->(host)
MERGE (d:DomainName {domain_name: r.domain_name, tag: ["CASM"]})
WITH node, d, r
WHERE r.ip <> ""
MERGE (ip:IP {address: r.ip})
SET ip.version = r.version
WITH node, d, ip
OPTIONAL MATCH (node)-[assigned:HAS_ASSIGNED]->(ip) WHERE assigned.end IS NULL
FOREACH (_ IN CASE WHEN assigned IS NULL THEN [1] ELSE [] END |
  CREATE (node)-[:HAS_ASSIGNED {start: datetime($now)}]->(ip))
WITH d, ip
OPTIONAL MATCH (ip)-[res:RESOLVES_TO]->(d) WHERE res.end IS NULL
FOREACH (_ IN CASE WHEN res IS NULL THEN [1] ELSE [] END |
  CREATE (ip)-[:RESOLVES_TO {start: datetime($now)}]->(d))`

const easmServiceQuery = `
UNWIND $records AS r
MATCH (host:Host {hostname: r.domain_name})
MERGE (ns:NetworkService {service: r.service, tag: ["CASM"]})
SET ns.port = r.port, ns.protocol = r.protocol
WITH ns, host
OPTIONAL MATCH (ns)-[onr:ON]->(host) WHERE onr.end IS NULL
FOREACH (_ IN CASE WHEN onr IS NULL THEN [1] ELSE [] END |
  CREATE (ns)-[:ON {start: datetime($now)}]->(host))`

const easmSoftwareQuery = `
UNWIND $records AS r
MATCH (host:Host {hostname: r.domain_name})
UNWIND r.software_versions AS sv
MERGE (soft:SoftwareVersion {version: sv.version, tag: ["CASM"]})
SET soft.name = sv.name
WITH soft, host
OPTIONAL MATCH (soft)-[onr:ON]->(host) WHERE onr.end IS NULL
FOREACH (_ IN CASE WHEN onr IS NULL THEN [1] ELSE [] END |
  CREATE (soft)-[:ON {start: datetime($now)}]->(host))`

// DefaultIPParentConstraint attaches parentless IPs to the default subnet of
// their address family and removes default edges made redundant by a more
// specific parent.
func (a *Adapter) DefaultIPParentConstraint(ctx context.Context) error {
	queries := []string{
		`MATCH (ip:IP) WHERE NOT EXISTS ((ip)-[:PART_OF]->(:Subnet)) AND ip.version = 4
		 MATCH (s:Subnet {range: "0.0.0.0/0"})
		 MERGE (ip)-[:PART_OF]->(s)`,
		`MATCH (internet:Subnet {range: "0.0.0.0/0"})
		 MATCH (ip:IP)-[r:PART_OF]->(internet) WHERE count{(ip)-[:PART_OF]->(:Subnet)} > 1
		 DELETE r`,
		`MATCH (ip:IP) WHERE NOT EXISTS ((ip)-[:PART_OF]->(:Subnet)) AND ip.version = 6
		 MATCH (s:Subnet {range: "::/0"})
		 MERGE (ip)-[:PART_OF]->(s)`,
		`MATCH (internet:Subnet {range: "::/0"})
		 MATCH (ip:IP)-[r:PART_OF]->(internet) WHERE count{(ip)-[:PART_OF]->(:Subnet)} > 1
		 DELETE r`,
	}
	for _, query := range queries {
		if _, err := a.run(ctx, query, nil); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSubnetParentConstraint mirrors DefaultIPParentConstraint for
// non-default subnets.
func (a *Adapter) DefaultSubnetParentConstraint(ctx context.Context) error {
	queries := []string{
		`MATCH (s:Subnet) WHERE NOT EXISTS ((s)-[:PART_OF]->(:Subnet)) AND s.version = 4 AND s.range <> "0.0.0.0/0"
		 MATCH (internet:Subnet {range: "0.0.0.0/0"})
		 MERGE (s)-[:PART_OF]->(internet)`,
		`MATCH (internet:Subnet {range: "0.0.0.0/0"})
		 MATCH (subnet:Subnet)-[r:PART_OF]->(internet) WHERE count{(subnet)-[:PART_OF]->(:Subnet)} > 1
		 DELETE r`,
		`MATCH (s:Subnet) WHERE NOT EXISTS ((s)-[:PART_OF]->(:Subnet)) AND s.version = 6 AND s.range <> "::/0"
		 MATCH (internet:Subnet {range: "::/0"})
		 MERGE (s)-[:PART_OF]->(internet)`,
		`MATCH (internet:Subnet {range: "::/0"})
		 MATCH (subnet:Subnet)-[r:PART_OF]->(internet) WHERE count{(subnet)-[:PART_OF]->(:Subnet)} > 1
		 DELETE r`,
	}
	for _, query := range queries {
		if _, err := a.run(ctx, query, nil); err != nil {
			return err
		}
	}
	return nil
}

// GetIPAssetInfo returns, for each IP (or the one given), its subnets,
// contacts, resolved domains, node centralities, and supporting missions.
func (a *Adapter) GetIPAssetInfo(ctx context.Context, ip string, limit, offset int) ([]models.IPAssetInfo, error) {
	ipFilter := ""
	if ip != "" {
		ipFilter = " {address: $ip}"
	}
	query := `
	MATCH (ip:IP` + ipFilter + `)
	WITH ip, [(ip)-[:PART_OF]-(s:Subnet) | s.range] AS subnets
	WITH ip, subnets, [(ip)-[:PART_OF]-(s:Subnet)-[:HAS]-(c:Contact) | c.name] AS contacts
	WITH ip, subnets, contacts, [(ip)-[:RESOLVES_TO]-(d:DomainName) | d.domain_name] AS domains
	WITH ip, subnets, contacts, domains,
	     [(ip)-[:HAS_ASSIGNED]-(n:Node) | {degree_centrality: n.degree_centrality,
	       pagerank_centrality: n.pagerank_centrality,
	       topology_betweenness: n.topology_betweenness,
	       topology_degree: n.topology_degree}] AS nodes
	WITH ip, subnets, contacts, domains, nodes,
	     [(ip)-[:HAS_ASSIGNED]-(:Node)-[:IS_A]-(:Host)-[:PROVIDED_BY]-(:Component)-[:SUPPORTS]-(m:Mission) | m.name] AS missions
	RETURN ip.address AS ip, ip.tag AS tag, subnets, contacts, domains, nodes, missions
	ORDER BY ip.address
	SKIP $offset
	LIMIT $limit`

	records, err := a.run(ctx, query, map[string]any{"ip": ip, "limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}

	infos := make([]models.IPAssetInfo, 0, len(records))
	for _, record := range records {
		info := models.IPAssetInfo{
			IP:          stringValue(record, "ip"),
			Subnets:     stringList(record, "subnets"),
			Contacts:    stringList(record, "contacts"),
			DomainNames: stringList(record, "domains"),
			Missions:    stringList(record, "missions"),
			Tag:         stringList(record, "tag"),
		}
		if raw, ok := record.Get("nodes"); ok {
			if list, ok := raw.([]any); ok {
				for _, item := range list {
					if m, ok := item.(map[string]any); ok {
						info.Nodes = append(info.Nodes, models.NodeCentrality{
							DegreeCentrality:    floatPtr(m["degree_centrality"]),
							PagerankCentrality:  floatPtr(m["pagerank_centrality"]),
							TopologyBetweenness: floatPtr(m["topology_betweenness"]),
							TopologyDegree:      floatPtr(m["topology_degree"]),
						})
					}
				}
			}
		}
		if len(info.Missions) > 0 {
			info.Critical = 1
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetMissions returns all missions with their structure JSON.
func (a *Adapter) GetMissions(ctx context.Context, limit int) ([]models.Mission, error) {
	records, err := a.run(ctx, `
		MATCH (m:Mission)
		RETURN m.name AS name, m.description AS description, m.criticality AS criticality,
		       m.confidentiality_requirement AS confidentiality_requirement,
		       m.integrity_requirement AS integrity_requirement,
		       m.availability_requirement AS availability_requirement,
		       m.structure AS structure
		LIMIT $limit`,
		map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}

	missions := make([]models.Mission, 0, len(records))
	for _, record := range records {
		missions = append(missions, models.Mission{
			Name:                       stringValue(record, "name"),
			Description:                stringValue(record, "description"),
			Criticality:                recordFloatPtr(record, "criticality"),
			ConfidentialityRequirement: recordFloatPtr(record, "confidentiality_requirement"),
			IntegrityRequirement:       recordFloatPtr(record, "integrity_requirement"),
			AvailabilityRequirement:    recordFloatPtr(record, "availability_requirement"),
			Structure:                  stringValue(record, "structure"),
		})
	}
	return missions, nil
}

func stringValue(record *recordType, key string) string {
	if raw, ok := record.Get(key); ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

func stringList(record *recordType, key string) []string {
	raw, ok := record.Get(key)
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func floatPtr(raw any) *float64 {
	switch v := raw.(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func recordFloatPtr(record *recordType, key string) *float64 {
	if raw, ok := record.Get(key); ok {
		return floatPtr(raw)
	}
	return nil
}
