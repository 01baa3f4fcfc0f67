// Package models defines the wire formats exchanged between scan activities,
// the ISIM REST collaborator, and the graph store.
package models

// Host is a scanned endpoint as published to POST /assets.
type Host struct {
	IPAddress   string   `json:"ip_address"`
	Tag         []string `json:"tag"`
	DomainNames []string `json:"domain_names"`
	URIs        []string `json:"uris"`
	Subnets     []string `json:"subnets"`
}

// Subnet is a CIDR range observed during scanning.
type Subnet struct {
	IPRange  string   `json:"ip_range"`
	Note     string   `json:"note"`
	Contacts []string `json:"contacts,omitempty"`
	Parents  []string `json:"parents,omitempty"`
	OrgUnits []string `json:"org_units,omitempty"`
}

// Device is a physical or virtual machine identified by a scan.
type Device struct {
	Name      string   `json:"name"`
	IPAddress string   `json:"ip_address"`
	OrgUnits  []string `json:"org_units,omitempty"`
}

// SoftwareVersion is a detected software install keyed by its CPE 2.3 string.
type SoftwareVersion struct {
	Version     string   `json:"version"`
	Description string   `json:"description"`
	IPAddresses []string `json:"ip_addresses"`
	Tag         []string `json:"tag"`
}

// Application is a service process running on a device.
type Application struct {
	Name   string `json:"name"`
	Device string `json:"device"`
}

// NmapResults is the full asset document produced by the basic Nmap scan.
type NmapResults struct {
	Hosts            []Host            `json:"hosts"`
	Subnets          []Subnet          `json:"subnets"`
	Devices          []Device          `json:"devices"`
	SoftwareVersions []SoftwareVersion `json:"software_versions"`
	Applications     []Application     `json:"applications"`
}

// IPAssetInfo aggregates everything known about one IP address, as returned
// by GET /ips.
type IPAssetInfo struct {
	IP          string           `json:"ip"`
	DomainNames []string         `json:"domain_names"`
	Subnets     []string         `json:"subnets"`
	Contacts    []string         `json:"contacts"`
	Missions    []string         `json:"missions"`
	Nodes       []NodeCentrality `json:"nodes"`
	Tag         []string         `json:"tag,omitempty"`
	Critical    int              `json:"critical"`
}

// NodeCentrality carries the centrality metrics stored on a Node.
type NodeCentrality struct {
	DegreeCentrality    *float64 `json:"degree_centrality"`
	PagerankCentrality  *float64 `json:"pagerank_centrality"`
	TopologyBetweenness *float64 `json:"topology_betweenness"`
	TopologyDegree      *float64 `json:"topology_degree"`
}
