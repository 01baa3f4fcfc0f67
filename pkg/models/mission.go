package models

import "encoding/json"

// Mission is a mission row returned by GET /missions. Structure holds the
// JSON mission-dependency DAG used by criticality propagation.
type Mission struct {
	Name                       string `json:"name"`
	Description                string `json:"description"`
	Criticality                *float64 `json:"criticality"`
	ConfidentialityRequirement *float64 `json:"confidentiality_requirement"`
	IntegrityRequirement       *float64 `json:"integrity_requirement"`
	AvailabilityRequirement    *float64 `json:"availability_requirement"`
	Structure                  string   `json:"structure"`
}

// MissionStructure is the decoded dependency DAG of one mission.
type MissionStructure struct {
	Nodes         MissionNodes         `json:"nodes"`
	Relationships MissionRelationships `json:"relationships"`
}

// MissionNodes groups the typed vertices of the DAG.
type MissionNodes struct {
	Missions     []MissionNode      `json:"missions"`
	Services     []ServiceNode      `json:"services"`
	Hosts        []HostNode         `json:"hosts"`
	Aggregations MissionAggregation `json:"aggregations"`
}

// MissionNode identifies a mission vertex.
type MissionNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServiceNode identifies a service/component vertex.
type ServiceNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HostNode identifies a host vertex with its address.
type HostNode struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	IP       string `json:"ip"`
}

// MissionAggregation lists the ids of AND/OR aggregator vertices.
type MissionAggregation struct {
	And []string `json:"and"`
	Or  []string `json:"or"`
}

// MissionRelationships holds the directed edges of the DAG.
type MissionRelationships struct {
	OneWay       []MissionEdge `json:"one_way"`
	HasIdentity  []MissionEdge `json:"has_identity,omitempty"`
	Dependencies []MissionEdge `json:"dependencies,omitempty"`
}

// MissionEdge is one directed edge.
type MissionEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DecodeStructure parses the embedded structure JSON.
func (m *Mission) DecodeStructure() (*MissionStructure, error) {
	var s MissionStructure
	if err := json.Unmarshal([]byte(m.Structure), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HostCriticality is one computed host criticality, as posted to
// POST /nodes/store_criticality.
type HostCriticality struct {
	Hostname    string  `json:"hostname"`
	IP          string  `json:"ip"`
	Criticality float64 `json:"criticality"`
}
