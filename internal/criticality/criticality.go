// Package criticality propagates mission importance across the
// mission-dependency DAG down to hosts. Centrality computation and the
// final fusion live in the graph store; this package owns the pure
// propagation.
package criticality

import (
	"math"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/models"
)

// entity is one queue item of the BFS walk.
type entity struct {
	id          string
	criticality float64
	kind        string
}

// MissionCriticality returns the numerical criticality of a mission: the
// explicit field when present, else the maximum of the three security
// requirements.
func MissionCriticality(mission *models.Mission) (float64, error) {
	if mission.Criticality != nil {
		return *mission.Criticality, nil
	}
	if mission.ConfidentialityRequirement != nil &&
		mission.IntegrityRequirement != nil &&
		mission.AvailabilityRequirement != nil {
		return math.Max(*mission.ConfidentialityRequirement,
			math.Max(*mission.IntegrityRequirement, *mission.AvailabilityRequirement)), nil
	}
	return 0, faults.New(faults.BadInput, "mission %q has no criticality nor security requirements", mission.Name)
}

// ComputeHostCriticalities walks every mission DAG breadth-first from the
// mission vertex. An OR aggregator divides the inbound criticality by its
// out-degree; AND aggregators and services pass it through unchanged. Each
// host ends up with the maximum value reached across all paths and all
// missions.
func ComputeHostCriticalities(missions []models.Mission) ([]models.HostCriticality, error) {
	var finalHosts []models.HostCriticality

	for i := range missions {
		mission := &missions[i]

		criticality, err := MissionCriticality(mission)
		if err != nil {
			return nil, err
		}

		if mission.Structure == "" {
			return nil, faults.New(faults.BadInput, "mission %q does not contain its structure", mission.Name)
		}
		structure, err := mission.DecodeStructure()
		if err != nil {
			return nil, faults.Wrap(faults.BadInput, err, "decoding structure of mission %q", mission.Name)
		}

		missionID := findMissionID(mission.Name, structure)
		queue := []entity{{id: missionID, criticality: criticality, kind: "mission"}}
		var hostResults []entity

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			if current.kind == "host" {
				hostResults = append(hostResults, current)
				continue
			}

			childCount := 0
			if current.kind == "OR" {
				for _, edge := range structure.Relationships.OneWay {
					if edge.From == current.id {
						childCount++
					}
				}
			}

			for _, edge := range structure.Relationships.OneWay {
				if edge.From != current.id {
					continue
				}
				childCriticality := current.criticality
				if current.kind == "OR" {
					childCriticality = current.criticality / float64(childCount)
				}
				queue = append(queue, entity{
					id:          edge.To,
					criticality: childCriticality,
					kind:        entityKind(structure, edge.To),
				})
			}
		}

		mergeHostCriticalities(hostResults, structure, &finalHosts)
	}

	return finalHosts, nil
}

// entityKind resolves a vertex id to its type; unknown ids yield an empty
// kind and propagate nothing further.
func entityKind(structure *models.MissionStructure, id string) string {
	for _, host := range structure.Nodes.Hosts {
		if host.ID == id {
			return "host"
		}
	}
	for _, service := range structure.Nodes.Services {
		if service.ID == id {
			return "service"
		}
	}
	for _, and := range structure.Nodes.Aggregations.And {
		if and == id {
			return "AND"
		}
	}
	for _, or := range structure.Nodes.Aggregations.Or {
		if or == id {
			return "OR"
		}
	}
	return ""
}

func findMissionID(name string, structure *models.MissionStructure) string {
	for _, mission := range structure.Nodes.Missions {
		if mission.Name == name {
			return mission.ID
		}
	}
	return ""
}

// mergeHostCriticalities resolves intermediate vertex results to concrete
// hostname/IP pairs and keeps the per-host maximum.
func mergeHostCriticalities(results []entity, structure *models.MissionStructure, finalHosts *[]models.HostCriticality) {
	for _, result := range results {
		for _, host := range structure.Nodes.Hosts {
			if host.ID != result.id {
				continue
			}
			candidate := models.HostCriticality{
				Hostname:    host.Hostname,
				IP:          host.IP,
				Criticality: result.criticality,
			}
			idx := indexOfHost(candidate, *finalHosts)
			if idx >= 0 {
				if candidate.Criticality > (*finalHosts)[idx].Criticality {
					(*finalHosts)[idx].Criticality = candidate.Criticality
				}
			} else {
				*finalHosts = append(*finalHosts, candidate)
			}
		}
	}
}

func indexOfHost(candidate models.HostCriticality, hosts []models.HostCriticality) int {
	for i, host := range hosts {
		if host.Hostname == candidate.Hostname && host.IP == candidate.IP {
			return i
		}
	}
	return -1
}
