package criticality

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }

// buildMission assembles a mission whose DAG is mission -> aggregator ->
// two services -> one host each.
func buildMission(t *testing.T, name string, criticality float64, aggregator string) models.Mission {
	t.Helper()
	structure := models.MissionStructure{
		Nodes: models.MissionNodes{
			Missions: []models.MissionNode{{ID: "m1", Name: name}},
			Services: []models.ServiceNode{
				{ID: "s1", Name: "frontend"},
				{ID: "s2", Name: "backend"},
			},
			Hosts: []models.HostNode{
				{ID: "h1", Hostname: "web01", IP: "10.0.0.1"},
				{ID: "h2", Hostname: "db01", IP: "10.0.0.2"},
			},
		},
		Relationships: models.MissionRelationships{
			OneWay: []models.MissionEdge{
				{From: "m1", To: "agg"},
				{From: "agg", To: "s1"},
				{From: "agg", To: "s2"},
				{From: "s1", To: "h1"},
				{From: "s2", To: "h2"},
			},
		},
	}
	switch aggregator {
	case "OR":
		structure.Nodes.Aggregations.Or = []string{"agg"}
	case "AND":
		structure.Nodes.Aggregations.And = []string{"agg"}
	}

	encoded, err := json.Marshal(structure)
	require.NoError(t, err)

	return models.Mission{
		Name:        name,
		Criticality: floatPtr(criticality),
		Structure:   string(encoded),
	}
}

func TestORDividesCriticality(t *testing.T) {
	hosts, err := ComputeHostCriticalities([]models.Mission{
		buildMission(t, "payments", 10, "OR"),
	})
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	for _, host := range hosts {
		assert.Equal(t, 5.0, host.Criticality, host.Hostname)
	}
}

func TestANDPassesCriticalityThrough(t *testing.T) {
	hosts, err := ComputeHostCriticalities([]models.Mission{
		buildMission(t, "payments", 10, "AND"),
	})
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	for _, host := range hosts {
		assert.Equal(t, 10.0, host.Criticality, host.Hostname)
	}
}

func TestMaximumAcrossMissions(t *testing.T) {
	hosts, err := ComputeHostCriticalities([]models.Mission{
		buildMission(t, "payments", 10, "OR"),  // each host gets 5
		buildMission(t, "payments2", 8, "AND"), // each host gets 8
	})
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	for _, host := range hosts {
		assert.Equal(t, 8.0, host.Criticality, host.Hostname)
	}
}

func TestMissionCriticalityFromRequirements(t *testing.T) {
	mission := models.Mission{
		Name:                       "ops",
		ConfidentialityRequirement: floatPtr(3),
		IntegrityRequirement:       floatPtr(7),
		AvailabilityRequirement:    floatPtr(5),
	}
	value, err := MissionCriticality(&mission)
	require.NoError(t, err)
	assert.Equal(t, 7.0, value)

	// The explicit field wins over the requirements.
	mission.Criticality = floatPtr(9)
	value, err = MissionCriticality(&mission)
	require.NoError(t, err)
	assert.Equal(t, 9.0, value)
}

func TestMissionWithoutCriticalityFails(t *testing.T) {
	mission := models.Mission{Name: "broken"}
	_, err := MissionCriticality(&mission)
	assert.Error(t, err)
}

func TestMissionWithoutStructureFails(t *testing.T) {
	mission := models.Mission{Name: "broken", Criticality: floatPtr(5)}
	_, err := ComputeHostCriticalities([]models.Mission{mission})
	assert.Error(t, err)
}

func TestServicePassesThrough(t *testing.T) {
	// mission -> service -> host, no aggregator at all.
	structure := models.MissionStructure{
		Nodes: models.MissionNodes{
			Missions: []models.MissionNode{{ID: "m1", Name: "solo"}},
			Services: []models.ServiceNode{{ID: "s1", Name: "svc"}},
			Hosts:    []models.HostNode{{ID: "h1", Hostname: "host01", IP: "10.0.0.9"}},
		},
		Relationships: models.MissionRelationships{
			OneWay: []models.MissionEdge{
				{From: "m1", To: "s1"},
				{From: "s1", To: "h1"},
			},
		},
	}
	encoded, err := json.Marshal(structure)
	require.NoError(t, err)

	hosts, err := ComputeHostCriticalities([]models.Mission{{
		Name:        "solo",
		Criticality: floatPtr(6),
		Structure:   string(encoded),
	}})
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, 6.0, hosts[0].Criticality)
}
