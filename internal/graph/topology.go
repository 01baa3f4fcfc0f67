package graph

import (
	"context"
	"encoding/json"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/models"
)

// CreateTopology ingests a traceroute result: every hop becomes an
// IS_CONNECTED_TO edge between the nodes holding the two router IPs,
// weighted by the TTL delta and stamped with the scan time.
func (a *Adapter) CreateTopology(ctx context.Context, result *models.TracerouteResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return faults.Wrap(faults.BadInput, err, "encoding traceroute result")
	}

	_, err = a.run(ctx, `
		WITH apoc.convert.fromJsonMap($nmap_result) AS value
		UNWIND value.data AS data
		UNWIND data.hops AS hops
		MERGE (prev_ip:IP {address: hops.prev_ip})
		MERGE (prev_node:Node)-[:HAS_ASSIGNED]->(prev_ip)
		MERGE (next_ip:IP {address: hops.next_ip})
		MERGE (next_node:Node)-[:HAS_ASSIGNED]->(next_ip)
		MERGE (prev_node)-[rel:IS_CONNECTED_TO {hops: hops.hops}]->(next_node)
		ON MATCH SET rel.last_detection = datetime(value.time)
		ON CREATE SET rel.last_detection = datetime(value.time)`,
		map[string]any{"nmap_result": string(payload)})
	return err
}
