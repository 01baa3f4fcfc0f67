package graph

import (
	"context"
	"encoding/json"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/models"
)

// createTopologyProjection projects the physical topology: IS_CONNECTED_TO
// edges with exactly one hop.
func (a *Adapter) createTopologyProjection(ctx context.Context) error {
	_, err := a.run(ctx, `
		MATCH (source:Node)-[r:IS_CONNECTED_TO]->(target:Node) WHERE r.hops = 1
		RETURN gds.graph.project('topologyGraph', source, target)`, nil)
	return err
}

func (a *Adapter) dropTopologyProjection(ctx context.Context) error {
	_, err := a.run(ctx, "CALL gds.graph.drop('topologyGraph') YIELD graphName", nil)
	return err
}

// ComputeTopologyBetweenness computes betweenness centrality on one-hop
// topology edges and writes it onto each Node.
func (a *Adapter) ComputeTopologyBetweenness(ctx context.Context) error {
	if err := a.createTopologyProjection(ctx); err != nil {
		return err
	}
	defer a.dropTopologyProjection(ctx)

	_, err := a.run(ctx, `
		CALL gds.betweenness.stream('topologyGraph') YIELD nodeId, score
		MATCH (n:Node) WHERE id(n) = nodeId SET n.topology_betweenness = score`, nil)
	return err
}

// ComputeTopologyDegree computes degree centrality on one-hop topology
// edges and writes it onto each Node.
func (a *Adapter) ComputeTopologyDegree(ctx context.Context) error {
	if err := a.createTopologyProjection(ctx); err != nil {
		return err
	}
	defer a.dropTopologyProjection(ctx)

	_, err := a.run(ctx, `
		CALL gds.degree.stream('topologyGraph') YIELD nodeId, score
		MATCH (n:Node) WHERE id(n) = nodeId SET n.topology_degree = score`, nil)
	return err
}

// createFlowProjection aggregates every IS_CONNECTED_TO edge by count. Flow
// observations arrive in five-minute windows, so session boundaries are not
// recoverable; what matters for criticality is how many hosts talk to an
// important host.
func (a *Adapter) createFlowProjection(ctx context.Context) error {
	_, err := a.run(ctx, `
		CALL gds.graph.project('centralityGraph', ['Node'], {
		  IS_CONNECTED_TO: {properties: {numberOfConnections: {property: '*', aggregation: 'COUNT'}}}})
		YIELD graphName AS graph, relationshipProjection AS degreeProjection,
		  nodeCount AS nodes, relationshipCount AS rels`, nil)
	return err
}

func (a *Adapter) dropFlowProjection(ctx context.Context) error {
	_, err := a.run(ctx, "CALL gds.graph.drop('centralityGraph') YIELD graphName", nil)
	return err
}

// ComputeFlowDegree computes degree centrality on the flow projection.
func (a *Adapter) ComputeFlowDegree(ctx context.Context) error {
	if err := a.createFlowProjection(ctx); err != nil {
		return err
	}
	defer a.dropFlowProjection(ctx)

	_, err := a.run(ctx, `
		CALL gds.degree.stream('centralityGraph') YIELD nodeId, score
		MATCH (n:Node) WHERE id(n) = nodeId SET n.degree_centrality = score`, nil)
	return err
}

// ComputeFlowPagerank computes PageRank centrality on the flow projection.
func (a *Adapter) ComputeFlowPagerank(ctx context.Context) error {
	if err := a.createFlowProjection(ctx); err != nil {
		return err
	}
	defer a.dropFlowProjection(ctx)

	_, err := a.run(ctx, `
		CALL gds.pageRank.stream('centralityGraph') YIELD nodeId, score
		MATCH (n:Node) WHERE id(n) = nodeId SET n.pagerank_centrality = score`, nil)
	return err
}

// StoreCriticality writes mission criticality values onto the nodes that
// tie each host to its IP.
func (a *Adapter) StoreCriticality(ctx context.Context, criticalities []models.HostCriticality) error {
	payload, err := json.Marshal(criticalities)
	if err != nil {
		return faults.Wrap(faults.BadInput, err, "encoding criticalities")
	}
	_, err = a.run(ctx, `
		WITH apoc.convert.fromJsonList($json_string) AS value
		UNWIND value AS result
		MATCH (ip:IP {address: result.ip})
		MATCH (host:Host {hostname: result.hostname})
		MATCH (host)<-[:IS_A]-(node:Node)-[:HAS_ASSIGNED]->(ip)
		SET node.mission_criticality = result.criticality`,
		map[string]any{"json_string": string(payload)})
	return err
}

// CombineCriticality normalizes topology degree and betweenness onto [1,10]
// and fuses them with mission criticality:
//
//	final = (9*(degree_norm*betweenness_norm)/100 + 1) * mission_criticality
func (a *Adapter) CombineCriticality(ctx context.Context) error {
	_, err := a.run(ctx, `
		MATCH (n:Node)
		WITH max(n.topology_betweenness) AS max_betweenness, min(n.topology_betweenness) AS min_betweenness,
		     count(n) AS count_of_nodes
		MATCH (n:Node)
		WITH n, max_betweenness, min_betweenness, count_of_nodes,
		CASE
		  WHEN n.topology_degree IS NULL THEN 1
		  ELSE 9*(n.topology_degree / count_of_nodes) + 1
		END AS topology_degree_norm,
		CASE
		  WHEN n.topology_betweenness IS NULL THEN 1
		  ELSE 9*((n.topology_betweenness - min_betweenness) / (max_betweenness - min_betweenness)) + 1
		END AS topology_betweenness_norm,
		CASE
		  WHEN n.mission_criticality IS NULL THEN 1
		  ELSE n.mission_criticality
		END AS mission_criticality
		SET n.topology_degree_norm = topology_degree_norm
		SET n.topology_betweenness_norm = topology_betweenness_norm
		SET n.mission_criticality = mission_criticality
		SET n.final_criticality = ((9*n.topology_degree_norm*n.topology_betweenness_norm / 100) + 1) * n.mission_criticality`,
		nil)
	return err
}
