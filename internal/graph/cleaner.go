package graph

import "context"

// cleanBatchLimit bounds how many edges one periodic-commit batch deletes.
const cleanBatchLimit = 1000

// CleanOldVulnerabilities deletes IN edges between vulnerabilities and
// software versions whose observation window closed before the retention
// cutoff.
func (a *Adapter) CleanOldVulnerabilities(ctx context.Context) error {
	query := `CALL apoc.periodic.commit('
		WITH datetime() - duration($duration) AS popTime
		MATCH (vul:Vulnerability)-[r:IN]->(s:SoftwareVersion)
		WHERE r.end < popTime
		WITH r LIMIT $limit
		DELETE r
		RETURN count(*)', {limit: $limit, duration: $duration})`
	_, err := a.run(ctx, query, map[string]any{"limit": cleanBatchLimit, "duration": retention})
	return err
}

// CleanHostLayer deletes aged ON edges between hosts and their network
// services and software versions.
func (a *Adapter) CleanHostLayer(ctx context.Context) error {
	query := `CALL apoc.periodic.commit('
		WITH datetime() - duration($duration) AS popTime
		MATCH (ns:NetworkService)-[r1:ON]->(h1:Host)
		WHERE r1.end < popTime
		WITH r1, popTime LIMIT $limit
		MATCH (sv:SoftwareVersion)-[r2:ON]->(h2:Host)
		WHERE r2.end < popTime
		WITH r1, r2 LIMIT $limit
		DELETE r1, r2
		RETURN count(*)', {limit: $limit, duration: $duration})`
	_, err := a.run(ctx, query, map[string]any{"limit": cleanBatchLimit, "duration": retention})
	return err
}

// CleanNetworkLayer deletes aged RESOLVES_TO, HAS_ASSIGNED, and
// IS_CONNECTED_TO edges.
func (a *Adapter) CleanNetworkLayer(ctx context.Context) error {
	query := `CALL apoc.periodic.commit('
		WITH datetime() - duration($duration) AS popTime
		MATCH (ip:IP)-[r1:RESOLVES_TO]->(d:DomainName)
		WHERE r1.end < popTime
		WITH r1, popTime LIMIT $limit
		MATCH (n:Node)-[r2:HAS_ASSIGNED]->(ip:IP)
		WHERE r2.end < popTime
		WITH r1, r2, popTime LIMIT $limit
		MATCH (n1:Node)-[r3:IS_CONNECTED_TO]->(n2:Node)
		WHERE r3.end < popTime
		WITH r1, r2, r3 LIMIT $limit
		DELETE r1, r2, r3
		RETURN count(*)', {limit: $limit, duration: $duration})`
	_, err := a.run(ctx, query, map[string]any{"limit": cleanBatchLimit, "duration": retention})
	return err
}

// CleanSecurityEvents deletes security events older than the retention
// window.
func (a *Adapter) CleanSecurityEvents(ctx context.Context) error {
	query := `CALL apoc.periodic.commit('
		WITH datetime() - duration($duration) AS popTime
		MATCH (secEvent:SecurityEvent)
		WHERE secEvent.detection_time < popTime
		WITH secEvent LIMIT $limit
		DETACH DELETE secEvent
		RETURN count(*)', {limit: $limit, duration: $duration})`
	_, err := a.run(ctx, query, map[string]any{"limit": cleanBatchLimit, "duration": retention})
	return err
}
