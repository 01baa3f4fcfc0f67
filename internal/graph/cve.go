package graph

import (
	"context"
	"strings"

	"github.com/resilmesh/casm/internal/nvd"
	"github.com/resilmesh/casm/pkg/cpe"
)

// softwareVersionMatch matches a SoftwareVersion by its short
// "vendor:product:version" key against both storage forms: the short key
// itself and the full CPE 2.3 string carrying it.
const softwareVersionMatch = `
	MATCH (s:SoftwareVersion)
	WHERE s.version = $version
	   OR any(p IN ['a', 'o', 'h'] WHERE s.version STARTS WITH ('cpe:2.3:' + p + ':' + $version + ':'))`

// SoftwareVersionRecord pairs a stored version key with its CVE sweep
// watermark.
type SoftwareVersionRecord struct {
	Version      string
	CVETimestamp string
}

// CVEExists reports whether a CVE node with the given id exists.
func (a *Adapter) CVEExists(ctx context.Context, cveID string) (bool, error) {
	records, err := a.run(ctx,
		"MATCH (c:CVE {CVE_id: $cve_id}) RETURN c.CVE_id LIMIT 1",
		map[string]any{"cve_id": cveID})
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// SoftwareVersionExists reports whether a SoftwareVersion with the given
// short "vendor:product:version" key exists in either storage form.
func (a *Adapter) SoftwareVersionExists(ctx context.Context, version string) (bool, error) {
	records, err := a.run(ctx,
		softwareVersionMatch+" RETURN s.version LIMIT 1",
		map[string]any{"version": version})
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// GetVersionsOfProduct returns the short "vendor:product:version" keys of
// all stored versions of one "vendor:product", normalizing full CPE 2.3
// strings down to the short form.
func (a *Adapter) GetVersionsOfProduct(ctx context.Context, vendorProduct string) ([]string, error) {
	records, err := a.run(ctx, `
		MATCH (s:SoftwareVersion)
		WHERE s.version STARTS WITH $short_prefix
		   OR any(p IN ['a', 'o', 'h'] WHERE s.version STARTS WITH ('cpe:2.3:' + p + ':' + $short_prefix))
		RETURN s.version AS version`,
		map[string]any{"short_prefix": vendorProduct + ":"})
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(records))
	for _, record := range records {
		if key, ok := shortVersionKey(stringValue(record, "version")); ok {
			versions = append(versions, key)
		}
	}
	return versions, nil
}

// shortVersionKey normalizes either storage form to
// "vendor:product:version".
func shortVersionKey(stored string) (string, bool) {
	if !strings.HasPrefix(stored, "cpe:") {
		if strings.Count(stored, ":") >= 2 {
			return stored, true
		}
		return "", false
	}
	id, err := cpe.Parse(stored)
	if err != nil {
		return "", false
	}
	return id.Vendor + ":" + id.Product + ":" + id.Version, true
}

// GetAllSoftwareVersions returns every stored software version with its
// watermark.
func (a *Adapter) GetAllSoftwareVersions(ctx context.Context) ([]SoftwareVersionRecord, error) {
	records, err := a.run(ctx,
		"MATCH (s:SoftwareVersion) RETURN s.version AS version, s.cve_timestamp AS cve_timestamp",
		nil)
	if err != nil {
		return nil, err
	}
	versions := make([]SoftwareVersionRecord, 0, len(records))
	for _, record := range records {
		versions = append(versions, SoftwareVersionRecord{
			Version:      stringValue(record, "version"),
			CVETimestamp: stringValue(record, "cve_timestamp"),
		})
	}
	return versions, nil
}

// SetCVETimestamp advances the per-version watermark.
func (a *Adapter) SetCVETimestamp(ctx context.Context, version, timestamp string) error {
	_, err := a.run(ctx,
		"MATCH (s:SoftwareVersion {version: $version}) SET s.cve_timestamp = $timestamp",
		map[string]any{"version": version, "timestamp": timestamp})
	return err
}

// CreateVulnerability creates the Vulnerability node for a CVE if absent.
func (a *Adapter) CreateVulnerability(ctx context.Context, description string) error {
	_, err := a.run(ctx,
		"MERGE (v:Vulnerability {description: $description})",
		map[string]any{"description": description})
	return err
}

// LinkVulnerabilityToSoftwareVersion opens (or keeps open) the IN edge
// between a Vulnerability and a SoftwareVersion. Both storage forms of the
// version key are matched; re-observing an open edge does not duplicate it.
func (a *Adapter) LinkVulnerabilityToSoftwareVersion(ctx context.Context, description, version string) error {
	_, err := a.run(ctx, `
		MATCH (v:Vulnerability {description: $description})`+
		softwareVersionMatch+`
		FOREACH (_ IN CASE WHEN NOT EXISTS {
		    MATCH (v)-[r:IN]->(s) WHERE r.end IS NULL
		  } THEN [1] ELSE [] END |
		  CREATE (v)-[:IN {start: datetime($now)}]->(s))`,
		map[string]any{"description": description, "version": version, "now": Now()})
	return err
}

// LinkCVEToVulnerability connects a CVE node to its Vulnerability node.
func (a *Adapter) LinkCVEToVulnerability(ctx context.Context, cveID, description string) error {
	_, err := a.run(ctx, `
		MATCH (c:CVE {CVE_id: $cve_id})
		MATCH (v:Vulnerability {description: $description})
		MERGE (v)-[:REFERS_TO]->(c)`,
		map[string]any{"cve_id": cveID, "description": description})
	return err
}

// CreateCVE inserts a CVE node with one owned CVSS child per version
// present in the source record, in one transaction. Absent versions are not
// materialized.
func (a *Adapter) CreateCVE(ctx context.Context, vuln *nvd.Vulnerability) error {
	query := `
	MERGE (c:CVE {CVE_id: $cve_id})
	SET c.description = $description,
	    c.cwe = $cwe,
	    c.cpe_type = $cpe_type,
	    c.ref_tags = $ref_tags,
	    c.published = $published,
	    c.last_modified = $last_modified,
	    c.result_impacts = $result_impacts,
	    c.configurations = $configurations`

	params := cveParams(vuln)

	if vuln.CVSSv2.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v2]->(v2:CVSSv2)
	SET v2 = $cvss_v2`
	}
	if vuln.CVSSv30.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v30]->(v30:CVSSv30)
	SET v30 = $cvss_v30`
	}
	if vuln.CVSSv31.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v31]->(v31:CVSSv31)
	SET v31 = $cvss_v31`
	}
	if vuln.CVSSv40.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v40]->(v40:CVSSv40)
	SET v40 = $cvss_v40`
	}

	_, err := a.run(ctx, query, params)
	return err
}

// UpdateCVE rewrites the attributes of an existing CVE node. CVSS children
// for versions present in the record are rewritten; children for absent
// versions are left unmodified.
func (a *Adapter) UpdateCVE(ctx context.Context, vuln *nvd.Vulnerability) error {
	query := `
	MATCH (c:CVE {CVE_id: $cve_id})
	SET c.description = $description,
	    c.cwe = $cwe,
	    c.cpe_type = $cpe_type,
	    c.ref_tags = $ref_tags,
	    c.published = $published,
	    c.last_modified = $last_modified,
	    c.result_impacts = $result_impacts,
	    c.configurations = $configurations`

	params := cveParams(vuln)

	if vuln.CVSSv2.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v2]->(v2:CVSSv2)
	SET v2 = $cvss_v2`
	}
	if vuln.CVSSv30.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v30]->(v30:CVSSv30)
	SET v30 = $cvss_v30`
	}
	if vuln.CVSSv31.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v31]->(v31:CVSSv31)
	SET v31 = $cvss_v31`
	}
	if vuln.CVSSv40.Present {
		query += `
	MERGE (c)-[:HAS_CVSS_v40]->(v40:CVSSv40)
	SET v40 = $cvss_v40`
	}

	_, err := a.run(ctx, query, params)
	return err
}

func cveParams(vuln *nvd.Vulnerability) map[string]any {
	params := map[string]any{
		"cve_id":         vuln.CVE,
		"description":    vuln.Description,
		"cwe":            nvd.SetKeys(vuln.CWE),
		"cpe_type":       nvd.SetKeys(vuln.CPEType),
		"ref_tags":       nvd.SetKeys(vuln.RefTags),
		"published":      vuln.Published,
		"last_modified":  vuln.LastModified,
		"result_impacts": vuln.ResultImpacts,
		"configurations": string(vuln.RawConfigs),
	}

	if vuln.CVSSv2.Present {
		params["cvss_v2"] = map[string]any{
			"vectorString":            vuln.CVSSv2.VectorString,
			"accessVector":            vuln.CVSSv2.AccessVector,
			"accessComplexity":        vuln.CVSSv2.AccessComplexity,
			"authentication":          vuln.CVSSv2.Authentication,
			"confidentialityImpact":   vuln.CVSSv2.ConfidentialityImpact,
			"integrityImpact":         vuln.CVSSv2.IntegrityImpact,
			"availabilityImpact":      vuln.CVSSv2.AvailabilityImpact,
			"baseScore":               vuln.CVSSv2.BaseScore,
			"baseSeverity":            vuln.CVSSv2.BaseSeverity,
			"exploitabilityScore":     vuln.CVSSv2.ExploitabilityScore,
			"impactScore":             vuln.CVSSv2.ImpactScore,
			"acInsufInfo":             vuln.CVSSv2.ACInsufInfo,
			"obtainAllPrivilege":      vuln.CVSSv2.ObtainAllPrivilege,
			"obtainUserPrivilege":     vuln.CVSSv2.ObtainUserPrivilege,
			"obtainOtherPrivilege":    vuln.CVSSv2.ObtainOtherPrivilege,
			"userInteractionRequired": vuln.CVSSv2.UserInteractionRequired,
		}
	}
	if vuln.CVSSv30.Present {
		params["cvss_v30"] = cvssV3Params(vuln.CVSSv30)
	}
	if vuln.CVSSv31.Present {
		params["cvss_v31"] = cvssV3Params(vuln.CVSSv31)
	}
	if vuln.CVSSv40.Present {
		params["cvss_v40"] = map[string]any{
			"vectorString":                    vuln.CVSSv40.VectorString,
			"attackVector":                    vuln.CVSSv40.AttackVector,
			"attackComplexity":                vuln.CVSSv40.AttackComplexity,
			"attackRequirements":              vuln.CVSSv40.AttackRequirements,
			"privilegesRequired":              vuln.CVSSv40.PrivilegesRequired,
			"userInteraction":                 vuln.CVSSv40.UserInteraction,
			"vulnerableSystemConfidentiality": vuln.CVSSv40.VulnerableSystemConfidentiality,
			"vulnerableSystemIntegrity":       vuln.CVSSv40.VulnerableSystemIntegrity,
			"vulnerableSystemAvailability":    vuln.CVSSv40.VulnerableSystemAvailability,
			"subsequentSystemConfidentiality": vuln.CVSSv40.SubsequentSystemConfidentiality,
			"subsequentSystemIntegrity":       vuln.CVSSv40.SubsequentSystemIntegrity,
			"subsequentSystemAvailability":    vuln.CVSSv40.SubsequentSystemAvailability,
			"exploitMaturity":                 vuln.CVSSv40.ExploitMaturity,
			"baseScore":                       vuln.CVSSv40.BaseScore,
			"baseSeverity":                    vuln.CVSSv40.BaseSeverity,
		}
	}
	return params
}

func cvssV3Params(v nvd.CVSSv3) map[string]any {
	return map[string]any{
		"vectorString":          v.VectorString,
		"attackVector":          v.AttackVector,
		"attackComplexity":      v.AttackComplexity,
		"privilegesRequired":    v.PrivilegesRequired,
		"userInteraction":       v.UserInteraction,
		"scope":                 v.Scope,
		"confidentialityImpact": v.ConfidentialityImpact,
		"integrityImpact":       v.IntegrityImpact,
		"availabilityImpact":    v.AvailabilityImpact,
		"baseScore":             v.BaseScore,
		"baseSeverity":          v.BaseSeverity,
		"exploitabilityScore":   v.ExploitabilityScore,
		"impactScore":           v.ImpactScore,
	}
}
