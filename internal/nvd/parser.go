package nvd

import (
	"strings"

	"github.com/resilmesh/casm/internal/nvd/classify"
	"github.com/resilmesh/casm/pkg/logger"
)

// Parse normalizes raw CVE records into Vulnerability values and computes
// their impact classification. Records without an id or description are
// skipped with a warning.
func Parse(records []RawCVE, log *logger.Logger) []*Vulnerability {
	vulnerabilities := make([]*Vulnerability, 0, len(records))
	for _, record := range records {
		if record.ID == "" || len(record.Descriptions) == 0 {
			log.Warn("skipping CVE with missing id or descriptions", "id", record.ID)
			continue
		}

		vuln := &Vulnerability{
			CVE:            record.ID,
			Description:    record.Descriptions[0].Value,
			CWE:            map[string]bool{},
			CPEType:        map[string]bool{},
			RefTags:        map[string]bool{},
			Configurations: record.Configurations,
			RawConfigs:     record.RawConfigs,
			Published:      record.Published,
			LastModified:   record.LastModified,
		}

		for _, weakness := range record.Weaknesses {
			for _, desc := range weakness.Description {
				if desc.Value != "" {
					vuln.CWE[desc.Value] = true
				}
			}
		}

		parseMetrics(vuln, record.Metrics)

		for _, configuration := range record.Configurations {
			for _, node := range configuration.Nodes {
				for _, match := range node.CPEMatch {
					if !match.Vulnerable || match.Criteria == "" {
						continue
					}
					parts := strings.Split(match.Criteria, ":")
					if len(parts) > 2 {
						vuln.CPEType[parts[2]] = true
					}
				}
			}
		}

		for _, ref := range record.References {
			for _, tag := range ref.Tags {
				vuln.RefTags[tag] = true
			}
		}

		vuln.ResultImpacts = dedupe(classify.Classify(asFacts(vuln)))
		vulnerabilities = append(vulnerabilities, vuln)
	}

	return vulnerabilities
}

// parseMetrics copies the preferred metric of each CVSS version. Entries
// typed "Primary" win; otherwise the first entry is used.
func parseMetrics(vuln *Vulnerability, metrics Metrics) {
	if m := primaryV2(metrics.CVSSMetricV2); m != nil {
		vuln.CVSSv2 = CVSSv2{
			Present:                 true,
			VectorString:            m.CVSSData.VectorString,
			AccessVector:            m.CVSSData.AccessVector,
			AccessComplexity:        m.CVSSData.AccessComplexity,
			Authentication:          m.CVSSData.Authentication,
			ConfidentialityImpact:   m.CVSSData.ConfidentialityImpact,
			IntegrityImpact:         m.CVSSData.IntegrityImpact,
			AvailabilityImpact:      m.CVSSData.AvailabilityImpact,
			BaseScore:               m.CVSSData.BaseScore,
			BaseSeverity:            m.BaseSeverity,
			ExploitabilityScore:     m.ExploitabilityScore,
			ImpactScore:             m.ImpactScore,
			ACInsufInfo:             m.ACInsufInfo,
			ObtainAllPrivilege:      m.ObtainAllPrivilege,
			ObtainUserPrivilege:     m.ObtainUserPrivilege,
			ObtainOtherPrivilege:    m.ObtainOtherPrivilege,
			UserInteractionRequired: m.UserInteractionRequired,
		}
	}
	if m := primaryV3(metrics.CVSSMetricV30); m != nil {
		vuln.CVSSv30 = newCVSSv3(m)
	}
	if m := primaryV3(metrics.CVSSMetricV31); m != nil {
		vuln.CVSSv31 = newCVSSv3(m)
	}
	if m := primaryV40(metrics.CVSSMetricV40); m != nil {
		vuln.CVSSv40 = CVSSv40{
			Present:                         true,
			VectorString:                    m.CVSSData.VectorString,
			AttackVector:                    m.CVSSData.AttackVector,
			AttackComplexity:                m.CVSSData.AttackComplexity,
			AttackRequirements:              m.CVSSData.AttackRequirements,
			PrivilegesRequired:              m.CVSSData.PrivilegesRequired,
			UserInteraction:                 m.CVSSData.UserInteraction,
			VulnerableSystemConfidentiality: m.CVSSData.VulnConfidentiality,
			VulnerableSystemIntegrity:       m.CVSSData.VulnIntegrity,
			VulnerableSystemAvailability:    m.CVSSData.VulnAvailability,
			SubsequentSystemConfidentiality: m.CVSSData.SubConfidentiality,
			SubsequentSystemIntegrity:       m.CVSSData.SubIntegrity,
			SubsequentSystemAvailability:    m.CVSSData.SubAvailability,
			ExploitMaturity:                 m.CVSSData.ExploitMaturity,
			BaseScore:                       m.CVSSData.BaseScore,
			BaseSeverity:                    m.CVSSData.BaseSeverity,
		}
	}
}

func newCVSSv3(m *MetricV3) CVSSv3 {
	return CVSSv3{
		Present:               true,
		VectorString:          m.CVSSData.VectorString,
		AttackVector:          m.CVSSData.AttackVector,
		AttackComplexity:      m.CVSSData.AttackComplexity,
		PrivilegesRequired:    m.CVSSData.PrivilegesRequired,
		UserInteraction:       m.CVSSData.UserInteraction,
		Scope:                 m.CVSSData.Scope,
		ConfidentialityImpact: m.CVSSData.ConfidentialityImpact,
		IntegrityImpact:       m.CVSSData.IntegrityImpact,
		AvailabilityImpact:    m.CVSSData.AvailabilityImpact,
		BaseScore:             m.CVSSData.BaseScore,
		BaseSeverity:          m.CVSSData.BaseSeverity,
		ExploitabilityScore:   m.ExploitabilityScore,
		ImpactScore:           m.ImpactScore,
	}
}

func primaryV2(list []MetricV2) *MetricV2 {
	for i := range list {
		if list[i].Type == "Primary" {
			return &list[i]
		}
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}

func primaryV3(list []MetricV3) *MetricV3 {
	for i := range list {
		if list[i].Type == "Primary" {
			return &list[i]
		}
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}

func primaryV40(list []MetricV40) *MetricV40 {
	for i := range list {
		if list[i].Type == "Primary" {
			return &list[i]
		}
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}

// asFacts projects the normalized vulnerability onto the classifier input.
func asFacts(vuln *Vulnerability) classify.Facts {
	return classify.Facts{
		Description: vuln.Description,
		CPEType:     vuln.CPEType,
		V2: classify.V2Facts{
			Present:               vuln.CVSSv2.Present,
			ConfidentialityImpact: vuln.CVSSv2.ConfidentialityImpact,
			IntegrityImpact:       vuln.CVSSv2.IntegrityImpact,
			AvailabilityImpact:    vuln.CVSSv2.AvailabilityImpact,
			ObtainAllPrivilege:    vuln.CVSSv2.ObtainAllPrivilege,
			ObtainUserPrivilege:   vuln.CVSSv2.ObtainUserPrivilege,
		},
		V30: classify.V3Facts{
			Present:               vuln.CVSSv30.Present,
			PrivilegesRequired:    vuln.CVSSv30.PrivilegesRequired,
			ConfidentialityImpact: vuln.CVSSv30.ConfidentialityImpact,
			IntegrityImpact:       vuln.CVSSv30.IntegrityImpact,
			AvailabilityImpact:    vuln.CVSSv30.AvailabilityImpact,
		},
		V31: classify.V3Facts{
			Present:               vuln.CVSSv31.Present,
			PrivilegesRequired:    vuln.CVSSv31.PrivilegesRequired,
			ConfidentialityImpact: vuln.CVSSv31.ConfidentialityImpact,
			IntegrityImpact:       vuln.CVSSv31.IntegrityImpact,
			AvailabilityImpact:    vuln.CVSSv31.AvailabilityImpact,
		},
		V40: classify.V40Facts{
			Present:                         vuln.CVSSv40.Present,
			PrivilegesRequired:              vuln.CVSSv40.PrivilegesRequired,
			VulnerableSystemConfidentiality: vuln.CVSSv40.VulnerableSystemConfidentiality,
			VulnerableSystemIntegrity:       vuln.CVSSv40.VulnerableSystemIntegrity,
			VulnerableSystemAvailability:    vuln.CVSSv40.VulnerableSystemAvailability,
		},
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
