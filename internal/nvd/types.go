// Package nvd implements the client, parser, and CPE matching for the
// National Vulnerability Database API 2.0.
package nvd

import (
	"encoding/json"
	"sort"
)

// =============================================================================
// Raw API payloads
// =============================================================================

// APIResponse is the paged envelope returned by /rest/json/cves/2.0.
type APIResponse struct {
	ResultsPerPage  int            `json:"resultsPerPage"`
	StartIndex      int            `json:"startIndex"`
	TotalResults    int            `json:"totalResults"`
	Format          string         `json:"format"`
	Version         string         `json:"version"`
	Timestamp       string         `json:"timestamp"`
	Vulnerabilities []CVEContainer `json:"vulnerabilities"`
}

// HasMore reports whether further result pages remain after this one.
func (r *APIResponse) HasMore() bool {
	return r.StartIndex+r.ResultsPerPage < r.TotalResults
}

// CVEContainer wraps one CVE record.
type CVEContainer struct {
	CVE RawCVE `json:"cve"`
}

// RawCVE is a CVE record as served by the API. Configurations are kept both
// typed (for CPE matching) and raw (for round-tripping into the graph store).
type RawCVE struct {
	ID           string        `json:"id"`
	Published    string        `json:"published"`
	LastModified string        `json:"lastModified"`
	Descriptions []LangString  `json:"descriptions"`
	Metrics      Metrics       `json:"metrics"`
	Weaknesses   []Weakness    `json:"weaknesses"`
	References   []Reference   `json:"references"`
	RawConfigs   json.RawMessage `json:"-"`

	Configurations []Configuration `json:"configurations"`
}

// UnmarshalJSON keeps the verbatim configurations payload alongside the
// typed form.
func (c *RawCVE) UnmarshalJSON(data []byte) error {
	type alias RawCVE
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var probe struct {
		Configurations json.RawMessage `json:"configurations"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*c = RawCVE(a)
	c.RawConfigs = probe.Configurations
	return nil
}

// LangString is a localized text value.
type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Weakness carries CWE assignments.
type Weakness struct {
	Source      string       `json:"source"`
	Type        string       `json:"type"`
	Description []LangString `json:"description"`
}

// Reference is an advisory link with its tags.
type Reference struct {
	URL    string   `json:"url"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// Metrics groups the per-version CVSS metric lists.
type Metrics struct {
	CVSSMetricV2  []MetricV2  `json:"cvssMetricV2"`
	CVSSMetricV30 []MetricV3  `json:"cvssMetricV30"`
	CVSSMetricV31 []MetricV3  `json:"cvssMetricV31"`
	CVSSMetricV40 []MetricV40 `json:"cvssMetricV40"`
}

// MetricV2 is one CVSS v2 assessment.
type MetricV2 struct {
	Source                  string     `json:"source"`
	Type                    string     `json:"type"`
	CVSSData                CVSSDataV2 `json:"cvssData"`
	BaseSeverity            string     `json:"baseSeverity"`
	ExploitabilityScore     float64    `json:"exploitabilityScore"`
	ImpactScore             float64    `json:"impactScore"`
	ACInsufInfo             bool       `json:"acInsufInfo"`
	ObtainAllPrivilege      bool       `json:"obtainAllPrivilege"`
	ObtainUserPrivilege     bool       `json:"obtainUserPrivilege"`
	ObtainOtherPrivilege    bool       `json:"obtainOtherPrivilege"`
	UserInteractionRequired bool       `json:"userInteractionRequired"`
}

// CVSSDataV2 is the vector payload of a v2 metric.
type CVSSDataV2 struct {
	VectorString          string  `json:"vectorString"`
	AccessVector          string  `json:"accessVector"`
	AccessComplexity      string  `json:"accessComplexity"`
	Authentication        string  `json:"authentication"`
	ConfidentialityImpact string  `json:"confidentialityImpact"`
	IntegrityImpact       string  `json:"integrityImpact"`
	AvailabilityImpact    string  `json:"availabilityImpact"`
	BaseScore             float64 `json:"baseScore"`
}

// MetricV3 is one CVSS v3.0 or v3.1 assessment.
type MetricV3 struct {
	Source              string     `json:"source"`
	Type                string     `json:"type"`
	CVSSData            CVSSDataV3 `json:"cvssData"`
	ExploitabilityScore float64    `json:"exploitabilityScore"`
	ImpactScore         float64    `json:"impactScore"`
}

// CVSSDataV3 is the vector payload of a v3.x metric.
type CVSSDataV3 struct {
	VectorString          string  `json:"vectorString"`
	AttackVector          string  `json:"attackVector"`
	AttackComplexity      string  `json:"attackComplexity"`
	PrivilegesRequired    string  `json:"privilegesRequired"`
	UserInteraction       string  `json:"userInteraction"`
	Scope                 string  `json:"scope"`
	ConfidentialityImpact string  `json:"confidentialityImpact"`
	IntegrityImpact       string  `json:"integrityImpact"`
	AvailabilityImpact    string  `json:"availabilityImpact"`
	BaseScore             float64 `json:"baseScore"`
	BaseSeverity          string  `json:"baseSeverity"`
}

// MetricV40 is one CVSS v4.0 assessment.
type MetricV40 struct {
	Source   string      `json:"source"`
	Type     string      `json:"type"`
	CVSSData CVSSDataV40 `json:"cvssData"`
}

// CVSSDataV40 is the vector payload of a v4.0 metric.
type CVSSDataV40 struct {
	VectorString          string  `json:"vectorString"`
	AttackVector          string  `json:"attackVector"`
	AttackComplexity      string  `json:"attackComplexity"`
	AttackRequirements    string  `json:"attackRequirements"`
	PrivilegesRequired    string  `json:"privilegesRequired"`
	UserInteraction       string  `json:"userInteraction"`
	VulnConfidentiality   string  `json:"vulnConfidentialityImpact"`
	VulnIntegrity         string  `json:"vulnIntegrityImpact"`
	VulnAvailability      string  `json:"vulnAvailabilityImpact"`
	SubConfidentiality    string  `json:"subConfidentialityImpact"`
	SubIntegrity          string  `json:"subIntegrityImpact"`
	SubAvailability       string  `json:"subAvailabilityImpact"`
	ExploitMaturity       string  `json:"exploitMaturity"`
	BaseScore             float64 `json:"baseScore"`
	BaseSeverity          string  `json:"baseSeverity"`
}

// Configuration is one applicability statement of a CVE.
type Configuration struct {
	Operator string     `json:"operator,omitempty"`
	Negate   bool       `json:"negate,omitempty"`
	Nodes    []ConfNode `json:"nodes"`
}

// ConfNode is one node of a configuration tree.
type ConfNode struct {
	Operator string     `json:"operator"`
	Negate   bool       `json:"negate,omitempty"`
	CPEMatch []CPEMatch `json:"cpeMatch"`
}

// CPEMatch is a single CPE applicability test.
type CPEMatch struct {
	Vulnerable            bool   `json:"vulnerable"`
	Criteria              string `json:"criteria"`
	MatchCriteriaID       string `json:"matchCriteriaId"`
	VersionStartIncluding string `json:"versionStartIncluding,omitempty"`
	VersionStartExcluding string `json:"versionStartExcluding,omitempty"`
	VersionEndIncluding   string `json:"versionEndIncluding,omitempty"`
	VersionEndExcluding   string `json:"versionEndExcluding,omitempty"`
}

// MatchCriteriaResponse is the envelope returned by /rest/json/cpematch/2.0.
type MatchCriteriaResponse struct {
	MatchStrings []struct {
		MatchString struct {
			Criteria        string `json:"criteria"`
			MatchCriteriaID string `json:"matchCriteriaId"`
			Matches         []struct {
				CPEName     string `json:"cpeName"`
				CPENameID   string `json:"cpeNameId"`
			} `json:"matches"`
		} `json:"matchString"`
	} `json:"matchStrings"`
}

// =============================================================================
// Normalized vulnerability
// =============================================================================

// CVSSv2 is the normalized CVSS v2 view used by the classifier and the
// graph upsert. Present is false when the source record had no v2 metric.
type CVSSv2 struct {
	Present                 bool
	VectorString            string
	AccessVector            string
	AccessComplexity        string
	Authentication          string
	ConfidentialityImpact   string
	IntegrityImpact         string
	AvailabilityImpact      string
	BaseScore               float64
	BaseSeverity            string
	ExploitabilityScore     float64
	ImpactScore             float64
	ACInsufInfo             bool
	ObtainAllPrivilege      bool
	ObtainUserPrivilege     bool
	ObtainOtherPrivilege    bool
	UserInteractionRequired bool
}

// CVSSv3 is the normalized CVSS v3.0/v3.1 view.
type CVSSv3 struct {
	Present               bool
	VectorString          string
	AttackVector          string
	AttackComplexity      string
	PrivilegesRequired    string
	UserInteraction       string
	Scope                 string
	ConfidentialityImpact string
	IntegrityImpact       string
	AvailabilityImpact    string
	BaseScore             float64
	BaseSeverity          string
	ExploitabilityScore   float64
	ImpactScore           float64
}

// CVSSv40 is the normalized CVSS v4.0 view.
type CVSSv40 struct {
	Present                         bool
	VectorString                    string
	AttackVector                    string
	AttackComplexity                string
	AttackRequirements              string
	PrivilegesRequired              string
	UserInteraction                 string
	VulnerableSystemConfidentiality string
	VulnerableSystemIntegrity       string
	VulnerableSystemAvailability    string
	SubsequentSystemConfidentiality string
	SubsequentSystemIntegrity       string
	SubsequentSystemAvailability    string
	ExploitMaturity                 string
	BaseScore                       float64
	BaseSeverity                    string
}

// Vulnerability is the normalized form of one CVE record, ready for
// classification and graph upsert.
type Vulnerability struct {
	CVE            string
	Description    string
	CWE            map[string]bool
	CVSSv2         CVSSv2
	CVSSv30        CVSSv3
	CVSSv31        CVSSv3
	CVSSv40        CVSSv40
	CPEType        map[string]bool
	RefTags        map[string]bool
	Configurations []Configuration
	RawConfigs     json.RawMessage
	Published      string
	LastModified   string
	ResultImpacts  []string
}

// SetKeys returns the sorted members of a string set.
func SetKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
