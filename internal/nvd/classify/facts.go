// Package classify implements the rule-based vulnerability impact
// classifier. The phrase lists and rule ordering are normative; changing
// them changes the labels stored on CVE nodes.
package classify

import "strings"

// Facts is the classifier's view of one vulnerability: its description,
// CPE part set, and the impact-relevant subset of each CVSS version.
type Facts struct {
	Description string
	CPEType     map[string]bool
	V2          V2Facts
	V30         V3Facts
	V31         V3Facts
	V40         V40Facts
}

// V2Facts carries the CVSS v2 fields consulted by the rules.
type V2Facts struct {
	Present               bool
	ConfidentialityImpact string
	IntegrityImpact       string
	AvailabilityImpact    string
	ObtainAllPrivilege    bool
	ObtainUserPrivilege   bool
}

// V3Facts carries the CVSS v3.x fields consulted by the rules.
type V3Facts struct {
	Present               bool
	PrivilegesRequired    string
	ConfidentialityImpact string
	IntegrityImpact       string
	AvailabilityImpact    string
}

// V40Facts carries the CVSS v4.0 fields consulted by the rules.
type V40Facts struct {
	Present                         bool
	PrivilegesRequired              string
	VulnerableSystemConfidentiality string
	VulnerableSystemIntegrity       string
	VulnerableSystemAvailability    string
}

// aboutSystem reports whether the CVE targets a system component: the part
// set contains 'o' or 'h' and does not contain 'a'.
func aboutSystem(cpeType map[string]bool) bool {
	return (cpeType["o"] || cpeType["h"]) && !cpeType["a"]
}

// aboutApplication reports whether the CVE targets an application.
func aboutApplication(cpeType map[string]bool) bool {
	return cpeType["a"]
}

// testIncidence reports whether at least one keyword occurs in the
// description. Matching is case-insensitive.
func testIncidence(description string, keywords []string) bool {
	lower := strings.ToLower(description)
	for _, word := range keywords {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// containsAny reports whether any phrase occurs verbatim in the description.
func containsAny(description string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(description, phrase) {
			return true
		}
	}
	return false
}
