package classify

// Phrases sufficient to confirm confidentiality loss when the CVSS metric
// alone reports only LOW/PARTIAL impact.
var confidentialityPhrases = []string{
	"devices allow remote attackers to read arbitrary files",
	"compromise the systems confidentiality",
	"read any file on the camera's linux filesystem",
	"gain read-write access to system settings",
	"all system settings can be read",
	"leak information about any clients connected to it",
	"read sensitive files on the system",
	"access arbitrary files on an affected device",
	"access system files",
	"gain unauthorized read access to files on the host",
	"obtain sensitive system information",
	"obtain sensitive information from kernel memory",
	"obtain privileged file system access",
	"routers allow directory traversal sequences",
	"packets can contain fragments of system memory",
	"obtain kernel memory",
	"read kernel memory",
	"read system memory",
	"reading system memory",
	"read device memory",
	"read host memory",
	"access kernel memory",
	"access sensitive kernel memory",
	"access shared memory",
	"host arbitrary files",
	"enumerate user accounts",
	"compromise an affected system",
}

// Phrases sufficient to confirm integrity loss at LOW/PARTIAL impact.
var integrityPhrases = []string{
	"compromise the systems confidentiality or integrity",
	"gain read-write access to system settings",
	"all system settings can be read and changed",
	"create arbitrary directories on the affected system",
	"on ismartalarm cube devices, there is incorrect access control",
	"bypass url filters that have been configured for an affected device",
	"bypass configured filters on the device",
	"modification of system files",
	"obtain privileged file system access",
	"change configuration settings",
	"compromise the affected system",
	"overwrite arbitrary kernel memory",
	"modify kernel memory",
	"overwrite kernel memory",
	"modifying kernel memory",
	"overwriting kernel memory",
	"corrupt kernel memory",
	"corrupt user memory",
	"upload firmware changes",
	"configuration parameter changes",
	"obtain sensitive information from kernel memory",
	"change the device's settings",
	"configuration changes",
	"modification of system states",
	"host arbitrary files",
}

// Phrases sufficient to confirm availability loss at LOW/PARTIAL impact.
var availabilityPhrases = []string{
	"an extended denial of service condition for the device",
	"exhaust the memory resources of the machine",
	"denial of service (dos) condition on an affected device",
	"crash systemui",
	"denial of service (dos) condition on the affected appliance",
	"cause the device to hang or unexpectedly reload",
	"denial of service (use-after-free) via a crafted application",
	"cause an affected device to reload",
	"cause an affected system to stop",
}

// Tokens whose verbatim presence alone implies availability loss.
var availabilityTokens = []string{"device crash", "device reload", "system crash", "cpu consumption"}

// hasSystemConfidentialityLoss evaluates confidentiality loss on system-class
// CVEs in CVSS-version-preferred order: HIGH/COMPLETE always qualifies,
// LOW/PARTIAL only with a sufficient-condition phrase.
func hasSystemConfidentialityLoss(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	if facts.V40.Present {
		if facts.V40.VulnerableSystemConfidentiality == "LOW" && testIncidence(facts.Description, confidentialityPhrases) {
			return true
		}
		return facts.V40.VulnerableSystemConfidentiality == "HIGH"
	}
	if facts.V31.Present {
		if facts.V31.ConfidentialityImpact == "LOW" && testIncidence(facts.Description, confidentialityPhrases) {
			return true
		}
		return facts.V31.ConfidentialityImpact == "HIGH"
	}
	if facts.V30.Present {
		if facts.V30.ConfidentialityImpact == "LOW" && testIncidence(facts.Description, confidentialityPhrases) {
			return true
		}
		return facts.V30.ConfidentialityImpact == "HIGH"
	}
	if facts.V2.ConfidentialityImpact == "PARTIAL" && testIncidence(facts.Description, confidentialityPhrases) {
		return true
	}
	return facts.V2.ConfidentialityImpact == "COMPLETE"
}

// hasSystemIntegrityLoss mirrors the confidentiality rule for integrity.
func hasSystemIntegrityLoss(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	if facts.V40.Present {
		if facts.V40.VulnerableSystemIntegrity == "LOW" && testIncidence(facts.Description, integrityPhrases) {
			return true
		}
		return facts.V40.VulnerableSystemIntegrity == "HIGH"
	}
	if facts.V31.Present {
		if facts.V31.IntegrityImpact == "LOW" && testIncidence(facts.Description, integrityPhrases) {
			return true
		}
		return facts.V31.IntegrityImpact == "HIGH"
	}
	if facts.V30.Present {
		if facts.V30.IntegrityImpact == "LOW" && testIncidence(facts.Description, integrityPhrases) {
			return true
		}
		return facts.V30.IntegrityImpact == "HIGH"
	}
	if facts.V2.IntegrityImpact == "PARTIAL" && testIncidence(facts.Description, integrityPhrases) {
		return true
	}
	return facts.V2.IntegrityImpact == "COMPLETE"
}

// hasSystemAvailabilityLoss adds two twists over the other two rules: the
// token list short-circuits to true, and any non-NONE availability impact
// qualifies once integrity loss is established.
func hasSystemAvailabilityLoss(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	for _, token := range availabilityTokens {
		if contains(facts.Description, token) {
			return true
		}
	}
	if facts.V40.Present {
		if facts.V40.VulnerableSystemAvailability == "LOW" && testIncidence(facts.Description, availabilityPhrases) {
			return true
		}
		if hasSystemIntegrityLoss(facts) {
			return facts.V40.VulnerableSystemAvailability != "NONE" && facts.V40.VulnerableSystemAvailability != ""
		}
		return facts.V40.VulnerableSystemAvailability == "HIGH"
	}
	if facts.V31.Present {
		if facts.V31.AvailabilityImpact == "LOW" && testIncidence(facts.Description, availabilityPhrases) {
			return true
		}
		if hasSystemIntegrityLoss(facts) {
			return facts.V31.AvailabilityImpact != "NONE" && facts.V31.AvailabilityImpact != ""
		}
		return facts.V31.AvailabilityImpact == "HIGH"
	}
	if facts.V30.Present {
		if facts.V30.AvailabilityImpact == "LOW" && testIncidence(facts.Description, availabilityPhrases) {
			return true
		}
		if hasSystemIntegrityLoss(facts) {
			return facts.V30.AvailabilityImpact != "NONE" && facts.V30.AvailabilityImpact != ""
		}
		return facts.V30.AvailabilityImpact == "HIGH"
	}
	if facts.V2.AvailabilityImpact == "PARTIAL" && testIncidence(facts.Description, availabilityPhrases) {
		return true
	}
	if hasSystemIntegrityLoss(facts) {
		return facts.V2.AvailabilityImpact != "NONE" && facts.V2.AvailabilityImpact != ""
	}
	return facts.V2.AvailabilityImpact == "COMPLETE"
}

// systemConfidentialityChanged reports system-level confidentiality loss on
// a system-class CVE: HIGH confidentiality impact in CVSS v4.0 (vulnerable
// system), v3.1 or v3.0 when present, or PARTIAL in CVSS v2. The CVSS scope
// metric is not read, and the "in the remote system" phrase does not change
// the result.
func systemConfidentialityChanged(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	remote := contains(facts.Description, "in the remote system")
	if facts.V40.Present && facts.V40.VulnerableSystemConfidentiality == "HIGH" {
		return true
	}
	if facts.V31.Present && facts.V31.ConfidentialityImpact == "HIGH" {
		return true
	}
	if facts.V30.Present && facts.V30.ConfidentialityImpact == "HIGH" {
		return true
	}
	if remote && facts.V2.ConfidentialityImpact == "PARTIAL" {
		return true
	}
	return facts.V2.ConfidentialityImpact == "PARTIAL"
}

// systemIntegrityChanged mirrors systemConfidentialityChanged for integrity.
func systemIntegrityChanged(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	remote := contains(facts.Description, "in the remote system")
	if facts.V40.Present && facts.V40.VulnerableSystemIntegrity == "HIGH" {
		return true
	}
	if facts.V31.Present && facts.V31.IntegrityImpact == "HIGH" {
		return true
	}
	if facts.V30.Present && facts.V30.IntegrityImpact == "HIGH" {
		return true
	}
	if remote && facts.V2.IntegrityImpact == "PARTIAL" {
		return true
	}
	return facts.V2.IntegrityImpact == "PARTIAL"
}

// systemAvailabilityChanged mirrors systemConfidentialityChanged for
// availability.
func systemAvailabilityChanged(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	remote := contains(facts.Description, "in the remote system")
	if facts.V40.Present && facts.V40.VulnerableSystemAvailability == "HIGH" {
		return true
	}
	if facts.V31.Present && facts.V31.AvailabilityImpact == "HIGH" {
		return true
	}
	if facts.V30.Present && facts.V30.AvailabilityImpact == "HIGH" {
		return true
	}
	if remote && facts.V2.AvailabilityImpact == "PARTIAL" {
		return true
	}
	return facts.V2.AvailabilityImpact == "PARTIAL"
}

// addOtherCIAImpacts fills in missing C/I/A members where CVSS reports
// LOW/PARTIAL impact on a system-class CVE. Only the preferred CVSS version
// is consulted for each fill-in.
func addOtherCIAImpacts(impacts []string, facts Facts) []string {
	has := func(impact string) bool {
		for _, item := range impacts {
			if item == impact {
				return true
			}
		}
		return false
	}

	confLow := func() bool {
		switch {
		case facts.V40.Present:
			return facts.V40.VulnerableSystemConfidentiality == "LOW" && aboutSystem(facts.CPEType)
		case facts.V31.Present:
			return facts.V31.ConfidentialityImpact == "LOW" && aboutSystem(facts.CPEType)
		case facts.V30.Present:
			return facts.V30.ConfidentialityImpact == "LOW" && aboutSystem(facts.CPEType)
		default:
			return facts.V2.ConfidentialityImpact == "PARTIAL"
		}
	}
	intLow := func() bool {
		switch {
		case facts.V40.Present:
			return facts.V40.VulnerableSystemIntegrity == "LOW" && aboutSystem(facts.CPEType)
		case facts.V31.Present:
			return facts.V31.IntegrityImpact == "LOW" && aboutSystem(facts.CPEType)
		case facts.V30.Present:
			return facts.V30.IntegrityImpact == "LOW" && aboutSystem(facts.CPEType)
		default:
			return facts.V2.IntegrityImpact == "PARTIAL"
		}
	}
	availLow := func() bool {
		switch {
		case facts.V40.Present:
			return facts.V40.VulnerableSystemAvailability == "LOW" && aboutSystem(facts.CPEType)
		case facts.V31.Present:
			return facts.V31.AvailabilityImpact == "LOW" && aboutSystem(facts.CPEType)
		case facts.V30.Present:
			return facts.V30.AvailabilityImpact == "LOW" && aboutSystem(facts.CPEType)
		default:
			return facts.V2.AvailabilityImpact == "PARTIAL"
		}
	}

	if has(ImpactSystemIntLoss) && !has(ImpactSystemConfLoss) && confLow() {
		impacts = append(impacts, ImpactSystemConfLoss)
	}
	if has(ImpactSystemIntLoss) && !has(ImpactSystemAvailLoss) && availLow() {
		impacts = append(impacts, ImpactSystemAvailLoss)
	}
	if has(ImpactSystemConfLoss) && !has(ImpactSystemIntLoss) && intLow() {
		impacts = append(impacts, ImpactSystemIntLoss)
	}
	if has(ImpactSystemConfLoss) && !has(ImpactSystemAvailLoss) && availLow() {
		impacts = append(impacts, ImpactSystemAvailLoss)
	}
	if has(ImpactSystemAvailLoss) && !has(ImpactSystemConfLoss) && confLow() {
		impacts = append(impacts, ImpactSystemConfLoss)
	}
	if has(ImpactSystemAvailLoss) && !has(ImpactSystemIntLoss) && intLow() {
		impacts = append(impacts, ImpactSystemIntLoss)
	}
	return impacts
}
