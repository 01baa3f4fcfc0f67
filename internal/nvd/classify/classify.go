package classify

// Impact labels emitted by the classifier.
const (
	ImpactCodeExecRoot    = "Arbitrary code execution as root/administrator/system"
	ImpactGainRoot        = "Gain root/system/administrator privileges on system"
	ImpactPrivEscalation  = "Privilege escalation on system"
	ImpactSystemConfLoss  = "System confidentiality loss"
	ImpactSystemIntLoss   = "System integrity loss"
	ImpactSystemAvailLoss = "System availability loss"
	ImpactGainUser        = "Gain user privileges on system"
	ImpactCodeExecUser    = "Arbitrary code execution as user of application"
	ImpactGainAppPrivs    = "Gain privileges on application"
	ImpactAppConfLoss     = "Application confidentiality loss"
	ImpactAppIntLoss      = "Application integrity loss"
	ImpactAppAvailLoss    = "Application availability loss"
)

// Classify evaluates the impact rules in their normative order:
//  1. root-level impacts (code execution as root, root privilege gain,
//     privilege escalation),
//  2. system CIA loss,
//  3. user-level impacts,
//  4. system-vs-application distinction.
//
// The first stage producing a non-empty set wins.
func Classify(facts Facts) []string {
	if impacts := rootLevelImpacts(facts); len(impacts) > 0 {
		return impacts
	}
	if impacts := systemCIALoss(facts); len(impacts) > 0 {
		return impacts
	}
	if impacts := userLevelImpacts(facts); len(impacts) > 0 {
		return impacts
	}
	return distinguishSystemApplication(facts)
}

// rootLevelImpacts checks the three root-level rules sequentially and
// returns the first match as a single-item list.
func rootLevelImpacts(facts Facts) []string {
	if hasCodeExecutionAsRoot(facts) {
		return []string{ImpactCodeExecRoot}
	}
	if hasGainRootPrivileges(facts) {
		return []string{ImpactGainRoot}
	}
	if hasPrivilegeEscalation(facts) {
		return []string{ImpactPrivEscalation}
	}
	return nil
}

// systemCIALoss checks each of confidentiality, integrity, and availability
// independently, then fills in missing C/I/A members via addOtherCIAImpacts.
func systemCIALoss(facts Facts) []string {
	var impacts []string
	if hasSystemConfidentialityLoss(facts) {
		impacts = append(impacts, ImpactSystemConfLoss)
	}
	if hasSystemIntegrityLoss(facts) {
		impacts = append(impacts, ImpactSystemIntLoss)
	}
	if hasSystemAvailabilityLoss(facts) {
		impacts = append(impacts, ImpactSystemAvailLoss)
	}
	return addOtherCIAImpacts(impacts, facts)
}

// userLevelImpacts checks the three user-level rules sequentially.
func userLevelImpacts(facts Facts) []string {
	if hasGainUserPrivileges(facts) {
		return []string{ImpactGainUser}
	}
	if hasCodeExecutionAsUser(facts) {
		return []string{ImpactCodeExecUser}
	}
	if hasGainApplicationPrivileges(facts.Description) {
		return []string{ImpactGainAppPrivs}
	}
	return nil
}

// distinguishSystemApplication emits a "System * loss" label for each CIA
// member the system*Changed helpers report; CVSS scope is not consulted.
// Otherwise it emits "Application * loss" for every non-NONE impact in CVSS
// v4.0, v3.1 and v3.0; CVSS v2 impacts produce no application label.
func distinguishSystemApplication(facts Facts) []string {
	var impacts []string
	if systemConfidentialityChanged(facts) {
		impacts = append(impacts, ImpactSystemConfLoss)
	}
	if systemIntegrityChanged(facts) {
		impacts = append(impacts, ImpactSystemIntLoss)
	}
	if systemAvailabilityChanged(facts) {
		impacts = append(impacts, ImpactSystemAvailLoss)
	}
	if len(impacts) > 0 {
		return impacts
	}

	if facts.V40.Present && facts.V40.VulnerableSystemIntegrity != "NONE" && facts.V40.VulnerableSystemIntegrity != "" {
		impacts = append(impacts, ImpactAppIntLoss)
	}
	if facts.V40.Present && facts.V40.VulnerableSystemAvailability != "NONE" && facts.V40.VulnerableSystemAvailability != "" {
		impacts = append(impacts, ImpactAppAvailLoss)
	}
	if facts.V40.Present && facts.V40.VulnerableSystemConfidentiality != "NONE" && facts.V40.VulnerableSystemConfidentiality != "" {
		impacts = append(impacts, ImpactAppConfLoss)
	}
	if facts.V31.Present && facts.V31.IntegrityImpact != "NONE" && facts.V31.IntegrityImpact != "" {
		impacts = append(impacts, ImpactAppIntLoss)
	}
	if facts.V31.Present && facts.V31.AvailabilityImpact != "NONE" && facts.V31.AvailabilityImpact != "" {
		impacts = append(impacts, ImpactAppAvailLoss)
	}
	if facts.V31.Present && facts.V31.ConfidentialityImpact != "NONE" && facts.V31.ConfidentialityImpact != "" {
		impacts = append(impacts, ImpactAppConfLoss)
	}
	if facts.V30.Present && facts.V30.IntegrityImpact != "NONE" && facts.V30.IntegrityImpact != "" {
		impacts = append(impacts, ImpactAppIntLoss)
	}
	if facts.V30.Present && facts.V30.AvailabilityImpact != "NONE" && facts.V30.AvailabilityImpact != "" {
		impacts = append(impacts, ImpactAppAvailLoss)
	}
	if facts.V30.Present && facts.V30.ConfidentialityImpact != "NONE" && facts.V30.ConfidentialityImpact != "" {
		impacts = append(impacts, ImpactAppConfLoss)
	}
	return impacts
}
