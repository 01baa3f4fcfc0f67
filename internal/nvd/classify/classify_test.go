package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func systemType() map[string]bool      { return map[string]bool{"o": true} }
func applicationType() map[string]bool { return map[string]bool{"a": true} }

func TestRootPhraseWinsRegardlessOfCVSS(t *testing.T) {
	facts := Facts{
		Description: "A buffer overflow allows remote attackers to execute arbitrary code as root.",
		CPEType:     applicationType(),
		V31: V3Facts{
			Present:               true,
			ConfidentialityImpact: "NONE",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Equal(t, []string{ImpactCodeExecRoot}, Classify(facts))
}

func TestCodeExecutionAsRootFromUserExecAndFullImpact(t *testing.T) {
	facts := Facts{
		Description: "A crafted packet allows an attacker to execute arbitrary code on the device.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "NONE",
			ConfidentialityImpact: "HIGH",
			IntegrityImpact:       "HIGH",
			AvailabilityImpact:    "HIGH",
		},
	}
	assert.Equal(t, []string{ImpactCodeExecRoot}, Classify(facts))
}

func TestGainRootPrivilegesFromObtainAllPrivilege(t *testing.T) {
	facts := Facts{
		Description: "An issue on the device firmware.",
		CPEType:     systemType(),
		V2: V2Facts{
			Present:            true,
			ObtainAllPrivilege: true,
		},
	}
	assert.Equal(t, []string{ImpactGainRoot}, Classify(facts))
}

func TestGainRootBlockedByPrivilegesRequired(t *testing.T) {
	facts := Facts{
		Description: "An attacker can gain root access to the device.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "HIGH",
			ConfidentialityImpact: "NONE",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	// The gate blocks the gain-root rule, but privilege escalation has no
	// privileges-required gate and still fires on the description.
	assert.Equal(t, []string{ImpactPrivEscalation}, Classify(facts))
}

func TestSystemCIALossHighImpacts(t *testing.T) {
	facts := Facts{
		Description: "A flaw in the router firmware.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "LOW",
			ConfidentialityImpact: "HIGH",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Equal(t, []string{ImpactSystemConfLoss}, Classify(facts))
}

func TestSystemCIALossLowWithSufficientPhrase(t *testing.T) {
	// The description must avoid the word "system": the normative
	// root-privilege phrase list contains "SYSTEM", matched
	// case-insensitively, which routes such records to the
	// privilege-escalation rule first.
	facts := Facts{
		Description: "The bug lets attackers read kernel memory on the device.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "LOW",
			ConfidentialityImpact: "LOW",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Equal(t, []string{ImpactSystemConfLoss}, Classify(facts))
}

func TestSystemCIALossLowWithoutPhrase(t *testing.T) {
	facts := Facts{
		Description: "A rendering problem in the status page.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "LOW",
			ConfidentialityImpact: "LOW",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	impacts := Classify(facts)
	assert.NotContains(t, impacts, ImpactSystemConfLoss)
}

func TestAvailabilityTokenShortCircuit(t *testing.T) {
	facts := Facts{
		Description: "A malformed frame causes a device crash.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "LOW",
			ConfidentialityImpact: "NONE",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Contains(t, Classify(facts), ImpactSystemAvailLoss)
}

func TestAddOtherCIAImpactsFillsLowSiblings(t *testing.T) {
	facts := Facts{
		Description: "A flaw in the appliance firmware allows tampering with stored settings.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "LOW",
			ConfidentialityImpact: "LOW",
			IntegrityImpact:       "HIGH",
			AvailabilityImpact:    "NONE",
		},
	}
	impacts := Classify(facts)
	assert.Contains(t, impacts, ImpactSystemIntLoss)
	assert.Contains(t, impacts, ImpactSystemConfLoss)
	assert.NotContains(t, impacts, ImpactSystemAvailLoss)
}

func TestGainUserPrivilegesFromObtainUserPrivilege(t *testing.T) {
	facts := Facts{
		Description: "An information disclosure issue.",
		CPEType:     systemType(),
		V2: V2Facts{
			Present:               true,
			ObtainUserPrivilege:   true,
			ConfidentialityImpact: "NONE",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Equal(t, []string{ImpactGainUser}, Classify(facts))
}

func TestApplicationCodeExecution(t *testing.T) {
	facts := Facts{
		Description: "The form field allows command injection in the web application.",
		CPEType:     applicationType(),
		V31: V3Facts{
			Present:               true,
			ConfidentialityImpact: "NONE",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Equal(t, []string{ImpactCodeExecUser}, Classify(facts))
}

func TestGainApplicationPrivilegesFromPhrase(t *testing.T) {
	descriptions := []string{
		"A session flaw lets users log in to an affected system as the linux admin user.",
		"A flaw gives access to the system with the same level of privilege as the application.",
	}
	for _, description := range descriptions {
		facts := Facts{
			Description: description,
			CPEType:     applicationType(),
		}
		assert.Equal(t, []string{ImpactGainAppPrivs}, Classify(facts), description)
	}
}

func TestApplicationLossFallback(t *testing.T) {
	facts := Facts{
		Description: "A flaw in the export module.",
		CPEType:     applicationType(),
		V31: V3Facts{
			Present:               true,
			ConfidentialityImpact: "HIGH",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "LOW",
		},
	}
	impacts := Classify(facts)
	assert.Contains(t, impacts, ImpactAppConfLoss)
	assert.Contains(t, impacts, ImpactAppAvailLoss)
	assert.NotContains(t, impacts, ImpactAppIntLoss)
}

func TestSQLInjectionWithHighImpacts(t *testing.T) {
	facts := Facts{
		Description: "A sql injection in the login form.",
		CPEType:     applicationType(),
		V31: V3Facts{
			Present:               true,
			ConfidentialityImpact: "HIGH",
			IntegrityImpact:       "HIGH",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.Equal(t, []string{ImpactCodeExecUser}, Classify(facts))
}

func TestBlindSQLInjectionDoesNotCountAsExecution(t *testing.T) {
	facts := Facts{
		Description: "A blind sql injection in the search endpoint.",
		CPEType:     applicationType(),
		V31: V3Facts{
			Present:               true,
			ConfidentialityImpact: "HIGH",
			IntegrityImpact:       "HIGH",
			AvailabilityImpact:    "NONE",
		},
	}
	impacts := Classify(facts)
	assert.NotEqual(t, []string{ImpactCodeExecUser}, impacts)
}

func TestClassifyDeterministic(t *testing.T) {
	facts := Facts{
		Description: "A flaw in the appliance firmware allows tampering with stored settings.",
		CPEType:     systemType(),
		V31: V3Facts{
			Present:               true,
			PrivilegesRequired:    "LOW",
			ConfidentialityImpact: "LOW",
			IntegrityImpact:       "HIGH",
			AvailabilityImpact:    "LOW",
		},
	}
	first := Classify(facts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(facts))
	}
}

func TestCVSSVersionPreferenceOrder(t *testing.T) {
	// v4.0 present: its verdict wins even when v2 says COMPLETE.
	facts := Facts{
		Description: "A flaw in the appliance.",
		CPEType:     systemType(),
		V40: V40Facts{
			Present:                         true,
			PrivilegesRequired:              "LOW",
			VulnerableSystemConfidentiality: "NONE",
			VulnerableSystemIntegrity:       "NONE",
			VulnerableSystemAvailability:    "NONE",
		},
		V2: V2Facts{
			Present:               true,
			ConfidentialityImpact: "COMPLETE",
			IntegrityImpact:       "NONE",
			AvailabilityImpact:    "NONE",
		},
	}
	assert.NotContains(t, Classify(facts), ImpactSystemConfLoss)
}
