package classify

// Phrases that on their own assert code execution with root/system
// privileges.
var rootExecutionPhrases = []string{
	"execute arbitrary code as root",
	"execute arbitrary code with root privileges",
	"execute arbitrary code as the root user",
	"execute arbitrary code as a root user",
	"execute arbitrary code as LocalSystem",
	"execute arbitrary code as SYSTEM",
	"execute arbitrary code as Local System",
	"execute arbitrary code with SYSTEM privileges",
	"execute arbitrary code with LocalSystem privileges",
	"execute dangerous commands as root",
	"execute shell commands as the root user",
	"execute arbitrary commands as root",
	"execute arbitrary commands with root privileges",
	"execute arbitrary commands with root-level privileges",
	"execute commands as root",
	"execute root commands",
	"execute arbitrary os commands as root",
	"execute arbitrary shell commands as root",
	"execute arbitrary commands as SYSTEM",
	"execute arbitrary commands with SYSTEM privileges",
	"run commands as root",
	"run arbitrary commands as root",
	"run arbitrary commands as the root user",
	"execute code with root privileges",
	"load malicious firmware",
	"succeed in uploading malicious Firmware",
	"executed under the SYSTEM account",
}

// Phrases that assert code execution without a privilege level.
var userExecutionPhrases = []string{
	"include and execute arbitrary local php files",
	"execute arbitrary code",
	"command injection",
	"execute files",
	"run arbitrary code",
	"execute a malicious file",
	"execution of arbitrary code",
	"remote execution of arbitrary php code",
	"execute code",
	"code injection vulnerability",
	"execute any code",
	"malicious file could be then executed on the affected system",
	"inject arbitrary commands",
	"execute arbitrary files",
	"inject arbitrary sql code",
	"run the setuid executable",
	"vbscript injection",
	"execute administrative operations",
	"performs arbitrary actions",
	"submit arbitrary requests to an affected device",
	"perform arbitrary actions on an affected device",
	"executes an arbitrary program",
	"attacker can upload a malicious payload",
	"execute malicious code",
	"modify sql commands to the portal server",
	"execute arbitrary os commands",
	"execute arbitrary code with administrator privileges",
	"execute administrator commands",
	"executed with administrator privileges",
	"remote procedure calls on the affected system",
	"run a specially crafted application on a targeted system",
	"execute arbitrary code in a privileged context",
	"execute arbitrary code with super-user privileges",
	"run processes in an elevated context",
}

var (
	executionVerbs = []string{" execut", " run ", " inject"}
	executionNouns = []string{" code ", " command", "arbitrary script", " code."}
)

// hasCodeExecutionAsRoot reports code execution with system-level privileges:
// either a root-execution phrase, or (for system-class CVEs) user-level
// execution combined with HIGH/COMPLETE impact on all of C, I, and A.
func hasCodeExecutionAsRoot(facts Facts) bool {
	if containsAny(facts.Description, rootExecutionPhrases) {
		return true
	}
	if !aboutSystem(facts.CPEType) {
		return false
	}
	if !hasCodeExecutionAsUser(facts) {
		return false
	}
	if facts.V40.Present &&
		facts.V40.VulnerableSystemConfidentiality == "HIGH" &&
		facts.V40.VulnerableSystemIntegrity == "HIGH" &&
		facts.V40.VulnerableSystemAvailability == "HIGH" {
		return true
	}
	if facts.V31.Present &&
		facts.V31.ConfidentialityImpact == "HIGH" &&
		facts.V31.IntegrityImpact == "HIGH" &&
		facts.V31.AvailabilityImpact == "HIGH" {
		return true
	}
	if facts.V30.Present &&
		facts.V30.ConfidentialityImpact == "HIGH" &&
		facts.V30.IntegrityImpact == "HIGH" &&
		facts.V30.AvailabilityImpact == "HIGH" {
		return true
	}
	if facts.V2.Present &&
		facts.V2.ConfidentialityImpact == "COMPLETE" &&
		facts.V2.IntegrityImpact == "COMPLETE" &&
		facts.V2.AvailabilityImpact == "COMPLETE" {
		return true
	}
	return false
}

// hasCodeExecutionAsUser reports code execution with user-level privileges:
// a user-execution phrase, non-blind SQL injection with HIGH integrity and
// confidentiality, or the presence of both an execution verb and noun.
func hasCodeExecutionAsUser(facts Facts) bool {
	if containsAny(facts.Description, userExecutionPhrases) {
		return true
	}

	description := facts.Description
	if contains(description, "sql injection") && !contains(description, "blind sql injection") {
		if facts.V40.Present &&
			facts.V40.VulnerableSystemIntegrity == "HIGH" &&
			facts.V40.VulnerableSystemConfidentiality == "HIGH" {
			return true
		}
		if facts.V31.Present &&
			facts.V31.IntegrityImpact == "HIGH" &&
			facts.V31.ConfidentialityImpact == "HIGH" {
			return true
		}
		if facts.V30.Present &&
			facts.V30.IntegrityImpact == "HIGH" &&
			facts.V30.ConfidentialityImpact == "HIGH" {
			return true
		}
	}

	return testIncidence(description, executionNouns) && testIncidence(description, executionVerbs)
}

func contains(description, phrase string) bool {
	return containsAny(description, []string{phrase})
}
