package classify

// Phrases that suggest an attacker gains privileges of some kind.
var privilegePhrases = []string{
	"root privilege",
	"obtain root access",
	"elevation of privilege vulnerability",
	"privilege escalation",
	"escalation of privilege",
	"escalate privileges",
	"default password",
	"arbitrary password change",
	"escalate",
	"assume the identity of another user",
	"password in configuration file",
	"hardcoded login credentials",
	"passwords are encoded in hexadecimal",
	"passwords are in cleartext",
	"cleartext password storage",
	"obtain admin privilege",
	"obtain administrator privilege",
	"gain administrative rights",
	"gain administrative access",
	"gain administrator access",
	"gain administrator level access",
	"gain administrator rights",
	"obtain the cleartext administrator password",
	"steal the administrator password",
	"obtain the administrator password",
	"obtain the administrator's password",
	"read the administrator password",
	"obtain administrator password",
	"read the administrator's password",
	"discover the administrator password",
	"discover cleartext administrator password",
	"read the admin password",
	"obtain the admin password",
	"receive the admin password",
	"obtain the administrative password",
	"retrieve the administrative password",
	"obtain administrative password",
	"read the administrative password",
	"read administrative password",
	"gain full administrative control",
	"obtain privileged host OS access",
	"log in to the device with elevated privileges",
	"higher level of privileges",
	"change the admin password",
	"default passwords",
	"backdoor admin account",
	"hardcoded username / password",
	"administrator privileges",
	"default system account",
	"automatically logs in as admin",
	"creation of fully privileged new users",
	"user is logged in without being prompted for a password",
	"different privileges then the original requester",
	"obtain control",
	"steal any active admin session",
	"reset the admin password",
	"assuming the identity of a privileged user",
	"log in to an affected system as the linux admin user",
	"to the system with the same level of privilege as the application",
	"obtain sensitive domain administrator password information",
	"does not properly mitigate brute-force attacks",
	"allows anyone to authenticate",
	"execute actions that they do not have access to",
	"compromise user accounts",
	"brute force account credentials",
	"user credentials in plain text",
	"actions they do not have access to",
	"execute a report they do not have access to",
	"hijack the authentication of administrators",
	"bypass the application-level authentication",
	"impersonate other users",
	"access user credentials",
	"access to password information",
	"gain administrator functionality",
	"allow plaintext credentials to be obtained",
	"escalate their privileges",
	"credentials in a browser's local storage without expiration",
	"allowing users to elevate their privileges",
	"using the authenticated user's privileges",
	"potential reuse of domain credentials",
	"administrative access to the application",
	"on behalf of the currently logged in user",
	"gain privileged access",
	"do not have any option to change their own passwords",
	"create a new admin user",
	"hijack the authentication",
	"gain login access",
	"reset the registered user's password",
	"default privileged account",
	"login with the hashed password",
	"skip authentication checks",
	"hard-coded passwords",
	"hardcoded username and password",
	"local-privilege-escalation",
	"elevation of privileges",
	"include sensitive information such as account passwords",
	"account takeover",
	"obtaining admin privileges",
	"arbitrary password reset",
	"missing brute force protection",
	"makes brute-force attacks easier",
	"numeric password with a small maximum character size",
	"improper authentication issue",
	"gain access to moderator/admin accounts",
	"create new administrator user accounts",
	"take over the entire application",
	"add an administrator account",
	"plain text password",
	"possibly escalating privileges",
	"hijack oauth sessions of other users",
	"allows guest os users to obtain xen privileges",
	"gain access via cookie reuse",
	"password exposure",
	"obtain credentials",
	"resumption of an unauthenticated session",
	"no authorization check when connecting to the device",
	"incorrect authorization check",
	"hijack the authentication of logged administrators",
	"unrestricted access",
	"perform a password reset for users",
	"obtaining administrative permissions",
	"discloses foreign server passwords",
	"password leak",
	"disclosure of the master password",
	"submit authenticated requests",
	"takeover",
	"perform actions with the privileges of an authenticated user",
	"bypass authentication without obtaining the actual password",
	"take over the administrative session",
	"reset the password of the admin user",
	"gain guest os privileges",
	"change the administrator account password",
	"plaintext storage of a password",
	"password is stored in clear text",
	"default administrative password",
	"default password of admin",
	"steal a user's credentials",
	"dictionary attacks",
	"perform operations on device with administrative privileges",
	"include user credentials",
}

// Phrases that assert root/system-level privilege gain specifically.
var rootPrivilegePhrases = []string{
	"with the privileges of the root user",
	"add root ssh key",
	"gain root privilege",
	"obtain root privilege",
	"leading to root privilege",
	"gains root privilege",
	"gain SYSTEM privilege",
	"obtain SYSTEM privilege",
	"gain LocalSystem privilege",
	"obtain LocalSystem privilege",
	"gain full privilege",
	"gain root access",
	"gain root rights",
	"gain root privileges",
	"gain system level access to a remote shell session",
	"gain administrator or system privileges",
	"leading to root privileges",
	"obtain the root password",
	"take complete control of the device",
	"take full control of the target system",
	"account could be granted root- or system-level privileges",
	"find the root credentials",
	"backdoor root account",
	"elevate the privileges to root",
	"leading to remote root",
	"take control of the affected device",
	"gain complete control",
	"gain full access to the affected system",
	"obtain full access",
	"gain complete control of the system",
	"SYSTEM",
	"elevate privileges to the root user",
	"obtain full control",
}

// Phrases that indicate logging in with elevated or default credentials.
var userPrivilegePhrases = []string{
	"gain elevated privileges on the system",
	"with the knowledge of the default password may login to the system",
	"log in as an admin user of the affected device",
	"log in as an admin or oper user of the affected device",
	"log in to the affected device using default credentials",
	"log in to an affected system as the admin user",
	"log in to the device with the privileges of a limited user",
	"devices have a hardcoded-key vulnerability",
}

// testPrivileges reports whether the description suggests privilege gain.
func testPrivileges(description string) bool {
	if contains(description, "gain") && contains(description, "privilege") {
		return true
	}
	if contains(description, "bypass authentication") && contains(description, "during an admin login attempt") {
		return true
	}
	return testIncidence(description, privilegePhrases)
}

// hasRootPrivilegesDescription reports whether the description asserts root
// privilege gain. A default root password is a special case.
func hasRootPrivilegesDescription(description string) bool {
	if contains(description, "default") && contains(description, "password") && contains(description, "for the root") {
		return true
	}
	return testIncidence(description, rootPrivilegePhrases)
}

// hasGainRootPrivileges reports root/system privilege gain: a system-class
// CVE whose metrics do not require prior privileges, with either the v2
// obtainAllPrivilege flag, a root-privilege phrase, or COMPLETE C/I/A
// combined with a generic privilege-gain phrase.
func hasGainRootPrivileges(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	if facts.V40.Present && facts.V40.PrivilegesRequired != "NONE" {
		return false
	}
	if facts.V31.Present && facts.V31.PrivilegesRequired != "NONE" {
		return false
	}
	if facts.V30.Present && facts.V30.PrivilegesRequired != "NONE" {
		return false
	}
	if facts.V2.Present && facts.V2.ObtainAllPrivilege {
		return true
	}
	if hasRootPrivilegesDescription(facts.Description) {
		return true
	}
	return facts.V2.Present &&
		facts.V2.ConfidentialityImpact == "COMPLETE" &&
		facts.V2.IntegrityImpact == "COMPLETE" &&
		facts.V2.AvailabilityImpact == "COMPLETE" &&
		testPrivileges(facts.Description)
}

// hasPrivilegeEscalation is the same v2-based rule without the
// privileges-required gate.
func hasPrivilegeEscalation(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	if facts.V2.Present && facts.V2.ObtainAllPrivilege {
		return true
	}
	if hasRootPrivilegesDescription(facts.Description) {
		return true
	}
	return facts.V2.Present &&
		facts.V2.ConfidentialityImpact == "COMPLETE" &&
		facts.V2.IntegrityImpact == "COMPLETE" &&
		facts.V2.AvailabilityImpact == "COMPLETE" &&
		testPrivileges(facts.Description)
}

// hasGainApplicationPrivileges reports application-level privilege gain.
func hasGainApplicationPrivileges(description string) bool {
	return testPrivileges(description)
}

// hasGainUserPrivileges reports user-level privilege gain on a system: the
// v2 obtainUserPrivilege flag, a login-with-credentials phrase, or a
// privilege-gain phrase on a non-application CVE.
func hasGainUserPrivileges(facts Facts) bool {
	if !aboutSystem(facts.CPEType) {
		return false
	}
	if facts.V2.Present && facts.V2.ObtainUserPrivilege {
		return true
	}
	if containsAny(facts.Description, userPrivilegePhrases) {
		return true
	}
	return !aboutApplication(facts.CPEType) && testPrivileges(facts.Description)
}
