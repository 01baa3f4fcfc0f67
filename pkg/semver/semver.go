// Package semver implements the loose version comparison used when matching
// CVE version ranges against stored software versions. Versions that do not
// parse as dotted numerics fall back to string comparison.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version represents a parsed dotted version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:[-.]([0-9A-Za-z-.]+))?$`)

// Parse parses a version string into a Version.
func Parse(version string) (*Version, error) {
	version = strings.TrimSpace(version)

	matches := versionRegex.FindStringSubmatch(version)
	if matches == nil {
		return nil, fmt.Errorf("invalid version: %s", version)
	}

	major, _ := strconv.Atoi(matches[1])
	minor := 0
	if len(matches[2]) > 0 {
		minor, _ = strconv.Atoi(matches[2])
	}
	patch := 0
	if len(matches[3]) > 0 {
		patch, _ = strconv.Atoi(matches[3])
	}

	return &Version{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: matches[4],
	}, nil
}

// Compare compares two versions.
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2.
func Compare(v1, v2 *Version) int {
	if v1.Major != v2.Major {
		if v1.Major > v2.Major {
			return 1
		}
		return -1
	}

	if v1.Minor != v2.Minor {
		if v1.Minor > v2.Minor {
			return 1
		}
		return -1
	}

	if v1.Patch != v2.Patch {
		if v1.Patch > v2.Patch {
			return 1
		}
		return -1
	}

	// No prerelease sorts above any prerelease.
	if v1.Prerelease == "" && v2.Prerelease != "" {
		return 1
	}
	if v1.Prerelease != "" && v2.Prerelease == "" {
		return -1
	}
	return strings.Compare(v1.Prerelease, v2.Prerelease)
}

// CompareStrings compares two raw version strings, using parsed comparison
// when both sides parse and plain string ordering otherwise. The string
// fallback keeps non-numeric vendor versions ("beta") usable.
func CompareStrings(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	if errA == nil && errB == nil {
		return Compare(va, vb)
	}
	return strings.Compare(a, b)
}
