package nvd

import (
	"context"
	"fmt"
	"strings"

	"github.com/resilmesh/casm/pkg/cpe"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/semver"
)

// VulnerabilityLinker is the slice of the graph store the matcher needs.
type VulnerabilityLinker interface {
	SoftwareVersionExists(ctx context.Context, version string) (bool, error)
	GetVersionsOfProduct(ctx context.Context, vendorProduct string) ([]string, error)
	CreateVulnerability(ctx context.Context, description string) error
	LinkVulnerabilityToSoftwareVersion(ctx context.Context, description, version string) error
}

// CriteriaExpander expands a matchCriteriaId into concrete CPE names.
type CriteriaExpander interface {
	MatchCriteria(ctx context.Context, matchCriteriaID string) ([]string, error)
}

// VulnerabilityDescription returns the description used for the lazily
// created Vulnerability node of a CVE.
func VulnerabilityDescription(cveID string) string {
	return fmt.Sprintf("Assumed vulnerability with ID %s", cveID)
}

// Matcher links CVE configurations to stored software versions.
type Matcher struct {
	graph    VulnerabilityLinker
	expander CriteriaExpander
	log      *logger.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(graph VulnerabilityLinker, expander CriteriaExpander, log *logger.Logger) *Matcher {
	return &Matcher{graph: graph, expander: expander, log: log.WithComponent("cpe-matcher")}
}

// ProcessConfigurations walks the configuration trees of one CVE and links
// its Vulnerability node to every matching stored software version. The
// created flag carries across calls so the node is created at most once.
// AND configurations are accepted only at recursion depth one; the
// vulnerable branch is processed, the running-on branch is ignored.
func (m *Matcher) ProcessConfigurations(ctx context.Context, configurations []Configuration, vulDescription string, created bool) (bool, error) {
	for _, configuration := range configurations {
		if configuration.Operator == "AND" {
			if len(configuration.Nodes) != 2 {
				m.log.Warn("expected two nodes in AND configuration", "got", len(configuration.Nodes))
				continue
			}
			vulnNode := configuration.Nodes[0]
			otherNode := configuration.Nodes[1]
			if !nodeVulnerable(vulnNode) {
				vulnNode, otherNode = otherNode, vulnNode
			}
			if vulnNode.Operator != "OR" || otherNode.Operator != "OR" {
				return created, faults.New(faults.BadInput, "unsupported recursion depth in AND configuration")
			}
			for _, match := range vulnNode.CPEMatch {
				var err error
				created, err = m.processMatch(ctx, match, vulDescription, created)
				if err != nil {
					m.log.Warn("skipping CPE match", "criteria", match.Criteria, "error", err)
				}
			}
			continue
		}

		for _, node := range configuration.Nodes {
			if node.Operator != "OR" {
				continue
			}
			for _, match := range node.CPEMatch {
				var err error
				created, err = m.processMatch(ctx, match, vulDescription, created)
				if err != nil {
					m.log.Warn("skipping CPE match", "criteria", match.Criteria, "error", err)
				}
			}
		}
	}
	return created, nil
}

// processMatch links one cpeMatch entry. Concrete versions try three
// candidate keys plus a major.minor shortening; wildcard versions are
// resolved through range bounds or the match-criteria endpoint.
func (m *Matcher) processMatch(ctx context.Context, match CPEMatch, vulDescription string, created bool) (bool, error) {
	id, err := cpe.Parse(match.Criteria)
	if err != nil {
		return created, err
	}

	m.log.Info("processing CPE match",
		"vendor", id.Vendor, "product", id.Product, "version", id.Version)

	if parts := strings.SplitN(id.Version, ".", 3); len(parts) == 3 {
		shortened := fmt.Sprintf("%s:%s:%s.%s", id.Vendor, id.Product, parts[0], parts[1])
		created, err = m.link(ctx, vulDescription, shortened, created)
		if err != nil {
			return created, err
		}
	}

	for _, candidate := range []string{
		fmt.Sprintf("%s:%s:%s", id.Vendor, id.Product, id.Version),
		fmt.Sprintf("%s:%s:*", id.Vendor, id.Product),
		fmt.Sprintf("%s:*:*", id.Vendor),
	} {
		exists, err := m.graph.SoftwareVersionExists(ctx, candidate)
		if err != nil {
			return created, err
		}
		if exists {
			created, err = m.link(ctx, vulDescription, candidate, created)
			if err != nil {
				return created, err
			}
		}
	}

	// The range and match-criteria paths apply only to the ANY version.
	if id.Version != "*" {
		return created, nil
	}

	storedVersions, err := m.graph.GetVersionsOfProduct(ctx, id.VendorProduct())
	if err != nil {
		return created, err
	}

	for _, stored := range storedVersions {
		parts := strings.Split(stored, ":")
		concrete := parts[len(parts)-1]
		ok, err := m.versionInRange(ctx, match, concrete)
		if err != nil {
			m.log.Warn("range check failed", "criteria", match.Criteria, "version", concrete, "error", err)
			continue
		}
		if ok {
			created, err = m.link(ctx, vulDescription, fmt.Sprintf("%s:%s:%s", id.Vendor, id.Product, concrete), created)
			if err != nil {
				return created, err
			}
		}
	}

	return created, nil
}

// versionInRange decides whether a concrete version is covered by a
// wildcard cpeMatch: explicit bounds when present, otherwise expansion of
// the matchCriteriaId into concrete CPE names.
func (m *Matcher) versionInRange(ctx context.Context, match CPEMatch, version string) (bool, error) {
	if hasBounds(match) {
		return CheckRanges(match, version), nil
	}

	names, err := m.expander.MatchCriteria(ctx, match.MatchCriteriaID)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		id, err := cpe.Parse(name)
		if err != nil {
			continue
		}
		if id.Version == version {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) link(ctx context.Context, vulDescription, version string, created bool) (bool, error) {
	if !created {
		if err := m.graph.CreateVulnerability(ctx, vulDescription); err != nil {
			return created, err
		}
		created = true
	}
	if err := m.graph.LinkVulnerabilityToSoftwareVersion(ctx, vulDescription, version); err != nil {
		return created, err
	}
	return created, nil
}

func nodeVulnerable(node ConfNode) bool {
	return len(node.CPEMatch) > 0 && node.CPEMatch[0].Vulnerable
}

func hasBounds(match CPEMatch) bool {
	return match.VersionStartIncluding != "" || match.VersionStartExcluding != "" ||
		match.VersionEndIncluding != "" || match.VersionEndExcluding != ""
}

// CheckRanges reports whether version lies inside the bounds declared on a
// cpeMatch. Versions that do not parse as dotted numerics fall back to
// string comparison.
func CheckRanges(match CPEMatch, version string) bool {
	if !hasBounds(match) {
		return false
	}
	result := false
	if match.VersionStartIncluding != "" {
		if semver.CompareStrings(version, match.VersionStartIncluding) < 0 {
			return false
		}
		result = true
	}
	if match.VersionStartExcluding != "" {
		if semver.CompareStrings(version, match.VersionStartExcluding) <= 0 {
			return false
		}
		result = true
	}
	if match.VersionEndIncluding != "" {
		if semver.CompareStrings(version, match.VersionEndIncluding) > 0 {
			return false
		}
		result = true
	}
	if match.VersionEndExcluding != "" {
		if semver.CompareStrings(version, match.VersionEndExcluding) >= 0 {
			return false
		}
		result = true
	}
	return result
}
