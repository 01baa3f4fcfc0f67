package activities

import (
	"context"
	"time"

	"github.com/resilmesh/casm/internal/graph"
	"github.com/resilmesh/casm/internal/nvd"
	"github.com/resilmesh/casm/pkg/cpe"
	"github.com/resilmesh/casm/pkg/logger"
)

const (
	// sweepMaxRetries bounds per-request retries within one version sweep.
	sweepMaxRetries = 5
	// sweepRetryDelay is the pause between retried page fetches.
	sweepRetryDelay = 6 * time.Second
	// upsertChunkSize is how many parsed CVEs one upsert batch covers.
	upsertChunkSize = 100
)

// CVEActivities pulls software versions from the graph, sweeps the NVD API
// for matching CVEs, and upserts them.
type CVEActivities struct {
	graph  *graph.Adapter
	client *nvd.Client
	log    *logger.Logger
}

// NewCVEActivities creates the CVE update activity set.
func NewCVEActivities(adapter *graph.Adapter, client *nvd.Client, log *logger.Logger) *CVEActivities {
	return &CVEActivities{graph: adapter, client: client, log: log.WithComponent("cve-activities")}
}

// RunCVESweep walks every stored software version, pages through the CVE
// catalog from the version's watermark, parses and classifies each record,
// upserts it, and links it to matching software versions. Per-version
// failures are logged and do not abort the sweep; each version's watermark
// advances to the workflow start time after its pages are processed.
func (a *CVEActivities) RunCVESweep(ctx context.Context, workflowStart string) (string, error) {
	versions, err := a.graph.GetAllSoftwareVersions(ctx)
	if err != nil {
		return "", appError(err)
	}
	if len(versions) == 0 {
		a.log.Info("no software versions found in the graph")
		return "no software versions found", nil
	}
	a.log.Info("starting CVE sweep", "versions", len(versions))

	matcher := nvd.NewMatcher(a.graph, a.client, a.log)

	for _, version := range versions {
		if err := a.sweepVersion(ctx, matcher, version, workflowStart); err != nil {
			a.log.Error("CVE sweep failed for version, continuing",
				"version", version.Version, "error", err)
			continue
		}
		if err := a.graph.SetCVETimestamp(ctx, version.Version, workflowStart); err != nil {
			a.log.Error("failed to advance watermark", "version", version.Version, "error", err)
		}
	}

	return "executed CVE download for all software versions", nil
}

func (a *CVEActivities) sweepVersion(ctx context.Context, matcher *nvd.Matcher, version graph.SoftwareVersionRecord, workflowStart string) error {
	// Stored versions are full CPE strings; the short
	// "vendor:product:version" form appears in older records.
	id, err := cpe.Parse(version.Version)
	if err != nil {
		id, err = cpe.ParseVersionKey("a", version.Version)
		if err != nil {
			return err
		}
	}

	part := id.Part
	if part == "" || part == "*" {
		part = "a"
	}

	startIndex := 0
	for {
		page, err := a.fetchPage(ctx, nvd.VersionSearch{
			Version:          id.Vendor + ":" + id.Product + ":" + id.Version,
			Part:             part,
			StartIndex:       startIndex,
			IsVulnerable:     true,
			LastModStartDate: version.CVETimestamp,
		})
		if err != nil {
			return err
		}
		if len(page.Vulnerabilities) == 0 {
			a.log.Info("no CVEs found", "version", version.Version)
			return nil
		}

		records := make([]nvd.RawCVE, 0, len(page.Vulnerabilities))
		for _, item := range page.Vulnerabilities {
			records = append(records, item.CVE)
		}
		parsed := nvd.Parse(records, a.log)
		a.log.Info("parsed CVEs", "version", version.Version, "count", len(parsed))

		for start := 0; start < len(parsed); start += upsertChunkSize {
			end := start + upsertChunkSize
			if end > len(parsed) {
				end = len(parsed)
			}
			if err := a.upsertChunk(ctx, matcher, parsed[start:end], version.Version); err != nil {
				a.log.Error("failed to upsert CVE chunk",
					"version", version.Version, "offset", start, "error", err)
			}
		}

		// The cursor advances by a fixed page step; correct while the
		// API keeps serving 2000-result pages.
		if !page.HasMore() {
			return nil
		}
		startIndex += nvd.PageStep
	}
}

// fetchPage retries one page fetch a bounded number of times with a fixed
// delay, mirroring the vendor's pacing guidance.
func (a *CVEActivities) fetchPage(ctx context.Context, search nvd.VersionSearch) (*nvd.APIResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= sweepMaxRetries; attempt++ {
		page, err := a.client.SearchByVersion(ctx, search)
		if err == nil && page != nil {
			return page, nil
		}
		lastErr = err
		a.log.Warn("CVE page fetch failed",
			"version", search.Version, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sweepRetryDelay):
		}
	}
	return nil, lastErr
}

// upsertChunk writes one chunk of parsed CVEs: node upsert, link to the
// swept version's Vulnerability node, and configuration-based linking to
// any other stored versions in range.
func (a *CVEActivities) upsertChunk(ctx context.Context, matcher *nvd.Matcher, chunk []*nvd.Vulnerability, sweptVersion string) error {
	for _, vuln := range chunk {
		description := nvd.VulnerabilityDescription(vuln.CVE)

		exists, err := a.graph.CVEExists(ctx, vuln.CVE)
		if err != nil {
			return err
		}

		if exists {
			if err := a.graph.UpdateCVE(ctx, vuln); err != nil {
				return err
			}
		} else {
			if err := a.graph.CreateVulnerability(ctx, description); err != nil {
				return err
			}
			if err := a.graph.LinkVulnerabilityToSoftwareVersion(ctx, description, sweptVersion); err != nil {
				return err
			}
			if err := a.graph.CreateCVE(ctx, vuln); err != nil {
				return err
			}
		}

		if err := a.graph.LinkCVEToVulnerability(ctx, vuln.CVE, description); err != nil {
			return err
		}

		// Range-match the configurations against every stored version.
		if _, err := matcher.ProcessConfigurations(ctx, vuln.Configurations, description, true); err != nil {
			a.log.Warn("configuration matching failed", "cve", vuln.CVE, "error", err)
		}
	}
	return nil
}
