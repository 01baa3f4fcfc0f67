package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/models"
)

// FingerprintsURL is the wappalyzergo fingerprint catalog used to map
// detected technology names onto CPE vendor/product pairs.
const FingerprintsURL = "https://raw.githubusercontent.com/projectdiscovery/wappalyzergo/refs/heads/main/fingerprints_data.json"

// Fingerprints maps a technology name onto its CPE template.
type Fingerprints map[string]string

// FingerprintLoader fetches and caches the fingerprint catalog once per
// process.
type FingerprintLoader struct {
	url  string
	once sync.Once
	fp   Fingerprints
	err  error
}

// NewFingerprintLoader creates a loader for the given catalog URL.
func NewFingerprintLoader(url string) *FingerprintLoader {
	if url == "" {
		url = FingerprintsURL
	}
	return &FingerprintLoader{url: url}
}

// Load returns the cached fingerprints, fetching them on first use.
func (l *FingerprintLoader) Load(ctx context.Context) (Fingerprints, error) {
	l.once.Do(func() {
		l.fp, l.err = fetchFingerprints(ctx, l.url)
	})
	return l.fp, l.err
}

func fetchFingerprints(ctx context.Context, url string) (Fingerprints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "building fingerprints request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "fetching fingerprints")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, faults.New(faults.TransientNetwork, "fingerprints fetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "reading fingerprints")
	}

	var payload struct {
		Apps map[string]struct {
			CPE string `json:"cpe"`
		} `json:"apps"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "decoding fingerprints")
	}

	fp := make(Fingerprints, len(payload.Apps))
	for name, app := range payload.Apps {
		if app.CPE != "" {
			fp[name] = app.CPE
		}
	}
	return fp, nil
}

// httpxLine is one JSONL entry emitted by httpx.
type httpxLine struct {
	Failed bool     `json:"failed"`
	Host   string   `json:"host"`
	Input  string   `json:"input"`
	Port   int      `json:"port"`
	Scheme string   `json:"scheme"`
	Tech   []string `json:"tech"`
}

// ParseHttpxOutput converts httpx JSONL into EASM result records. Failed
// probes are skipped; detected technologies are mapped onto CPE 2.3 strings
// through the fingerprint catalog.
func ParseHttpxOutput(jsonl string, fingerprints Fingerprints) ([]models.EASMResult, error) {
	var results []models.EASMResult

	for _, line := range strings.Split(strings.TrimSpace(jsonl), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry httpxLine
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, faults.Wrap(faults.BadInput, err, "decoding httpx output line")
		}
		if entry.Failed {
			continue
		}

		port := entry.Port
		if port == 0 {
			port = 80
		}
		scheme := entry.Scheme
		if scheme == "" {
			scheme = "http"
		}

		results = append(results, models.EASMResult{
			Port:             port,
			Protocol:         scheme,
			Service:          scheme,
			IP:               entry.Host,
			DomainName:       entry.Input,
			SoftwareVersions: DetermineSoftwareVersions(entry.Tech, fingerprints),
		})
	}

	return results, nil
}

// DetermineSoftwareVersions maps technology strings like "nginx:1.24" onto
// CPE 2.3 entries using the fingerprint catalog. Technologies without a CPE
// template are dropped; duplicates are kept out.
func DetermineSoftwareVersions(technologies []string, fingerprints Fingerprints) []models.EASMSoftwareVersion {
	if len(technologies) == 0 {
		return nil
	}

	var results []models.EASMSoftwareVersion
	seen := map[string]bool{}

	for _, tech := range technologies {
		name, version := tech, ""
		if idx := strings.Index(tech, ":"); idx >= 0 {
			name, version = tech[:idx], tech[idx+1:]
		}
		name = strings.TrimSpace(name)
		version = strings.TrimSpace(version)

		template, ok := fingerprints[name]
		if !ok {
			continue
		}
		fields := strings.Split(template, ":")
		if len(fields) < 5 {
			continue
		}
		vendor, product := fields[3], fields[4]
		cpeVersion := version
		if cpeVersion == "" {
			cpeVersion = "*"
		}
		entry := models.EASMSoftwareVersion{
			Name:    tech,
			Version: fmt.Sprintf("cpe:2.3:a:%s:%s:%s:*:*:*:*:*:*:*", vendor, product, cpeVersion),
		}
		key := entry.Name + "|" + entry.Version
		if !seen[key] {
			seen[key] = true
			results = append(results, entry)
		}
	}

	return results
}
