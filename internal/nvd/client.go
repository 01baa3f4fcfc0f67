package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/telemetry"
)

const (
	cveBaseURL      = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	cpeMatchBaseURL = "https://services.nvd.nist.gov/rest/json/cpematch/2.0"

	// The vendor documentation recommends pausing six seconds between
	// requests. The limiter enforces the spacing before every call.
	requestInterval = 6 * time.Second

	requestTimeout = 60 * time.Second

	// PageStep is the startIndex increment between result pages.
	PageStep = 2000
)

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// Client is a rate-limited NVD API 2.0 client.
type Client struct {
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
	cveURL     string
	matchURL   string
	log        *logger.Logger
}

// NewClient creates a client. The API key is optional; without one the same
// six-second spacing applies, matching the public-tier guidance.
func NewClient(apiKey string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(requestInterval), 1),
		cveURL:     cveBaseURL,
		matchURL:   cpeMatchBaseURL,
		log:        log.WithComponent("nvd-client"),
	}
}

// SetBaseURLs overrides the API endpoints. Used by tests.
func (c *Client) SetBaseURLs(cveURL, matchURL string) {
	c.cveURL = cveURL
	c.matchURL = matchURL
}

// SetRequestInterval overrides the inter-request spacing. Used by tests.
func (c *Client) SetRequestInterval(d time.Duration) {
	c.limiter = rate.NewLimiter(rate.Every(d), 1)
}

// SearchByDateRange returns CVE records published within the given range.
func (c *Client) SearchByDateRange(ctx context.Context, start, end time.Time) ([]RawCVE, error) {
	if start.After(end) {
		return nil, faults.New(faults.BadInput, "start date %s is after end date %s", start, end)
	}

	params := url.Values{}
	params.Set("pubStartDate", start.Format(time.RFC3339))
	params.Set("pubEndDate", end.Format(time.RFC3339))

	resp, err := c.get(ctx, c.cveURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return unwrap(resp), nil
}

// SearchByID returns the record for a single CVE identifier.
func (c *Client) SearchByID(ctx context.Context, cveID string) ([]RawCVE, error) {
	if !cveIDPattern.MatchString(cveID) {
		return nil, faults.New(faults.BadInput, "invalid CVE ID format: %q", cveID)
	}

	params := url.Values{}
	params.Set("cveId", cveID)

	resp, err := c.get(ctx, c.cveURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	records := unwrap(resp)
	if len(records) > 1 {
		records = records[:1]
	}
	return records, nil
}

// VersionSearch holds the parameters of a product-version CVE search.
type VersionSearch struct {
	// Version is the "vendor:product:version" short form.
	Version string
	// Part is the CPE part: "a", "h", or "o".
	Part string
	// StartIndex is the pagination cursor.
	StartIndex int
	// IsVulnerable restricts results to records where the version is
	// listed as vulnerable.
	IsVulnerable bool
	// LastModStartDate is the watermark; only records modified after it
	// are returned. When set without an end date, now+1h is used.
	LastModStartDate string
	LastModEndDate   string
}

// SearchByVersion returns one result page for a product version. The caller
// owns the pagination loop; it should advance StartIndex by PageStep until
// startIndex+resultsPerPage >= totalResults.
func (c *Client) SearchByVersion(ctx context.Context, search VersionSearch) (*APIResponse, error) {
	if search.Version == "" || strings.Count(search.Version, ":") < 2 {
		return nil, faults.New(faults.BadInput, "invalid version %q (expected 'vendor:product:version')", search.Version)
	}
	if search.Part != "a" && search.Part != "h" && search.Part != "o" {
		return nil, faults.New(faults.BadInput, "invalid part %q (must be 'a', 'h', or 'o')", search.Part)
	}

	// The isVulnerable flag is valueless, so the query is assembled by hand.
	pairs := []string{
		fmt.Sprintf("cpeName=%s", url.QueryEscape(fmt.Sprintf("cpe:2.3:%s:%s", search.Part, search.Version))),
		fmt.Sprintf("startIndex=%d", search.StartIndex),
	}
	if search.IsVulnerable {
		pairs = append(pairs, "isVulnerable")
	}
	if search.LastModStartDate != "" {
		pairs = append(pairs, "lastModStartDate="+url.QueryEscape(search.LastModStartDate))
		end := search.LastModEndDate
		if end == "" {
			end = time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
		}
		pairs = append(pairs, "lastModEndDate="+url.QueryEscape(end))
	}

	c.log.Info("searching CVEs",
		"version", search.Version,
		"part", search.Part,
		"start_index", search.StartIndex,
		"last_mod_start", search.LastModStartDate,
	)

	resp, err := c.get(ctx, c.cveURL+"?"+strings.Join(pairs, "&"))
	if err != nil {
		return nil, err
	}
	c.log.Info("total results", "count", resp.TotalResults)
	return resp, nil
}

// MatchCriteria expands a matchCriteriaId into the concrete CPE names it
// covers. Used when a configuration has a wildcard version and no bounds.
func (c *Client) MatchCriteria(ctx context.Context, matchCriteriaID string) ([]string, error) {
	params := url.Values{}
	params.Set("matchCriteriaId", matchCriteriaID)

	body, err := c.request(ctx, c.matchURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp MatchCriteriaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "decoding cpematch response")
	}

	var names []string
	for _, ms := range resp.MatchStrings {
		for _, match := range ms.MatchString.Matches {
			names = append(names, match.CPEName)
		}
	}
	return names, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*APIResponse, error) {
	body, err := c.request(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "decoding NVD response")
	}
	return &resp, nil
}

func (c *Client) request(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "waiting for rate limiter")
	}

	ctx, span := telemetry.StartSpan(ctx, "nvd.request")
	defer span.End()
	span.SetAttribute("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "building NVD request")
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetError(err)
		return nil, faults.Wrap(faults.TransientNetwork, err, "requesting NVD API")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetError(err)
		return nil, faults.Wrap(faults.TransientNetwork, err, "reading NVD response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		span.SetOK()
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		err := faults.New(faults.RateLimited, "NVD rate limit exceeded (HTTP 429)")
		span.SetError(err)
		return nil, err
	default:
		err := faults.New(faults.TransientNetwork, "NVD API returned HTTP %d", resp.StatusCode)
		span.SetError(err)
		return nil, err
	}
}

func unwrap(resp *APIResponse) []RawCVE {
	records := make([]RawCVE, 0, len(resp.Vulnerabilities))
	for _, item := range resp.Vulnerabilities {
		records = append(records, item.CVE)
	}
	return records
}
