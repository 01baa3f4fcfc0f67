// Package isim is the client for the ISIM REST collaborator, the single
// ingestion surface in front of the graph store.
package isim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/models"
	"github.com/resilmesh/casm/pkg/telemetry"
)

// Client talks to the ISIM REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// New creates a client for the configured ISIM endpoint.
func New(cfg config.ISIMConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		log:        log.WithComponent("isim-client"),
	}
}

// PostAssets publishes an Nmap asset document.
func (c *Client) PostAssets(ctx context.Context, doc *models.NmapResults) (string, error) {
	return c.post(ctx, "/assets", doc)
}

// PostEASM publishes probed-service records.
func (c *Client) PostEASM(ctx context.Context, records []models.EASMResult) (string, error) {
	return c.post(ctx, "/easm", records)
}

// PostTraceroute publishes a traceroute hop-path document.
func (c *Client) PostTraceroute(ctx context.Context, result *models.TracerouteResult) (string, error) {
	return c.post(ctx, "/traceroute", result)
}

// PostSLPEnrichment publishes SLP enrichment records.
func (c *Client) PostSLPEnrichment(ctx context.Context, records []models.SLPRecord) (string, error) {
	return c.post(ctx, "/slp_enrichment", records)
}

// PostBetweennessCentrality triggers betweenness computation on the store.
func (c *Client) PostBetweennessCentrality(ctx context.Context) (string, error) {
	return c.post(ctx, "/nodes/betweenness_centrality", nil)
}

// PostDegreeCentrality triggers degree computation on the store.
func (c *Client) PostDegreeCentrality(ctx context.Context) (string, error) {
	return c.post(ctx, "/nodes/degree_centrality", nil)
}

// PostStoreCriticality stores computed host criticalities.
func (c *Client) PostStoreCriticality(ctx context.Context, criticalities []models.HostCriticality) (string, error) {
	return c.post(ctx, "/nodes/store_criticality", criticalities)
}

// PostCombineCriticality triggers the criticality fusion on the store.
func (c *Client) PostCombineCriticality(ctx context.Context) (string, error) {
	return c.post(ctx, "/nodes/combine_criticality", nil)
}

// PostIPHierarchySync triggers a rebuild of the IP/subnet hierarchy.
func (c *Client) PostIPHierarchySync(ctx context.Context) (string, error) {
	return c.post(ctx, "/ip-hierarchy-sync", nil)
}

// GetMissions returns all missions with their structure JSON.
func (c *Client) GetMissions(ctx context.Context) ([]models.Mission, error) {
	body, err := c.get(ctx, "/missions", nil)
	if err != nil {
		return nil, err
	}
	var missions []models.Mission
	if err := json.Unmarshal(body, &missions); err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "decoding missions")
	}
	return missions, nil
}

// GetIPs returns one page of IP asset information.
func (c *Client) GetIPs(ctx context.Context, limit, offset int) ([]models.IPAssetInfo, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := c.get(ctx, "/ips", params)
	if err != nil {
		return nil, err
	}
	var infos []models.IPAssetInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "decoding IP asset info")
	}
	return infos, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (string, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return "", faults.Wrap(faults.BadInput, err, "encoding %s payload", path)
		}
		body = bytes.NewReader(encoded)
	}

	ctx, span := telemetry.StartSpan(ctx, "isim.post "+path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return "", faults.Wrap(faults.BadInput, err, "building request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	span.SetOK()
	return string(respBody), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	ctx, span := telemetry.StartSpan(ctx, "isim.get "+path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "building request for %s", path)
	}

	body, err := c.do(req)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetOK()
	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "requesting %s", req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "reading response from %s", req.URL.Path)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, faults.New(faults.BadInput, "ISIM rejected %s: %s", req.URL.Path, truncate(body))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, faults.New(faults.RateLimited, "ISIM rate-limited %s", req.URL.Path)
	default:
		return nil, faults.New(faults.TransientNetwork, "ISIM returned HTTP %d for %s: %s",
			resp.StatusCode, req.URL.Path, truncate(body))
	}
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return fmt.Sprintf("%s... (%d bytes)", body[:max], len(body))
	}
	return string(body)
}
