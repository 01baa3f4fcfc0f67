package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/models"
)

// slpBulkURL is the bulk ip2asn lookup of the SLP API.
const slpBulkURL = "https://api.silentpush.com/api/v1/merge-api/explore/bulk/ip2asn/ipv4"

// slpBatchSize bounds how many unprocessed addresses one enrichment run
// takes on.
const slpBatchSize = 100

// SLPActivities enriches stored IPs with external intelligence from the
// SLP API.
type SLPActivities struct {
	isim       *isim.Client
	httpClient *http.Client
	bulkURL    string
	log        *logger.Logger
}

// NewSLPActivities creates the SLP enrichment activity set.
func NewSLPActivities(isimClient *isim.Client, log *logger.Logger) *SLPActivities {
	return &SLPActivities{
		isim:       isimClient,
		httpClient: &http.Client{Timeout: 300 * time.Second},
		bulkURL:    slpBulkURL,
		log:        log.WithComponent("slp-activities"),
	}
}

// SetBulkURL overrides the SLP endpoint. Used by tests.
func (a *SLPActivities) SetBulkURL(url string) { a.bulkURL = url }

// GetAssetInfo pages through the stored IPs and returns up to one batch of
// addresses that have not been enriched yet (no "SLP" tag).
func (a *SLPActivities) GetAssetInfo(ctx context.Context) ([]models.IPAssetInfo, error) {
	var unprocessed []models.IPAssetInfo
	offset := 0
	const limit = 100

	for len(unprocessed) < slpBatchSize {
		page, err := a.isim.GetIPs(ctx, limit, offset)
		if err != nil {
			return nil, appError(err)
		}

		for _, info := range page {
			if hasTag(info.Tag, "SLP") {
				continue
			}
			unprocessed = append(unprocessed, info)
			if len(unprocessed) == slpBatchSize {
				break
			}
		}

		if len(page) < limit {
			break
		}
		offset += limit
	}

	return unprocessed, nil
}

// GetDataFromSLP performs the bulk ip2asn lookup for the given assets and
// normalizes the records. Localhost carries no external intelligence and is
// skipped.
func (a *SLPActivities) GetDataFromSLP(ctx context.Context, assets []models.IPAssetInfo, apiKey string) ([]models.SLPRecord, error) {
	var addresses []string
	for _, asset := range assets {
		if asset.IP == "127.0.0.1" {
			continue
		}
		addresses = append(addresses, asset.IP)
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(models.SLPBulkRequest{IPs: addresses})
	if err != nil {
		return nil, appError(faults.Wrap(faults.BadInput, err, "encoding SLP request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.bulkURL, bytes.NewReader(payload))
	if err != nil {
		return nil, appError(faults.Wrap(faults.BadInput, err, "building SLP request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, appError(faults.Wrap(faults.TransientNetwork, err, "requesting SLP API"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appError(faults.Wrap(faults.TransientNetwork, err, "reading SLP response"))
	}

	var bulk models.SLPBulkResponse
	if err := json.Unmarshal(body, &bulk); err != nil {
		return nil, appError(faults.Wrap(faults.TransientNetwork, err, "decoding SLP response"))
	}
	if bulk.StatusCode != http.StatusOK || bulk.Error != "" {
		return nil, appError(faults.New(faults.TransientNetwork,
			"SLP API returned status %d error %q", bulk.StatusCode, bulk.Error))
	}

	records := make([]models.SLPRecord, 0, len(bulk.Response.IP2ASN))
	for _, item := range bulk.Response.IP2ASN {
		record := models.SLPRecord{
			IP:          item.IP,
			Domain:      item.IPPtr,
			Subnet:      item.Subnet,
			SPRiskScore: "null",
		}
		if record.Subnet == "" {
			record.Subnet = "0.0.0.0/0"
		}
		if item.SPRiskScore != nil {
			record.SPRiskScore = strconv.Itoa(*item.SPRiskScore)
		}
		records = append(records, record)
	}

	a.log.Info("fetched SLP enrichment", "records", len(records))
	return records, nil
}

// StoreDataFromSLP publishes the enrichment records.
func (a *SLPActivities) StoreDataFromSLP(ctx context.Context, records []models.SLPRecord) (string, error) {
	if len(records) == 0 {
		return "no records to store", nil
	}
	response, err := a.isim.PostSLPEnrichment(ctx, records)
	return response, appError(err)
}

func hasTag(tags []string, wanted string) bool {
	for _, tag := range tags {
		if tag == wanted {
			return true
		}
	}
	return false
}
