package activities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/models"
)

func TestGetAssetInfoFiltersProcessed(t *testing.T) {
	isimServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ips", r.URL.Path)
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			json.NewEncoder(w).Encode([]models.IPAssetInfo{
				{IP: "10.0.0.1"},
				{IP: "10.0.0.2", Tag: []string{"SLP"}},
				{IP: "10.0.0.3", Tag: []string{"CASM"}},
			})
			return
		}
		json.NewEncoder(w).Encode([]models.IPAssetInfo{})
	}))
	defer isimServer.Close()

	log := logger.New("error", "text")
	slp := NewSLPActivities(isim.New(config.ISIMConfig{URL: isimServer.URL}, log), log)

	assets, err := slp.GetAssetInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "10.0.0.1", assets[0].IP)
	assert.Equal(t, "10.0.0.3", assets[1].IP)
}

func TestGetDataFromSLP(t *testing.T) {
	slpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		var request models.SLPBulkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		// Localhost never reaches the external API.
		assert.Equal(t, []string{"10.0.0.1"}, request.IPs)

		score := 42
		json.NewEncoder(w).Encode(models.SLPBulkResponse{
			StatusCode: 200,
			Response: models.SLPBulkPayload{
				IP2ASN: []models.SLPIP2ASN{
					{IP: "10.0.0.1", IPPtr: "host.example.com", Subnet: "10.0.0.0/8", SPRiskScore: &score},
				},
			},
		})
	}))
	defer slpServer.Close()

	log := logger.New("error", "text")
	slp := NewSLPActivities(isim.New(config.ISIMConfig{URL: "http://unused"}, log), log)
	slp.SetBulkURL(slpServer.URL)

	records, err := slp.GetDataFromSLP(context.Background(), []models.IPAssetInfo{
		{IP: "127.0.0.1"},
		{IP: "10.0.0.1"},
	}, "test-key")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "10.0.0.1", records[0].IP)
	assert.Equal(t, "host.example.com", records[0].Domain)
	assert.Equal(t, "10.0.0.0/8", records[0].Subnet)
	assert.Equal(t, "42", records[0].SPRiskScore)
}

func TestGetDataFromSLPDefaults(t *testing.T) {
	slpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SLPBulkResponse{
			StatusCode: 200,
			Response: models.SLPBulkPayload{
				IP2ASN: []models.SLPIP2ASN{{IP: "10.0.0.1"}},
			},
		})
	}))
	defer slpServer.Close()

	log := logger.New("error", "text")
	slp := NewSLPActivities(isim.New(config.ISIMConfig{URL: "http://unused"}, log), log)
	slp.SetBulkURL(slpServer.URL)

	records, err := slp.GetDataFromSLP(context.Background(), []models.IPAssetInfo{{IP: "10.0.0.1"}}, "key")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0.0.0.0/0", records[0].Subnet)
	assert.Equal(t, "null", records[0].SPRiskScore)
}
