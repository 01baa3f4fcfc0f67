package nvd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key", logger.New("error", "text"))
	client.SetBaseURLs(server.URL, server.URL)
	client.SetRequestInterval(time.Millisecond)
	return client
}

func TestSearchByDateRangeValidation(t *testing.T) {
	client := NewClient("", logger.New("error", "text"))
	client.SetRequestInterval(time.Millisecond)

	now := time.Now()
	_, err := client.SearchByDateRange(context.Background(), now, now.Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.BadInput))
}

func TestSearchByIDValidation(t *testing.T) {
	client := NewClient("", logger.New("error", "text"))
	client.SetRequestInterval(time.Millisecond)

	for _, id := range []string{"", "CVE-21-1234", "cve-2021-1234", "CVE-2021-12"} {
		_, err := client.SearchByID(context.Background(), id)
		require.Error(t, err, id)
		assert.True(t, faults.Is(err, faults.BadInput), id)
	}
}

func TestSearchByIDReturnsSingleRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CVE-2021-44228", r.URL.Query().Get("cveId"))
		assert.Equal(t, "test-key", r.Header.Get("apiKey"))
		json.NewEncoder(w).Encode(APIResponse{
			TotalResults: 1,
			Vulnerabilities: []CVEContainer{
				{CVE: RawCVE{ID: "CVE-2021-44228"}},
			},
		})
	})

	records, err := client.SearchByID(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CVE-2021-44228", records[0].ID)
}

func TestSearchByVersionValidation(t *testing.T) {
	client := NewClient("", logger.New("error", "text"))
	client.SetRequestInterval(time.Millisecond)
	ctx := context.Background()

	_, err := client.SearchByVersion(ctx, VersionSearch{Version: "nocolons", Part: "a"})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.BadInput))

	_, err = client.SearchByVersion(ctx, VersionSearch{Version: "vendor:product:1.0", Part: "x"})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.BadInput))
}

func TestSearchByVersionQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.RawQuery
		assert.Contains(t, query, "cpeName=cpe%3A2.3%3Aa%3Anginx%3Anginx%3A1.24")
		assert.Contains(t, query, "startIndex=2000")
		// isVulnerable is a valueless flag.
		assert.Contains(t, query, "isVulnerable")
		assert.Contains(t, query, "lastModStartDate=")
		assert.Contains(t, query, "lastModEndDate=")
		json.NewEncoder(w).Encode(APIResponse{TotalResults: 0})
	})

	_, err := client.SearchByVersion(context.Background(), VersionSearch{
		Version:          "nginx:nginx:1.24",
		Part:             "a",
		StartIndex:       2000,
		IsVulnerable:     true,
		LastModStartDate: "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)
}

func TestRateLimitedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.SearchByVersion(context.Background(), VersionSearch{
		Version: "nginx:nginx:1.24",
		Part:    "a",
	})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.RateLimited))
}

func TestServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.SearchByVersion(context.Background(), VersionSearch{
		Version: "nginx:nginx:1.24",
		Part:    "a",
	})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.TransientNetwork))
}

func TestMatchCriteria(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ABCD-1234", r.URL.Query().Get("matchCriteriaId"))
		w.Write([]byte(`{"matchStrings": [{"matchString": {
			"criteria": "cpe:2.3:a:vendor:product:*:*:*:*:*:*:*:*",
			"matchCriteriaId": "ABCD-1234",
			"matches": [
				{"cpeName": "cpe:2.3:a:vendor:product:1.0:*:*:*:*:*:*:*"},
				{"cpeName": "cpe:2.3:a:vendor:product:1.1:*:*:*:*:*:*:*"}
			]}}]}`))
	})

	names, err := client.MatchCriteria(context.Background(), "ABCD-1234")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cpe:2.3:a:vendor:product:1.0:*:*:*:*:*:*:*",
		"cpe:2.3:a:vendor:product:1.1:*:*:*:*:*:*:*",
	}, names)
}

func TestRequestSpacing(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(APIResponse{})
	})
	client.SetRequestInterval(50 * time.Millisecond)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.SearchByVersion(ctx, VersionSearch{Version: "a:b:1", Part: "a"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	// Three requests spaced 50ms apart take at least 100ms.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
