package nvd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/logger"
)

const sampleRecord = `{
  "id": "CVE-2021-0001",
  "published": "2021-01-05T10:00:00.000",
  "lastModified": "2021-02-01T10:00:00.000",
  "descriptions": [
    {"lang": "en", "value": "A flaw allows remote attackers to execute arbitrary code as root."}
  ],
  "weaknesses": [
    {"source": "nvd@nist.gov", "type": "Primary", "description": [{"lang": "en", "value": "CWE-787"}]}
  ],
  "metrics": {
    "cvssMetricV2": [
      {
        "source": "nvd@nist.gov",
        "type": "Primary",
        "cvssData": {
          "vectorString": "AV:N/AC:L/Au:N/C:C/I:C/A:C",
          "accessVector": "NETWORK",
          "accessComplexity": "LOW",
          "authentication": "NONE",
          "confidentialityImpact": "COMPLETE",
          "integrityImpact": "COMPLETE",
          "availabilityImpact": "COMPLETE",
          "baseScore": 10.0
        },
        "baseSeverity": "HIGH",
        "exploitabilityScore": 10.0,
        "impactScore": 10.0,
        "obtainAllPrivilege": true
      }
    ],
    "cvssMetricV31": [
      {
        "source": "secondary@vendor.com",
        "type": "Secondary",
        "cvssData": {
          "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:L/I:L/A:L",
          "attackVector": "NETWORK",
          "attackComplexity": "LOW",
          "privilegesRequired": "NONE",
          "userInteraction": "NONE",
          "scope": "UNCHANGED",
          "confidentialityImpact": "LOW",
          "integrityImpact": "LOW",
          "availabilityImpact": "LOW",
          "baseScore": 7.3,
          "baseSeverity": "HIGH"
        },
        "exploitabilityScore": 3.9,
        "impactScore": 3.4
      },
      {
        "source": "nvd@nist.gov",
        "type": "Primary",
        "cvssData": {
          "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
          "attackVector": "NETWORK",
          "attackComplexity": "LOW",
          "privilegesRequired": "NONE",
          "userInteraction": "NONE",
          "scope": "UNCHANGED",
          "confidentialityImpact": "HIGH",
          "integrityImpact": "HIGH",
          "availabilityImpact": "HIGH",
          "baseScore": 9.8,
          "baseSeverity": "CRITICAL"
        },
        "exploitabilityScore": 3.9,
        "impactScore": 5.9
      }
    ]
  },
  "references": [
    {"url": "https://example.com/advisory", "tags": ["Vendor Advisory", "Patch"]}
  ],
  "configurations": [
    {
      "nodes": [
        {
          "operator": "OR",
          "cpeMatch": [
            {"vulnerable": true, "criteria": "cpe:2.3:o:vendor:firmware:1.0:*:*:*:*:*:*:*", "matchCriteriaId": "AAAA"}
          ]
        }
      ]
    }
  ]
}`

func parseOne(t *testing.T, raw string) *Vulnerability {
	t.Helper()
	var record RawCVE
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	parsed := Parse([]RawCVE{record}, logger.New("error", "text"))
	require.Len(t, parsed, 1)
	return parsed[0]
}

func TestParseRecord(t *testing.T) {
	vuln := parseOne(t, sampleRecord)

	assert.Equal(t, "CVE-2021-0001", vuln.CVE)
	assert.Contains(t, vuln.Description, "execute arbitrary code as root")
	assert.True(t, vuln.CWE["CWE-787"])
	assert.True(t, vuln.CPEType["o"])
	assert.True(t, vuln.RefTags["Vendor Advisory"])
	assert.True(t, vuln.RefTags["Patch"])
	assert.Equal(t, "2021-01-05T10:00:00.000", vuln.Published)

	// The Primary v3.1 metric wins over the Secondary listed first.
	require.True(t, vuln.CVSSv31.Present)
	assert.Equal(t, "HIGH", vuln.CVSSv31.ConfidentialityImpact)
	assert.Equal(t, 9.8, vuln.CVSSv31.BaseScore)

	require.True(t, vuln.CVSSv2.Present)
	assert.True(t, vuln.CVSSv2.ObtainAllPrivilege)
	assert.Equal(t, "COMPLETE", vuln.CVSSv2.ConfidentialityImpact)

	assert.False(t, vuln.CVSSv30.Present)
	assert.False(t, vuln.CVSSv40.Present)

	// Raw configurations survive for later CPE expansion.
	assert.NotEmpty(t, vuln.RawConfigs)
	require.Len(t, vuln.Configurations, 1)
}

func TestParseClassifiesRootExecution(t *testing.T) {
	vuln := parseOne(t, sampleRecord)
	assert.Equal(t, []string{"Arbitrary code execution as root/administrator/system"}, vuln.ResultImpacts)
}

func TestParseSkipsRecordsWithoutIDOrDescription(t *testing.T) {
	records := []RawCVE{
		{},
		{ID: "CVE-2021-0002"},
	}
	parsed := Parse(records, logger.New("error", "text"))
	assert.Empty(t, parsed)
}

func TestHasMore(t *testing.T) {
	resp := &APIResponse{TotalResults: 3500, ResultsPerPage: 2000, StartIndex: 0}
	assert.True(t, resp.HasMore())

	resp = &APIResponse{TotalResults: 3500, ResultsPerPage: 1500, StartIndex: 2000}
	assert.False(t, resp.HasMore())

	resp = &APIResponse{TotalResults: 100, ResultsPerPage: 100, StartIndex: 0}
	assert.False(t, resp.HasMore())
}
