package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFingerprints = Fingerprints{
	"nginx":  "cpe:2.3:a:nginx:nginx:*:*:*:*:*:*:*:*",
	"Apache": "cpe:2.3:a:apache:http_server:*:*:*:*:*:*:*:*",
}

func TestParseHttpxOutput(t *testing.T) {
	jsonl := `{"host": "93.184.216.34", "input": "a.example.com", "port": 443, "scheme": "https", "tech": ["nginx:1.24"]}
{"host": "93.184.216.35", "input": "b.example.com", "port": 443, "scheme": "https", "tech": ["nginx:1.24"]}
{"input": "dead.example.com", "failed": true}`

	results, err := ParseHttpxOutput(jsonl, testFingerprints)
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, 443, first.Port)
	assert.Equal(t, "https", first.Protocol)
	assert.Equal(t, "https", first.Service)
	assert.Equal(t, "93.184.216.34", first.IP)
	assert.Equal(t, "a.example.com", first.DomainName)
	require.Len(t, first.SoftwareVersions, 1)
	assert.Equal(t, "nginx:1.24", first.SoftwareVersions[0].Name)
	assert.Equal(t, "cpe:2.3:a:nginx:nginx:1.24:*:*:*:*:*:*:*", first.SoftwareVersions[0].Version)
}

func TestParseHttpxOutputDefaults(t *testing.T) {
	jsonl := `{"input": "plain.example.com"}`

	results, err := ParseHttpxOutput(jsonl, testFingerprints)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 80, results[0].Port)
	assert.Equal(t, "http", results[0].Protocol)
	assert.Empty(t, results[0].SoftwareVersions)
}

func TestParseHttpxOutputEmpty(t *testing.T) {
	results, err := ParseHttpxOutput("", testFingerprints)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParseHttpxOutputBadLine(t *testing.T) {
	_, err := ParseHttpxOutput("this is not json", testFingerprints)
	assert.Error(t, err)
}

func TestDetermineSoftwareVersions(t *testing.T) {
	versions := DetermineSoftwareVersions([]string{"nginx:1.24", "Apache", "Unknown Widget"}, testFingerprints)
	require.Len(t, versions, 2)

	assert.Equal(t, "nginx:1.24", versions[0].Name)
	assert.Equal(t, "cpe:2.3:a:nginx:nginx:1.24:*:*:*:*:*:*:*", versions[0].Version)

	// Technology without a detected version maps onto a wildcard.
	assert.Equal(t, "Apache", versions[1].Name)
	assert.Equal(t, "cpe:2.3:a:apache:http_server:*:*:*:*:*:*:*:*", versions[1].Version)
}

func TestDetermineSoftwareVersionsDeduplicates(t *testing.T) {
	versions := DetermineSoftwareVersions([]string{"nginx:1.24", "nginx:1.24"}, testFingerprints)
	assert.Len(t, versions, 1)
}
