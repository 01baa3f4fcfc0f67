package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/faults"
)

const sampleConfig = `
log_level: debug
temporal:
  url: "temporal:7233"
  namespace: default
neo4j:
  bolt: "bolt://neo4j:7687"
  user: neo4j
  password: secret
redis:
  host: redis
  port: 6379
isim:
  url: "http://isim:8000"
easm_scanner:
  domains: ["example.com"]
  mode: fast
  threads: 50
nmap_basic:
  targets: ["192.168.1.0/24"]
  arguments: "-sV"
  tag: ["internal"]
nmap_topology:
  targets: ["192.168.1.0/24"]
  arguments: ""
cve_connector:
  nvd_api_key: "key-from-file"
slp_enrichment:
  x_api_key: "slp-key"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "temporal:7233", cfg.Temporal.URL)
	assert.Equal(t, "easm", cfg.Temporal.EasmTaskQueue)
	assert.Equal(t, "cve_connector", cfg.Temporal.CVEConnectorTaskQueue)
	assert.Equal(t, "bolt://neo4j:7687", cfg.Neo4j.Bolt)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"example.com"}, cfg.EasmScanner.Domains)
	assert.Equal(t, 50, cfg.EasmScanner.Threads)
	assert.Equal(t, "key-from-file", cfg.CVEConnector.NVDAPIKey)
	assert.Equal(t, "Internal IT", cfg.NmapBasic.OrgUnitName)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "env-secret")
	t.Setenv("TEMPORAL_HOST", "other-temporal")
	t.Setenv("TEMPORAL_PORT", "7234")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Neo4j.Password)
	assert.Equal(t, "other-temporal:7234", cfg.Temporal.URL)
}

func TestLoadNVDKeyFallback(t *testing.T) {
	t.Setenv("NVD_KEY", "env-nvd-key")

	// The file value wins when present.
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "key-from-file", cfg.CVEConnector.NVDAPIKey)
}

func TestLoadMissingRequired(t *testing.T) {
	content := `
temporal:
  url: "temporal:7233"
isim:
  url: "http://isim:8000"
`
	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.BadInput))
	assert.Contains(t, err.Error(), "neo4j.password")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.BadInput))
}

func TestEasmScannerValidate(t *testing.T) {
	cfg := EasmScannerConfig{Domains: []string{"example.com"}, Mode: "fast"}
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Complete())

	cfg.Mode = "sideways"
	assert.Error(t, cfg.Validate())

	cfg.Mode = "complete"
	assert.True(t, cfg.Complete())
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wordlist")

	wordlist := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(wordlist, []byte("www\napi\n"), 0o600))
	cfg.WordlistPath = wordlist
	assert.NoError(t, cfg.Validate())
}
