// Package config provides configuration management using Viper.
//
// The pipeline is configured from a single YAML file with one section per
// component; a small set of environment variables override the file so that
// secrets never have to live on disk.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/resilmesh/casm/pkg/faults"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	Temporal      TemporalConfig      `mapstructure:"temporal"`
	Neo4j         Neo4jConfig         `mapstructure:"neo4j"`
	Redis         RedisConfig         `mapstructure:"redis"`
	NmapBasic     NmapBasicConfig     `mapstructure:"nmap_basic"`
	NmapTopology  NmapTopologyConfig  `mapstructure:"nmap_topology"`
	ISIM          ISIMConfig          `mapstructure:"isim"`
	EasmScanner   EasmScannerConfig   `mapstructure:"easm_scanner"`
	SLPEnrichment SLPEnrichmentConfig `mapstructure:"slp_enrichment"`
	CVEConnector  CVEConnectorConfig  `mapstructure:"cve_connector"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

// TemporalConfig holds Temporal server and task queue configuration.
type TemporalConfig struct {
	URL                    string `mapstructure:"url"`
	Namespace              string `mapstructure:"namespace"`
	EasmTaskQueue          string `mapstructure:"easm_task_queue"`
	NmapTaskQueue          string `mapstructure:"nmap_task_queue"`
	CVEConnectorTaskQueue  string `mapstructure:"cve_connector_task_queue"`
	SLPEnrichmentTaskQueue string `mapstructure:"slp_enrichment_task_queue"`
	CSATaskQueue           string `mapstructure:"csa_task_queue"`
}

// Neo4jConfig holds graph database connection configuration.
type Neo4jConfig struct {
	Bolt     string `mapstructure:"bolt"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds blob store connection configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NmapBasicConfig holds targets and arguments for the basic Nmap workflow.
type NmapBasicConfig struct {
	Targets     []string `mapstructure:"targets" json:"targets"`
	Arguments   string   `mapstructure:"arguments" json:"arguments"`
	Tag         []string `mapstructure:"tag" json:"tag"`
	OrgUnitName string   `mapstructure:"org_unit_name" json:"org_unit_name"`
}

// NmapTopologyConfig holds targets for the traceroute workflow.
type NmapTopologyConfig struct {
	Targets   []string `mapstructure:"targets" json:"targets"`
	Arguments string   `mapstructure:"arguments" json:"arguments"`
}

// ISIMConfig holds the base URL of the ISIM REST collaborator.
type ISIMConfig struct {
	URL string `mapstructure:"url"`
}

// EasmScannerConfig holds the EASM scan parameters.
type EasmScannerConfig struct {
	Domains      []string `mapstructure:"domains" json:"domains"`
	Mode         string   `mapstructure:"mode" json:"mode"`
	Threads      int      `mapstructure:"threads" json:"threads"`
	HttpxPath    string   `mapstructure:"httpx_path" json:"httpx_path"`
	WordlistPath string   `mapstructure:"wordlist_path" json:"wordlist_path"`
}

// Complete reports whether the scan should include active enumeration.
func (c *EasmScannerConfig) Complete() bool { return c.Mode == "complete" }

// Validate checks mode and wordlist requirements.
func (c *EasmScannerConfig) Validate() error {
	if c.Mode != "fast" && c.Mode != "complete" {
		return faults.New(faults.BadInput, "invalid mode %q (expected 'fast' or 'complete')", c.Mode)
	}
	if c.Complete() {
		if c.WordlistPath == "" {
			return faults.New(faults.BadInput, "wordlist is required when mode == 'complete'")
		}
		info, err := os.Stat(c.WordlistPath)
		if err != nil || info.IsDir() {
			return faults.New(faults.BadInput, "wordlist path does not exist or is not a file: %q", c.WordlistPath)
		}
	}
	return nil
}

// SLPEnrichmentConfig holds the SLP API key.
type SLPEnrichmentConfig struct {
	XAPIKey string `mapstructure:"x_api_key"`
}

// CVEConnectorConfig holds the optional NVD API key.
type CVEConnectorConfig struct {
	NVDAPIKey string `mapstructure:"nvd_api_key"`
}

// TelemetryConfig holds tracing configuration.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ExporterType string  `mapstructure:"exporter_type"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Load reads configuration from the given YAML file and applies environment
// overrides. The result is immutable for the life of the process.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "reading config file %q", path)
	}

	applyEnvOverrides(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "unmarshaling config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides maps the documented environment variables onto their
// config keys. TEMPORAL_HOST/TEMPORAL_PORT jointly override temporal.url.
func applyEnvOverrides(v *viper.Viper) {
	if val := os.Getenv("NEO4J_PASSWORD"); val != "" {
		v.Set("neo4j.password", val)
	}
	if val := os.Getenv("NEO4J_BOLT"); val != "" {
		v.Set("neo4j.bolt", val)
	}
	if val := os.Getenv("NEO4J_USER"); val != "" {
		v.Set("neo4j.user", val)
	}
	host, port := os.Getenv("TEMPORAL_HOST"), os.Getenv("TEMPORAL_PORT")
	if host != "" && port != "" {
		v.Set("temporal.url", fmt.Sprintf("%s:%s", host, port))
	}
	if val := os.Getenv("NVD_KEY"); val != "" && v.GetString("cve_connector.nvd_api_key") == "" {
		v.Set("cve_connector.nvd_api_key", val)
	}
}

func (c *Config) validate() error {
	var missing []string

	if c.Neo4j.Password == "" {
		missing = append(missing, "neo4j.password (or NEO4J_PASSWORD)")
	}
	if c.Neo4j.Bolt == "" {
		missing = append(missing, "neo4j.bolt (or NEO4J_BOLT)")
	}
	if c.Neo4j.User == "" {
		missing = append(missing, "neo4j.user (or NEO4J_USER)")
	}
	if c.Temporal.URL == "" {
		missing = append(missing, "temporal.url (or TEMPORAL_HOST/TEMPORAL_PORT)")
	}
	if c.ISIM.URL == "" {
		missing = append(missing, "isim.url")
	}

	if len(missing) > 0 {
		return faults.New(faults.BadInput, "missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")

	// Temporal
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.easm_task_queue", "easm")
	v.SetDefault("temporal.nmap_task_queue", "nmap")
	v.SetDefault("temporal.cve_connector_task_queue", "cve_connector")
	v.SetDefault("temporal.slp_enrichment_task_queue", "slp_enrichment")
	v.SetDefault("temporal.csa_task_queue", "csa")

	// Neo4j
	v.SetDefault("neo4j.user", "neo4j")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	// EASM scanner
	v.SetDefault("easm_scanner.mode", "fast")
	v.SetDefault("easm_scanner.threads", 100)
	v.SetDefault("easm_scanner.httpx_path", "httpx")

	// Nmap
	v.SetDefault("nmap_basic.org_unit_name", "Internal IT")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter_type", "stdout")
	v.SetDefault("telemetry.sample_rate", 1.0)
}
