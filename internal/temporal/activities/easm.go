package activities

import (
	"context"

	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/internal/runner"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/ipnet"
	"github.com/resilmesh/casm/pkg/logger"
)

// EasmActivities runs the external enumeration tools and publishes probed
// services. Large intermediate outputs travel through the blob store;
// activities exchange keys.
type EasmActivities struct {
	runner       *runner.Runner
	isim         *isim.Client
	fingerprints *runner.FingerprintLoader
	log          *logger.Logger
}

// NewEasmActivities creates the EASM activity set.
func NewEasmActivities(run *runner.Runner, isimClient *isim.Client, fingerprints *runner.FingerprintLoader, log *logger.Logger) *EasmActivities {
	return &EasmActivities{
		runner:       run,
		isim:         isimClient,
		fingerprints: fingerprints,
		log:          log.WithComponent("easm-activities"),
	}
}

// ValidateEasmInput validates a scan request: known mode, syntactically
// valid domains, and a wordlist when the mode requires one.
func (a *EasmActivities) ValidateEasmInput(ctx context.Context, input config.EasmScannerConfig) (config.EasmScannerConfig, error) {
	if err := input.Validate(); err != nil {
		return input, appError(err)
	}
	for _, domain := range input.Domains {
		if !ipnet.ValidateDomain(domain) {
			return input, appError(faults.New(faults.BadInput, "invalid domain %q", domain))
		}
	}
	return input, nil
}

// RunSubfinder enumerates subdomains passively with subfinder.
func (a *EasmActivities) RunSubfinder(ctx context.Context, domains []string) (string, error) {
	key, err := a.runner.Subfinder(ctx, domains)
	return key, appError(err)
}

// RunAmass enumerates subdomains passively with amass.
func (a *EasmActivities) RunAmass(ctx context.Context, domains []string) (string, error) {
	key, err := a.runner.Amass(ctx, domains)
	return key, appError(err)
}

// GetUniqueSubdomains merges enumerator outputs into a unique set.
func (a *EasmActivities) GetUniqueSubdomains(ctx context.Context, keys []string) (string, error) {
	key, err := a.runner.UniqueSubdomains(ctx, keys)
	return key, appError(err)
}

// RunDnsxBruteforce bruteforces additional subdomains with a wordlist.
func (a *EasmActivities) RunDnsxBruteforce(ctx context.Context, domainsKey, wordlist, threads string) (string, error) {
	key, err := a.runner.DnsxBruteforce(ctx, domainsKey, wordlist, threads)
	return key, appError(err)
}

// RunAlterx generates candidate permutations of known subdomains.
func (a *EasmActivities) RunAlterx(ctx context.Context, domainsKey string) (string, error) {
	key, err := a.runner.Alterx(ctx, domainsKey)
	return key, appError(err)
}

// RunDnsxResolver resolves candidate subdomains.
func (a *EasmActivities) RunDnsxResolver(ctx context.Context, domainsKey string) (string, error) {
	key, err := a.runner.DnsxResolve(ctx, domainsKey)
	return key, appError(err)
}

// RunHttpx probes the discovered domains and stores the JSONL output.
func (a *EasmActivities) RunHttpx(ctx context.Context, domainsKey, httpxPath string) (string, error) {
	key, err := a.runner.Httpx(ctx, domainsKey, httpxPath)
	return key, appError(err)
}

// ParseAndPublish parses the httpx output blob and publishes the probed
// services in one POST to the EASM endpoint.
func (a *EasmActivities) ParseAndPublish(ctx context.Context, httpxKey string) (string, error) {
	blobs := a.runner.Blobs()
	jsonl, err := blobs.GetText(ctx, httpxKey)
	if err != nil {
		return "", appError(err)
	}

	fingerprints, err := a.fingerprints.Load(ctx)
	if err != nil {
		return "", appError(err)
	}

	results, err := runner.ParseHttpxOutput(jsonl, fingerprints)
	if err != nil {
		return "", appError(err)
	}

	a.log.Info("publishing EASM results", "count", len(results))
	response, err := a.isim.PostEASM(ctx, results)
	return response, appError(err)
}
