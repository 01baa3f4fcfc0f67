package runner

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/resilmesh/casm/pkg/blob"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/telemetry"
)

// Runner wraps the external enumeration tools. The enumeration, merge and
// httpx wrappers store their output in the blob store and return the key;
// NmapScan and TracerouteScan return the raw XML, and TopologyScan returns
// the parsed hop paths.
type Runner struct {
	blobs *blob.Store
	log   *logger.Logger
}

// New creates a Runner.
func New(blobs *blob.Store, log *logger.Logger) *Runner {
	return &Runner{blobs: blobs, log: log.WithComponent("runner")}
}

// Blobs exposes the underlying blob store for activities that need to load
// tool output by key.
func (r *Runner) Blobs() *blob.Store {
	return r.blobs
}

// Subfinder passively enumerates subdomains of the given roots.
func (r *Runner) Subfinder(ctx context.Context, domains []string) (string, error) {
	command := append([]string{"subfinder", "-d"}, domains...)
	command = append(command, "-silent")
	return r.runEnumerator(ctx, "subfinder", command)
}

// Amass passively enumerates subdomains of the given roots.
func (r *Runner) Amass(ctx context.Context, domains []string) (string, error) {
	command := append([]string{"amass", "enum", "-d"}, domains...)
	command = append(command, "-passive")
	return r.runEnumerator(ctx, "amass", command)
}

func (r *Runner) runEnumerator(ctx context.Context, tool string, command []string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "runner."+tool)
	defer span.End()

	result, err := Exec(ctx, command, "")
	if err != nil {
		span.SetError(err)
		return "", faults.Wrap(faults.EnumerationToolError, err, "%s run failed, command=%v", tool, command)
	}
	if result.ExitCode != 0 {
		err := faults.New(faults.EnumerationToolError,
			"%s run failed with status code %d and error %q, command=%v",
			tool, result.ExitCode, result.Stderr, command)
		span.SetError(err)
		return "", err
	}

	span.SetOK()
	return r.blobs.PutText(ctx, tool, result.Stdout)
}

// UniqueSubdomains merges the newline-separated blobs under the given keys
// into a sorted unique set and stores it. An empty merge is a
// NoDomainsFound failure.
func (r *Runner) UniqueSubdomains(ctx context.Context, keys []string) (string, error) {
	unique := map[string]bool{}
	for _, key := range keys {
		data, err := r.blobs.GetText(ctx, key)
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(data, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				unique[line] = true
			}
		}
	}

	if len(unique) == 0 {
		return "", faults.New(faults.NoDomainsFound, "subfinder and amass did not find any domains")
	}

	domains := make([]string, 0, len(unique))
	for domain := range unique {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	return r.blobs.PutText(ctx, "unique_subdomains", strings.Join(domains, "\n"))
}

// DnsxBruteforce bruteforces subdomains of the domains stored under the
// given key using a wordlist.
func (r *Runner) DnsxBruteforce(ctx context.Context, domainsKey, wordlist, threads string) (string, error) {
	domains, err := r.blobs.GetText(ctx, domainsKey)
	if err != nil {
		return "", err
	}

	inputFile, cleanup, err := tempInput(domains)
	if err != nil {
		return "", err
	}
	defer cleanup()

	command := []string{"dnsx", "-d", inputFile, "-silent", "-w", wordlist, "-a", "-cname", "-aaaa", "t", threads}
	result, err := Exec(ctx, command, "")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "dnsx run failed, command=%v", command)
	}
	if result.ExitCode != 0 {
		return "", faults.New(faults.EnumerationToolError,
			"dnsx run failed with status code %d and error %q, command=%v",
			result.ExitCode, result.Stderr, command)
	}
	if result.Stdout == "" {
		return "", faults.New(faults.NoDomainsFound, "dnsx bruteforce returned no results, command=%v", command)
	}

	return r.blobs.PutText(ctx, "dnsx-bruteforce", uniqueLines(result.Stdout))
}

// Alterx generates permutations of the domains stored under the given key.
func (r *Runner) Alterx(ctx context.Context, domainsKey string) (string, error) {
	domains, err := r.blobs.GetText(ctx, domainsKey)
	if err != nil {
		return "", err
	}

	inputFile, cleanupIn, err := tempInput(domains)
	if err != nil {
		return "", err
	}
	defer cleanupIn()

	outputFile, err := os.CreateTemp("", "alterx-*.txt")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "creating alterx output file")
	}
	outputPath := outputFile.Name()
	outputFile.Close()
	defer os.Remove(outputPath)

	command := []string{"alterx", "-l", inputFile, "-silent", "-o", outputPath}
	result, err := Exec(ctx, command, "")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "alterx run failed, command=%v", command)
	}
	if result.ExitCode != 0 {
		return "", faults.New(faults.EnumerationToolError,
			"alterx run failed with status code %d, command=%v", result.ExitCode, command)
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "reading alterx output")
	}

	return r.blobs.PutText(ctx, "alterx", string(output))
}

// DnsxResolve resolves the candidate subdomains stored under the given key.
func (r *Runner) DnsxResolve(ctx context.Context, domainsKey string) (string, error) {
	domains, err := r.blobs.GetText(ctx, domainsKey)
	if err != nil {
		return "", err
	}

	inputFile, cleanup, err := tempInput(domains)
	if err != nil {
		return "", err
	}
	defer cleanup()

	command := []string{"dnsx", "-l", inputFile, "-silent", "-a", "-aaaa", "-cname"}
	result, err := Exec(ctx, command, "")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "dnsx run failed, command=%v", command)
	}
	if result.ExitCode != 0 {
		return "", faults.New(faults.EnumerationToolError,
			"dnsx run failed with status code %d and error %q, command=%v",
			result.ExitCode, result.Stderr, command)
	}
	if result.Stdout == "" {
		return "", faults.New(faults.NoDomainsFound, "dnsx resolver returned no results, command=%v", command)
	}

	return r.blobs.PutText(ctx, "dnsx-resolver", uniqueLines(result.Stdout))
}

// Httpx probes the domains stored under the given key and stores the JSONL
// output.
func (r *Runner) Httpx(ctx context.Context, domainsKey, httpxPath string) (string, error) {
	domains, err := r.blobs.GetText(ctx, domainsKey)
	if err != nil {
		return "", err
	}

	inputFile, cleanup, err := tempInput(domains)
	if err != nil {
		return "", err
	}
	defer cleanup()

	command := []string{httpxPath, "-l", inputFile, "-silent", "-td", "-j"}
	result, err := Exec(ctx, command, "")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "httpx run failed, command=%v", command)
	}
	if result.ExitCode != 0 {
		return "", faults.New(faults.EnumerationToolError,
			"httpx run failed with status code %d and error %q, command=%v",
			result.ExitCode, result.Stderr, command)
	}

	return r.blobs.PutText(ctx, "httpx", result.Stdout)
}

// NmapScan runs an nmap scan with XML output on stdout and returns the raw
// XML document.
func (r *Runner) NmapScan(ctx context.Context, targets []string, arguments string) (string, error) {
	command := []string{"nmap", "-oX", "-"}
	if arguments != "" {
		command = append(command, strings.Fields(arguments)...)
	}
	command = append(command, targets...)

	result, err := Exec(ctx, command, "")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "nmap run failed, command=%v", command)
	}
	if result.ExitCode != 0 {
		return "", faults.New(faults.EnumerationToolError,
			"nmap run failed with status code %d and error %q, command=%v",
			result.ExitCode, result.Stderr, command)
	}
	return result.Stdout, nil
}

// TracerouteScan runs an nmap ping+traceroute scan against one target and
// returns the raw XML document.
func (r *Runner) TracerouteScan(ctx context.Context, target string) (string, error) {
	command := []string{"nmap", "-oX", "-", "-sn", "-n", "--traceroute", target}
	result, err := Exec(ctx, command, "")
	if err != nil {
		return "", faults.Wrap(faults.EnumerationToolError, err, "nmap traceroute failed, command=%v", command)
	}
	if result.ExitCode != 0 {
		return "", faults.New(faults.EnumerationToolError,
			"nmap traceroute failed with status code %d and error %q, command=%v",
			result.ExitCode, result.Stderr, command)
	}
	return result.Stdout, nil
}

func tempInput(content string) (string, func(), error) {
	file, err := os.CreateTemp("", "scan-input-*.txt")
	if err != nil {
		return "", nil, faults.Wrap(faults.EnumerationToolError, err, "creating temp input file")
	}
	path := file.Name()
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		os.Remove(path)
		return "", nil, faults.Wrap(faults.EnumerationToolError, err, "writing temp input file")
	}
	file.Close()
	return path, func() { os.Remove(path) }, nil
}

func uniqueLines(data string) string {
	unique := map[string]bool{}
	for _, line := range strings.Split(data, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			unique[line] = true
		}
	}
	lines := make([]string, 0, len(unique))
	for line := range unique {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
