package activities

import (
	"context"

	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/internal/runner"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/ipnet"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/models"
)

// NmapActivities runs the basic and topology Nmap scans and publishes their
// results. Raw scan XML is passed between steps by blob reference.
type NmapActivities struct {
	runner *runner.Runner
	isim   *isim.Client
	log    *logger.Logger
}

// NewNmapActivities creates the Nmap activity set.
func NewNmapActivities(run *runner.Runner, isimClient *isim.Client, log *logger.Logger) *NmapActivities {
	return &NmapActivities{runner: run, isim: isimClient, log: log.WithComponent("nmap-activities")}
}

// ValidateNmapBasicInput validates the basic scan request.
func (a *NmapActivities) ValidateNmapBasicInput(ctx context.Context, input config.NmapBasicConfig) (config.NmapBasicConfig, error) {
	if len(input.Targets) == 0 {
		return input, appError(faults.New(faults.BadInput, "no targets given"))
	}
	for _, target := range input.Targets {
		if !ipnet.ValidateHostname(target) {
			return input, appError(faults.New(faults.BadInput, "invalid target %q", target))
		}
	}
	return input, nil
}

// ValidateNmapTopologyInput validates the traceroute scan request.
func (a *NmapActivities) ValidateNmapTopologyInput(ctx context.Context, input config.NmapTopologyConfig) (config.NmapTopologyConfig, error) {
	if len(input.Targets) == 0 {
		return input, appError(faults.New(faults.BadInput, "no targets given"))
	}
	for _, target := range input.Targets {
		if !ipnet.ValidateHostname(target) {
			return input, appError(faults.New(faults.BadInput, "invalid target %q", target))
		}
	}
	return input, nil
}

// RunBasicNmapScan runs the scan and stores the raw XML in the blob store.
func (a *NmapActivities) RunBasicNmapScan(ctx context.Context, targets []string, arguments string) (string, error) {
	xmlOutput, err := a.runner.NmapScan(ctx, targets, arguments)
	if err != nil {
		return "", appError(err)
	}
	key, err := a.runner.Blobs().PutText(ctx, "nmap", xmlOutput)
	return key, appError(err)
}

// ParseNmapXML parses the stored scan XML into the asset document.
func (a *NmapActivities) ParseNmapXML(ctx context.Context, xmlKey string, tag []string) (*models.NmapResults, error) {
	xmlOutput, err := a.runner.Blobs().GetText(ctx, xmlKey)
	if err != nil {
		return nil, appError(err)
	}
	results, err := runner.ParseNmapXML(xmlOutput, tag)
	if err != nil {
		return nil, appError(err)
	}
	a.log.Info("parsed nmap scan",
		"hosts", len(results.Hosts),
		"software_versions", len(results.SoftwareVersions))
	return results, nil
}

// PublishAssets posts the parsed asset document to the assets endpoint.
func (a *NmapActivities) PublishAssets(ctx context.Context, results *models.NmapResults) (string, error) {
	response, err := a.isim.PostAssets(ctx, results)
	return response, appError(err)
}

// RunTracerouteScan performs the traceroute scan over all targets.
func (a *NmapActivities) RunTracerouteScan(ctx context.Context, targets []string) (*models.TracerouteResult, error) {
	result, err := a.runner.TopologyScan(ctx, targets)
	return result, appError(err)
}

// PublishTraceroute posts the hop-path document to the topology endpoint.
func (a *NmapActivities) PublishTraceroute(ctx context.Context, result *models.TracerouteResult) (string, error) {
	response, err := a.isim.PostTraceroute(ctx, result)
	return response, appError(err)
}

// TriggerCentrality kicks off betweenness and degree computation after a
// topology update.
func (a *NmapActivities) TriggerCentrality(ctx context.Context) (string, error) {
	first, err := a.isim.PostBetweennessCentrality(ctx)
	if err != nil {
		return "", appError(err)
	}
	second, err := a.isim.PostDegreeCentrality(ctx)
	if err != nil {
		return "", appError(err)
	}
	return first + second, nil
}
