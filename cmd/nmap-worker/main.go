// The nmap-worker hosts the basic scan and topology traceroute workflows.
package main

import (
	"context"
	"flag"
	"os"

	sdkworker "go.temporal.io/sdk/worker"

	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/internal/runner"
	"github.com/resilmesh/casm/internal/temporal/activities"
	"github.com/resilmesh/casm/internal/temporal/worker"
	"github.com/resilmesh/casm/internal/temporal/workflows"
	"github.com/resilmesh/casm/pkg/blob"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info", "json").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "json").WithComponent("nmap-worker")

	telemetryProvider, err := telemetry.NewProvider("nmap-worker", cfg.Telemetry)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryProvider.Shutdown(context.Background())

	blobs := blob.New(cfg.Redis)
	defer blobs.Close()

	toolRunner := runner.New(blobs, log)
	isimClient := isim.New(cfg.ISIM, log)
	nmapActivities := activities.NewNmapActivities(toolRunner, isimClient, log)

	temporalClient, err := worker.Dial(cfg.Temporal, log)
	if err != nil {
		log.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.NmapTaskQueue, log, func(w sdkworker.Worker) {
		w.RegisterWorkflowWithOptions(workflows.NmapBasicWorkflow,
			worker.WorkflowName(workflows.TypeNmapBasic))
		w.RegisterWorkflowWithOptions(workflows.NmapTopologyWorkflow,
			worker.WorkflowName(workflows.TypeNmapTopology))

		w.RegisterActivity(nmapActivities.ValidateNmapBasicInput)
		w.RegisterActivity(nmapActivities.ValidateNmapTopologyInput)
		w.RegisterActivity(nmapActivities.RunBasicNmapScan)
		w.RegisterActivity(nmapActivities.ParseNmapXML)
		w.RegisterActivity(nmapActivities.PublishAssets)
		w.RegisterActivity(nmapActivities.RunTracerouteScan)
		w.RegisterActivity(nmapActivities.PublishTraceroute)
		w.RegisterActivity(nmapActivities.TriggerCentrality)
	})

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped gracefully")
}
