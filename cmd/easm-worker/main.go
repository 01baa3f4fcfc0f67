// The easm-worker hosts the EASM scanning workflows: parent orchestration,
// passive and active enumeration, httpx probing, and publishing.
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

	log := logger.New(cfg.LogLevel, "json").WithComponent("easm-worker")

	telemetryProvider, err := telemetry.NewProvider("easm-worker", cfg.Telemetry)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryProvider.Shutdown(context.Background())

	blobs := blob.New(cfg.Redis)
	defer blobs.Close()

	toolRunner := runner.New(blobs, log)
	isimClient := isim.New(cfg.ISIM, log)
	fingerprints := runner.NewFingerprintLoader("")
	easmActivities := activities.NewEasmActivities(toolRunner, isimClient, fingerprints, log)

	temporalClient, err := worker.Dial(cfg.Temporal, log)
	if err != nil {
		log.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.EasmTaskQueue, log, func(w sdkworker.Worker) {
		w.RegisterWorkflowWithOptions(workflows.ParentEasmWorkflow,
			worker.WorkflowName(workflows.TypeParentEasm))
		w.RegisterWorkflowWithOptions(workflows.PassiveEnumerationWorkflow,
			worker.WorkflowName(workflows.TypePassiveEnumeration))
		w.RegisterWorkflowWithOptions(workflows.ActiveEnumerationWorkflow,
			worker.WorkflowName(workflows.TypeActiveEnumeration))

		w.RegisterActivity(easmActivities.ValidateEasmInput)
		w.RegisterActivity(easmActivities.RunSubfinder)
		w.RegisterActivity(easmActivities.RunAmass)
		w.RegisterActivity(easmActivities.GetUniqueSubdomains)
		w.RegisterActivity(easmActivities.RunDnsxBruteforce)
		w.RegisterActivity(easmActivities.RunAlterx)
		w.RegisterActivity(easmActivities.RunDnsxResolver)
		w.RegisterActivity(easmActivities.RunHttpx)
		w.RegisterActivity(easmActivities.ParseAndPublish)
	})

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped gracefully")
}
