// The cve-worker hosts the scheduled CVE update workflow. It applies the
// graph schema on startup and ensures the two-hour sweep schedule exists.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	sdkworker "go.temporal.io/sdk/worker"

	"github.com/resilmesh/casm/internal/graph"
	"github.com/resilmesh/casm/internal/nvd"
	"github.com/resilmesh/casm/internal/temporal/activities"
	"github.com/resilmesh/casm/internal/temporal/worker"
	"github.com/resilmesh/casm/internal/temporal/workflows"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/telemetry"
)

const (
	scheduleID = "cve-update-scheduled-workflow"
	workflowID = "cve-update-workflow-instance"
	sweepEvery = 2 * time.Hour
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info", "json").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "json").WithComponent("cve-worker")

	telemetryProvider, err := telemetry.NewProvider("cve-worker", cfg.Telemetry)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryProvider.Shutdown(context.Background())

	ctx := context.Background()

	adapter, err := graph.New(cfg.Neo4j, log)
	if err != nil {
		log.Error("failed to connect to the graph store", "error", err)
		os.Exit(1)
	}
	defer adapter.Close(ctx)

	if err := adapter.InitSchema(ctx); err != nil {
		log.Error("failed to apply graph schema", "error", err)
		os.Exit(1)
	}

	nvdClient := nvd.NewClient(cfg.CVEConnector.NVDAPIKey, log)
	cveActivities := activities.NewCVEActivities(adapter, nvdClient, log)

	temporalClient, err := worker.Dial(cfg.Temporal, log)
	if err != nil {
		log.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	if err := worker.EnsureSchedule(ctx, temporalClient, scheduleID,
		workflows.TypeCVEUpdate, workflowID, cfg.Temporal.CVEConnectorTaskQueue,
		sweepEvery, nil, log); err != nil {
		log.Error("failed to ensure CVE update schedule", "error", err)
		os.Exit(1)
	}

	w := worker.New(temporalClient, cfg.Temporal.CVEConnectorTaskQueue, log, func(w sdkworker.Worker) {
		w.RegisterWorkflowWithOptions(workflows.CVEUpdateWorkflow,
			worker.WorkflowName(workflows.TypeCVEUpdate))
		w.RegisterActivity(cveActivities.RunCVESweep)
	})

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped gracefully")
}
