// The csa-worker hosts the criticality workflow and the daily graph
// maintenance workflow (hierarchy sync and edge cleanup).
package main

import (
	"context"
	"flag"
	"os"
	"time"

	sdkworker "go.temporal.io/sdk/worker"

	"github.com/resilmesh/casm/internal/graph"
	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/internal/temporal/activities"
	"github.com/resilmesh/casm/internal/temporal/worker"
	"github.com/resilmesh/casm/internal/temporal/workflows"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/telemetry"
)

const (
	maintenanceScheduleID = "graph-maintenance-schedule"
	maintenanceWorkflowID = "graph-maintenance-workflow-instance"
	maintenanceEvery      = 24 * time.Hour
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info", "json").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "json").WithComponent("csa-worker")

	telemetryProvider, err := telemetry.NewProvider("csa-worker", cfg.Telemetry)
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

	isimClient := isim.New(cfg.ISIM, log)
	criticalityActivities := activities.NewCriticalityActivities(isimClient, log)
	maintenanceActivities := activities.NewMaintenanceActivities(adapter, log)

	temporalClient, err := worker.Dial(cfg.Temporal, log)
	if err != nil {
		log.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	if err := worker.EnsureSchedule(ctx, temporalClient, maintenanceScheduleID,
		workflows.TypeMaintenance, maintenanceWorkflowID, cfg.Temporal.CSATaskQueue,
		maintenanceEvery, nil, log); err != nil {
		log.Error("failed to ensure maintenance schedule", "error", err)
		os.Exit(1)
	}

	w := worker.New(temporalClient, cfg.Temporal.CSATaskQueue, log, func(w sdkworker.Worker) {
		w.RegisterWorkflowWithOptions(workflows.CriticalityWorkflow,
			worker.WorkflowName(workflows.TypeCriticality))
		w.RegisterWorkflowWithOptions(workflows.GraphMaintenanceWorkflow,
			worker.WorkflowName(workflows.TypeMaintenance))

		w.RegisterActivity(criticalityActivities.ComputeMissionCriticalities)
		w.RegisterActivity(criticalityActivities.StoreMissionCriticalities)
		w.RegisterActivity(criticalityActivities.ComputeCentralities)
		w.RegisterActivity(criticalityActivities.ComputeFinalCriticalities)

		w.RegisterActivity(maintenanceActivities.SyncIPHierarchy)
		w.RegisterActivity(maintenanceActivities.CleanOldVulnerabilities)
		w.RegisterActivity(maintenanceActivities.CleanHostLayer)
		w.RegisterActivity(maintenanceActivities.CleanNetworkLayer)
		w.RegisterActivity(maintenanceActivities.CleanSecurityEvents)
	})

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped gracefully")
}
