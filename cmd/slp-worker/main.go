// The slp-worker hosts the hourly SLP enrichment workflow.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	sdkworker "go.temporal.io/sdk/worker"

	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/internal/temporal/activities"
	"github.com/resilmesh/casm/internal/temporal/worker"
	"github.com/resilmesh/casm/internal/temporal/workflows"
	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/telemetry"
)

const (
	scheduleID  = "slp-enrichment-schedule-id"
	workflowID  = "slp-enrichment-workflow-id"
	enrichEvery = 60 * time.Minute
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info", "json").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "json").WithComponent("slp-worker")

	telemetryProvider, err := telemetry.NewProvider("slp-worker", cfg.Telemetry)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryProvider.Shutdown(context.Background())

	isimClient := isim.New(cfg.ISIM, log)
	slpActivities := activities.NewSLPActivities(isimClient, log)

	temporalClient, err := worker.Dial(cfg.Temporal, log)
	if err != nil {
		log.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	input := &workflows.SLPEnrichmentInput{XAPIKey: cfg.SLPEnrichment.XAPIKey}
	if err := worker.EnsureSchedule(context.Background(), temporalClient, scheduleID,
		workflows.TypeSLPEnrichment, workflowID, cfg.Temporal.SLPEnrichmentTaskQueue,
		enrichEvery, []any{input}, log); err != nil {
		log.Error("failed to ensure SLP enrichment schedule", "error", err)
		os.Exit(1)
	}

	w := worker.New(temporalClient, cfg.Temporal.SLPEnrichmentTaskQueue, log, func(w sdkworker.Worker) {
		w.RegisterWorkflowWithOptions(workflows.SLPEnrichmentWorkflow,
			worker.WorkflowName(workflows.TypeSLPEnrichment))
		w.RegisterActivity(slpActivities.GetAssetInfo)
		w.RegisterActivity(slpActivities.GetDataFromSLP)
		w.RegisterActivity(slpActivities.StoreDataFromSLP)
	})

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped gracefully")
}
