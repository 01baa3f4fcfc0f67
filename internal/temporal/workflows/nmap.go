package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/models"
)

// Workflow type names as registered on the nmap worker.
const (
	TypeNmapBasic    = "NmapBasicWorkflow"
	TypeNmapTopology = "NmapTopologyWorkflow"
)

// scanRetry is the retry policy for scan/parse/publish steps of the Nmap
// workflows.
func scanRetry() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    2 * time.Second,
		MaximumAttempts:    5,
		NonRetryableErrorTypes: []string{
			faults.BadInput.String(),
			faults.EnumerationToolError.String(),
		},
	}
}

// NmapBasicWorkflow runs one scan, parses the XML, and publishes the asset
// document.
func NmapBasicWorkflow(ctx workflow.Context, input *config.NmapBasicConfig) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting nmap basic workflow", "targets", input.Targets)

	var nmapConfig config.NmapBasicConfig
	if err := workflow.ExecuteActivity(validationOptions(ctx), "ValidateNmapBasicInput", *input).
		Get(ctx, &nmapConfig); err != nil {
		return err
	}

	scanCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         scanRetry(),
	})
	var xmlKey string
	if err := workflow.ExecuteActivity(scanCtx, "RunBasicNmapScan", nmapConfig.Targets, nmapConfig.Arguments).
		Get(ctx, &xmlKey); err != nil {
		return err
	}

	parseCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         scanRetry(),
	})
	var results models.NmapResults
	if err := workflow.ExecuteActivity(parseCtx, "ParseNmapXML", xmlKey, nmapConfig.Tag).
		Get(ctx, &results); err != nil {
		return err
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         publishRetry(),
	})
	if err := workflow.ExecuteActivity(publishCtx, "PublishAssets", &results).
		Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("nmap basic workflow finished",
		"hosts", len(results.Hosts), "software_versions", len(results.SoftwareVersions))
	return nil
}

// NmapTopologyWorkflow runs the traceroute scan, publishes the hop paths,
// and triggers centrality recomputation.
func NmapTopologyWorkflow(ctx workflow.Context, input *config.NmapTopologyConfig) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting nmap topology workflow", "targets", input.Targets)

	var nmapConfig config.NmapTopologyConfig
	if err := workflow.ExecuteActivity(validationOptions(ctx), "ValidateNmapTopologyInput", *input).
		Get(ctx, &nmapConfig); err != nil {
		return err
	}

	scanCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Minute,
		RetryPolicy:         scanRetry(),
	})
	var result models.TracerouteResult
	if err := workflow.ExecuteActivity(scanCtx, "RunTracerouteScan", nmapConfig.Targets).
		Get(ctx, &result); err != nil {
		return err
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Minute,
		RetryPolicy:         publishRetry(),
	})
	if err := workflow.ExecuteActivity(publishCtx, "PublishTraceroute", &result).
		Get(ctx, nil); err != nil {
		return err
	}

	centralityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Minute,
		RetryPolicy:         publishRetry(),
	})
	if err := workflow.ExecuteActivity(centralityCtx, "TriggerCentrality").
		Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("nmap topology workflow finished", "connections", len(result.Data))
	return nil
}
