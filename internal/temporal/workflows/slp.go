package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/models"
)

// TypeSLPEnrichment is the SLP enrichment workflow type name.
const TypeSLPEnrichment = "SLPEnrichmentWorkflow"

// SLPEnrichmentInput carries the API key into the enrichment run.
type SLPEnrichmentInput struct {
	XAPIKey string `json:"x_api_key"`
}

// SLPEnrichmentWorkflow enriches one batch of stored IPs with external
// intelligence: fetch unprocessed assets, look them up in bulk, store the
// records.
func SLPEnrichmentWorkflow(ctx workflow.Context, input *SLPEnrichmentInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting SLP enrichment workflow")

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Minute,
		RetryPolicy:         publishRetry(),
	}
	ctx = workflow.WithActivityOptions(ctx, opts)

	var assets []models.IPAssetInfo
	if err := workflow.ExecuteActivity(ctx, "GetAssetInfo").Get(ctx, &assets); err != nil {
		return err
	}
	if len(assets) == 0 {
		logger.Info("no unprocessed assets, skipping enrichment")
		return nil
	}

	var records []models.SLPRecord
	if err := workflow.ExecuteActivity(ctx, "GetDataFromSLP", assets, input.XAPIKey).
		Get(ctx, &records); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(ctx, "StoreDataFromSLP", records).Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("SLP enrichment workflow finished", "records", len(records))
	return nil
}
