package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TypeCVEUpdate is the CVE update workflow type name.
const TypeCVEUpdate = "CVEUpdateWorkflow"

// CVEUpdateWorkflow runs one full CVE sweep over all stored software
// versions. The sweep activity is never retried at the workflow level: a
// second overlapping full sweep would double the load on the rate-limited
// catalog for no gain, and the per-version watermarks make the next
// scheduled run pick up whatever this one missed.
func CVEUpdateWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting CVE update workflow")

	sweepCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 90 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	workflowStart := workflow.Now(ctx).UTC().Truncate(time.Second).Format(time.RFC3339)

	var summary string
	if err := workflow.ExecuteActivity(sweepCtx, "RunCVESweep", workflowStart).
		Get(ctx, &summary); err != nil {
		return err
	}

	logger.Info("CVE update workflow finished", "summary", summary)
	return nil
}
