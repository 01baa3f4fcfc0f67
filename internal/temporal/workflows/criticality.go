package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/models"
)

// TypeCriticality is the criticality workflow type name.
const TypeCriticality = "CriticalityWorkflow"

// CriticalityWorkflow computes host criticality end-to-end: propagate
// mission importance, store it, recompute centralities, and fuse the two
// into the final per-node score.
func CriticalityWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting criticality workflow")

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 5},
	})

	var hosts []models.HostCriticality
	if err := workflow.ExecuteActivity(ctx, "ComputeMissionCriticalities").
		Get(ctx, &hosts); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(ctx, "StoreMissionCriticalities", hosts).
		Get(ctx, nil); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(ctx, "ComputeCentralities").Get(ctx, nil); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(ctx, "ComputeFinalCriticalities").Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("criticality workflow finished", "hosts", len(hosts))
	return nil
}
