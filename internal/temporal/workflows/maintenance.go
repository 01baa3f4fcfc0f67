package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/faults"
)

// TypeMaintenance is the graph maintenance workflow type name.
const TypeMaintenance = "GraphMaintenanceWorkflow"

// GraphMaintenanceWorkflow rebuilds the IP/subnet hierarchy and reaps
// lifecycle edges that have been closed longer than the retention window.
// Cleanup steps are independent; a failing one is logged and does not stop
// the rest.
func GraphMaintenanceWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting graph maintenance workflow")

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				faults.BadInput.String(),
				faults.StoreConstraint.String(),
			},
		},
	})

	if err := workflow.ExecuteActivity(ctx, "SyncIPHierarchy").Get(ctx, nil); err != nil {
		return err
	}

	for _, activityName := range []string{
		"CleanOldVulnerabilities",
		"CleanHostLayer",
		"CleanNetworkLayer",
		"CleanSecurityEvents",
	} {
		if err := workflow.ExecuteActivity(ctx, activityName).Get(ctx, nil); err != nil {
			logger.Error("cleanup step failed", "activity", activityName, "error", err)
		}
	}

	logger.Info("graph maintenance workflow finished")
	return nil
}
