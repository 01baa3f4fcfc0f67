// Package workflows defines the Temporal workflows orchestrating asset
// discovery, CVE enrichment, SLP enrichment, criticality computation, and
// graph maintenance.
package workflows

import (
	"strconv"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
)

// Workflow type names as registered on the workers.
const (
	TypeParentEasm         = "ParentEasmWorkflow"
	TypePassiveEnumeration = "PassiveEnumerationWorkflow"
	TypeActiveEnumeration  = "ActiveEnumerationWorkflow"
)

// enumerationRetry is the retry policy shared by all enumeration-tool
// activities: one retry with short backoff, never retrying tool failures or
// bad input.
func enumerationRetry() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    2 * time.Second,
		MaximumAttempts:    2,
		NonRetryableErrorTypes: []string{
			faults.EnumerationToolError.String(),
			faults.NoDomainsFound.String(),
			faults.BadInput.String(),
		},
	}
}

// publishRetry is the retry policy for probe/parse/publish activities.
func publishRetry() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    2 * time.Second,
		MaximumAttempts:    5,
		NonRetryableErrorTypes: []string{
			faults.BadInput.String(),
		},
	}
}

// validationOptions is the single-attempt option block used for input
// validation activities.
func validationOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
}

// ParentEasmWorkflow orchestrates the full EASM scan: passive enumeration,
// optional active enumeration, httpx probing, and one publish to the EASM
// endpoint. Its result is the response body of the publish call.
func ParentEasmWorkflow(ctx workflow.Context, input *config.EasmScannerConfig) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting EASM workflow", "domains", input.Domains, "mode", input.Mode)

	var easmConfig config.EasmScannerConfig
	if err := workflow.ExecuteActivity(validationOptions(ctx), "ValidateEasmInput", *input).
		Get(ctx, &easmConfig); err != nil {
		return "", err
	}

	childOpts := workflow.ChildWorkflowOptions{
		WorkflowID: "passive-" + workflow.GetInfo(ctx).WorkflowExecution.ID,
	}
	var domainsKey string
	if err := workflow.ExecuteChildWorkflow(
		workflow.WithChildOptions(ctx, childOpts),
		TypePassiveEnumeration, easmConfig.Domains,
	).Get(ctx, &domainsKey); err != nil {
		return "", err
	}

	if easmConfig.Complete() {
		childOpts := workflow.ChildWorkflowOptions{
			WorkflowID: "active-" + workflow.GetInfo(ctx).WorkflowExecution.ID,
		}
		if err := workflow.ExecuteChildWorkflow(
			workflow.WithChildOptions(ctx, childOpts),
			TypeActiveEnumeration, domainsKey, easmConfig.WordlistPath, easmConfig.Threads,
		).Get(ctx, &domainsKey); err != nil {
			return "", err
		}
	}

	httpxCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Minute,
		RetryPolicy:         enumerationRetry(),
	})
	var httpxKey string
	if err := workflow.ExecuteActivity(httpxCtx, "RunHttpx", domainsKey, easmConfig.HttpxPath).
		Get(ctx, &httpxKey); err != nil {
		return "", err
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         publishRetry(),
	})
	var response string
	if err := workflow.ExecuteActivity(publishCtx, "ParseAndPublish", httpxKey).
		Get(ctx, &response); err != nil {
		return "", err
	}

	logger.Info("EASM workflow finished")
	return response, nil
}

// PassiveEnumerationWorkflow runs subfinder and amass concurrently over the
// same seed domains and merges their outputs into a unique set. An empty
// merge fails the workflow.
func PassiveEnumerationWorkflow(ctx workflow.Context, domains []string) (string, error) {
	enumCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	subfinderFuture := workflow.ExecuteActivity(enumCtx, "RunSubfinder", domains)
	amassFuture := workflow.ExecuteActivity(enumCtx, "RunAmass", domains)

	var subfinderKey, amassKey string
	if err := subfinderFuture.Get(ctx, &subfinderKey); err != nil {
		return "", err
	}
	if err := amassFuture.Get(ctx, &amassKey); err != nil {
		return "", err
	}

	mergeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         enumerationRetry(),
	})
	var mergedKey string
	if err := workflow.ExecuteActivity(mergeCtx, "GetUniqueSubdomains", []string{subfinderKey, amassKey}).
		Get(ctx, &mergedKey); err != nil {
		return "", err
	}
	return mergedKey, nil
}

// ActiveEnumerationWorkflow chains dnsx bruteforce, alterx permutations,
// and dnsx resolution into a set of resolvable subdomains.
func ActiveEnumerationWorkflow(ctx workflow.Context, domainsKey, wordlist string, threads int) (string, error) {
	bruteCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         enumerationRetry(),
	})
	var bruteKey string
	if err := workflow.ExecuteActivity(bruteCtx, "RunDnsxBruteforce", domainsKey, wordlist, strconv.Itoa(threads)).
		Get(ctx, &bruteKey); err != nil {
		return "", err
	}

	alterxCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         enumerationRetry(),
	})
	var alterxKey string
	if err := workflow.ExecuteActivity(alterxCtx, "RunAlterx", bruteKey).
		Get(ctx, &alterxKey); err != nil {
		return "", err
	}

	resolveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         enumerationRetry(),
	})
	var resolvedKey string
	if err := workflow.ExecuteActivity(resolveCtx, "RunDnsxResolver", alterxKey).
		Get(ctx, &resolvedKey); err != nil {
		return "", err
	}
	return resolvedKey, nil
}
