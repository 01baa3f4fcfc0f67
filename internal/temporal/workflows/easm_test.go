package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
)

func registerActivity(env *testsuite.TestWorkflowEnvironment, name string, fn any) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerEasmWorkflows(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterWorkflowWithOptions(ParentEasmWorkflow, workflow.RegisterOptions{Name: TypeParentEasm})
	env.RegisterWorkflowWithOptions(PassiveEnumerationWorkflow, workflow.RegisterOptions{Name: TypePassiveEnumeration})
	env.RegisterWorkflowWithOptions(ActiveEnumerationWorkflow, workflow.RegisterOptions{Name: TypeActiveEnumeration})
}

func TestPassiveEnumerationWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	registerEasmWorkflows(env)

	var subfinderDomains, amassDomains []string
	registerActivity(env, "RunSubfinder", func(ctx context.Context, domains []string) (string, error) {
		subfinderDomains = domains
		return "subfinder-key", nil
	})
	registerActivity(env, "RunAmass", func(ctx context.Context, domains []string) (string, error) {
		amassDomains = domains
		return "amass-key", nil
	})
	registerActivity(env, "GetUniqueSubdomains", func(ctx context.Context, keys []string) (string, error) {
		assert.ElementsMatch(t, []string{"subfinder-key", "amass-key"}, keys)
		return "merged-key", nil
	})

	env.ExecuteWorkflow(TypePassiveEnumeration, []string{"example.com"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var mergedKey string
	require.NoError(t, env.GetWorkflowResult(&mergedKey))
	assert.Equal(t, "merged-key", mergedKey)
	assert.Equal(t, []string{"example.com"}, subfinderDomains)
	assert.Equal(t, []string{"example.com"}, amassDomains)
}

func TestPassiveEnumerationEmptyMergeFails(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	registerEasmWorkflows(env)

	registerActivity(env, "RunSubfinder", func(ctx context.Context, domains []string) (string, error) {
		return "subfinder-key", nil
	})
	registerActivity(env, "RunAmass", func(ctx context.Context, domains []string) (string, error) {
		return "amass-key", nil
	})
	merges := 0
	registerActivity(env, "GetUniqueSubdomains", func(ctx context.Context, keys []string) (string, error) {
		merges++
		return "", temporal.NewNonRetryableApplicationError(
			"subfinder and amass did not find any domains",
			faults.NoDomainsFound.String(), nil)
	})

	env.ExecuteWorkflow(TypePassiveEnumeration, []string{"example.com"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	// Non-retryable failure never triggers the second attempt.
	assert.Equal(t, 1, merges)
}

func TestParentEasmWorkflowFastMode(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	registerEasmWorkflows(env)

	input := config.EasmScannerConfig{
		Domains:   []string{"example.com"},
		Mode:      "fast",
		Threads:   100,
		HttpxPath: "httpx",
	}

	registerActivity(env, "ValidateEasmInput", func(ctx context.Context, in config.EasmScannerConfig) (config.EasmScannerConfig, error) {
		return in, nil
	})
	registerActivity(env, "RunSubfinder", func(ctx context.Context, domains []string) (string, error) {
		return "subfinder-key", nil
	})
	registerActivity(env, "RunAmass", func(ctx context.Context, domains []string) (string, error) {
		return "amass-key", nil
	})
	registerActivity(env, "GetUniqueSubdomains", func(ctx context.Context, keys []string) (string, error) {
		return "merged-key", nil
	})
	bruteforced := false
	registerActivity(env, "RunDnsxBruteforce", func(ctx context.Context, key, wordlist, threads string) (string, error) {
		bruteforced = true
		return "", errors.New("must not run in fast mode")
	})
	registerActivity(env, "RunAlterx", func(ctx context.Context, key string) (string, error) {
		return "", errors.New("must not run in fast mode")
	})
	registerActivity(env, "RunDnsxResolver", func(ctx context.Context, key string) (string, error) {
		return "", errors.New("must not run in fast mode")
	})
	registerActivity(env, "RunHttpx", func(ctx context.Context, key, path string) (string, error) {
		assert.Equal(t, "merged-key", key)
		assert.Equal(t, "httpx", path)
		return "httpx-key", nil
	})
	registerActivity(env, "ParseAndPublish", func(ctx context.Context, key string) (string, error) {
		assert.Equal(t, "httpx-key", key)
		return "published", nil
	})

	env.ExecuteWorkflow(TypeParentEasm, &input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var response string
	require.NoError(t, env.GetWorkflowResult(&response))
	assert.Equal(t, "published", response)
	assert.False(t, bruteforced)
}

func TestParentEasmWorkflowCompleteMode(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	registerEasmWorkflows(env)

	input := config.EasmScannerConfig{
		Domains:      []string{"example.com"},
		Mode:         "complete",
		Threads:      50,
		HttpxPath:    "httpx",
		WordlistPath: "/tmp/words.txt",
	}

	registerActivity(env, "ValidateEasmInput", func(ctx context.Context, in config.EasmScannerConfig) (config.EasmScannerConfig, error) {
		return in, nil
	})
	registerActivity(env, "RunSubfinder", func(ctx context.Context, domains []string) (string, error) {
		return "subfinder-key", nil
	})
	registerActivity(env, "RunAmass", func(ctx context.Context, domains []string) (string, error) {
		return "amass-key", nil
	})
	registerActivity(env, "GetUniqueSubdomains", func(ctx context.Context, keys []string) (string, error) {
		return "merged-key", nil
	})
	registerActivity(env, "RunDnsxBruteforce", func(ctx context.Context, key, wordlist, threads string) (string, error) {
		assert.Equal(t, "merged-key", key)
		assert.Equal(t, "/tmp/words.txt", wordlist)
		assert.Equal(t, "50", threads)
		return "brute-key", nil
	})
	registerActivity(env, "RunAlterx", func(ctx context.Context, key string) (string, error) {
		assert.Equal(t, "brute-key", key)
		return "alterx-key", nil
	})
	registerActivity(env, "RunDnsxResolver", func(ctx context.Context, key string) (string, error) {
		assert.Equal(t, "alterx-key", key)
		return "resolved-key", nil
	})
	registerActivity(env, "RunHttpx", func(ctx context.Context, key, path string) (string, error) {
		assert.Equal(t, "resolved-key", key)
		return "httpx-key", nil
	})
	registerActivity(env, "ParseAndPublish", func(ctx context.Context, key string) (string, error) {
		return "published", nil
	})

	env.ExecuteWorkflow(TypeParentEasm, &input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}
