package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/models"
)

func TestNmapBasicWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(NmapBasicWorkflow, workflow.RegisterOptions{Name: TypeNmapBasic})

	input := config.NmapBasicConfig{
		Targets:   []string{"192.168.1.0/24"},
		Arguments: "-sV",
		Tag:       []string{"internal"},
	}

	registerActivity(env, "ValidateNmapBasicInput", func(ctx context.Context, in config.NmapBasicConfig) (config.NmapBasicConfig, error) {
		return in, nil
	})
	registerActivity(env, "RunBasicNmapScan", func(ctx context.Context, targets []string, arguments string) (string, error) {
		assert.Equal(t, []string{"192.168.1.0/24"}, targets)
		assert.Equal(t, "-sV", arguments)
		return "nmap-xml-key", nil
	})
	parsed := models.NmapResults{
		Hosts: []models.Host{{IPAddress: "192.168.1.10", Tag: []string{"internal"}}},
	}
	registerActivity(env, "ParseNmapXML", func(ctx context.Context, key string, tag []string) (*models.NmapResults, error) {
		assert.Equal(t, "nmap-xml-key", key)
		assert.Equal(t, []string{"internal"}, tag)
		return &parsed, nil
	})
	published := false
	registerActivity(env, "PublishAssets", func(ctx context.Context, results *models.NmapResults) (string, error) {
		published = true
		assert.Len(t, results.Hosts, 1)
		return "stored", nil
	})

	env.ExecuteWorkflow(TypeNmapBasic, &input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.True(t, published)
}

func TestNmapTopologyWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(NmapTopologyWorkflow, workflow.RegisterOptions{Name: TypeNmapTopology})

	input := config.NmapTopologyConfig{Targets: []string{"10.0.0.0/24"}}

	registerActivity(env, "ValidateNmapTopologyInput", func(ctx context.Context, in config.NmapTopologyConfig) (config.NmapTopologyConfig, error) {
		return in, nil
	})
	result := models.TracerouteResult{
		Time: "2026-01-01T00:00:00Z",
		Data: []models.Connection{
			{DstIP: "10.0.0.5", Hops: []models.Hop{{PrevIP: "10.0.0.1", Hops: 1, NextIP: "10.0.0.5"}}},
			{DstIP: "10.0.0.6", Hops: []models.Hop{{PrevIP: "10.0.0.1", Hops: 1, NextIP: "10.0.0.6"}}},
			{DstIP: "10.0.0.7", Hops: []models.Hop{{PrevIP: "10.0.0.1", Hops: 1, NextIP: "10.0.0.7"}}},
		},
	}
	registerActivity(env, "RunTracerouteScan", func(ctx context.Context, targets []string) (*models.TracerouteResult, error) {
		return &result, nil
	})
	var publishedConnections int
	registerActivity(env, "PublishTraceroute", func(ctx context.Context, in *models.TracerouteResult) (string, error) {
		publishedConnections = len(in.Data)
		return "stored", nil
	})
	centralityTriggered := false
	registerActivity(env, "TriggerCentrality", func(ctx context.Context) (string, error) {
		centralityTriggered = true
		return "ok", nil
	})

	env.ExecuteWorkflow(TypeNmapTopology, &input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, 3, publishedConnections)
	assert.True(t, centralityTriggered)
}
