package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/library"
	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/testutil"
	"github.com/BaSui01/agentteams/testutil/fixtures"
	"github.com/BaSui01/agentteams/types"
)

func newAgentService(t *testing.T) *AgentService {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "technical_writer.yml", fixtures.WriterAgentYAML)
	testutil.WriteFile(t, dir, "project_coordinator.yml", fixtures.CoordinatorAgentYAML)
	testutil.WriteFile(t, dir, "web_researcher.yml", fixtures.ResearcherAgentYAML)

	lib, err := library.New(dir, zap.NewNop())
	require.NoError(t, err)
	return NewAgentService(lib, zap.NewNop())
}

func TestAgentService_Search(t *testing.T) {
	svc := newAgentService(t)
	ctx := context.Background()

	all, err := svc.Search(ctx, &api.AgentSearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 50, all.Limit)

	writers, err := svc.Search(ctx, &api.AgentSearchRequest{Capabilities: []string{"writing"}})
	require.NoError(t, err)
	require.Equal(t, 1, writers.Total)
	assert.Equal(t, "technical_writer", writers.Agents[0].Name)

	paged, err := svc.Search(ctx, &api.AgentSearchRequest{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, paged.Total)
	assert.Len(t, paged.Agents, 1)

	_, err = svc.Search(ctx, &api.AgentSearchRequest{Role: "janitor"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestAgentService_GetWithUsageStats(t *testing.T) {
	svc := newAgentService(t)
	ctx := context.Background()

	resp, err := svc.Get(ctx, "web_researcher")
	require.NoError(t, err)
	assert.Equal(t, "web_researcher", resp.Agent.Name)
	assert.NotNil(t, resp.ConfigData["agent"])
	assert.Equal(t, 0, resp.UsageStats.TotalExecutions)
	assert.Nil(t, resp.UsageStats.LastUsed)

	start := time.Now().UTC()
	ok := start.Add(2 * time.Second)
	failed := start.Add(4 * time.Second)
	svc.RecordExecution(&store.Execution{Status: store.StatusCompleted, StartedAt: &start, CompletedAt: &ok}, "Web_Researcher")
	svc.RecordExecution(&store.Execution{Status: store.StatusFailed, StartedAt: &start, CompletedAt: &failed}, "web_researcher")
	svc.RecordExecution(&store.Execution{Status: store.StatusCompleted, CompletedAt: &ok}, "")

	resp, err = svc.Get(ctx, "web_researcher")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.UsageStats.TotalExecutions)
	assert.InDelta(t, 0.5, resp.UsageStats.SuccessRate, 1e-9)
	assert.InDelta(t, 3.0, resp.UsageStats.AverageResponseTime, 1e-9)
	require.NotNil(t, resp.UsageStats.LastUsed)
	assert.True(t, resp.UsageStats.LastUsed.Equal(failed))

	_, err = svc.Get(ctx, "ghost")
	assert.True(t, types.IsErrorCode(err, types.ErrAgentNotFound))
}

func TestAgentService_StatsAndCompatibility(t *testing.T) {
	svc := newAgentService(t)
	ctx := context.Background()

	stats := svc.Stats(ctx)
	assert.Equal(t, 3, stats.TotalAgents)

	report, err := svc.Compatibility(ctx, &api.AgentCompatibilityRequest{AgentIDs: []string{"web_researcher", "technical_writer"}})
	require.NoError(t, err)
	assert.Len(t, report.Matrix, 2)

	_, err = svc.Compatibility(ctx, &api.AgentCompatibilityRequest{AgentIDs: []string{"web_researcher"}})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestAgentService_TeamSuggestions(t *testing.T) {
	svc := newAgentService(t)
	ctx := context.Background()

	res, err := svc.TeamSuggestions(ctx, &api.TeamSuggestionRequest{
		TaskDescription:      "research the market and write a report",
		RequiredCapabilities: []string{"research", "writing"},
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Suggestions), 3)

	_, err = svc.TeamSuggestions(ctx, &api.TeamSuggestionRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	_, err = svc.TeamSuggestions(ctx, &api.TeamSuggestionRequest{TaskDescription: "x", PreferredTeamSize: 1})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	_, err = svc.TeamSuggestions(ctx, &api.TeamSuggestionRequest{TaskDescription: "x", TeamType: "mesh"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestTrimSuggestion(t *testing.T) {
	sg := library.TeamSuggestion{
		Coordinator: &library.AgentMetadata{Name: "c"},
		Workers: []library.AgentMetadata{
			{Name: "a", Capabilities: []string{"research"}},
			{Name: "b", Capabilities: []string{"writing"}},
			{Name: "c2", Capabilities: []string{"analysis"}},
		},
		CoveredCapabilities: []string{"research", "writing", "analysis"},
	}
	trimSuggestion(&sg, 3, []string{"research", "writing", "analysis"})
	assert.Len(t, sg.Workers, 2)
	assert.Equal(t, []string{"research", "writing"}, sg.CoveredCapabilities)

	trimSuggestion(&sg, 10, nil)
	assert.Len(t, sg.Workers, 2)
}
