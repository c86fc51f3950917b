package hierarchical

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/routing"
	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/testutil"
	"github.com/BaSui01/agentteams/testutil/fixtures"
	"github.com/BaSui01/agentteams/testutil/mocks"
	"github.com/BaSui01/agentteams/types"
)

func parseFixture(t *testing.T) *teamconfig.HierarchicalConfig {
	t.Helper()
	cfg, _, err := teamconfig.Parse([]byte(fixtures.ResearchTeamYAML), "yaml")
	require.NoError(t, err)
	return cfg
}

func mockFactory(p llm.Provider) ProviderFactory {
	return func(teamconfig.LLMConfig) (llm.Provider, error) { return p, nil }
}

func buildTeam(t *testing.T, p llm.Provider, opts BuildOptions) *Team {
	t.Helper()
	if opts.ProviderFactory == nil {
		opts.ProviderFactory = mockFactory(p)
	}
	opts.Logger = zap.NewNop()
	team, err := Build(context.Background(), "research_team", parseFixture(t), opts)
	require.NoError(t, err)
	return team
}

// --- Worker ---

func TestWorker_Run(t *testing.T) {
	p := mocks.NewMockProvider().WithResponse("done")
	w := NewWorker(Worker{Name: "w1", Model: "m", Tools: []string{"t"}}, p)

	assert.Equal(t, "general", w.Specialization)
	assert.Equal(t, 10, w.MaxWorkload)
	assert.Equal(t, 1, w.Priority)

	res := w.Run(context.Background(), "task", map[string]any{"trace": "x"})
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "done", res.Response)
	assert.Equal(t, "w1", res.Worker)
	assert.Equal(t, 30, res.Usage.TotalTokens)
	assert.Equal(t, "x", res.Metadata["trace"])
	assert.Equal(t, 1, res.Metadata["tools_available"])
	assert.NoError(t, res.Err())

	req := p.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "specialized in general")
	assert.Equal(t, "task", req.Messages[1].Content)
}

func TestWorker_RunFailure(t *testing.T) {
	boom := errors.New("boom")
	w := NewWorker(Worker{Name: "w1", SystemPrompt: "custom"}, mocks.NewMockProvider().WithError(boom))

	res := w.Run(context.Background(), "task", nil)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "boom", res.Error)
	assert.ErrorIs(t, res.Err(), boom)
	assert.True(t, strings.HasPrefix(res.Response, "Worker error:"))

	noProvider := NewWorker(Worker{Name: "w2"}, nil)
	res = noProvider.Run(context.Background(), "task", nil)
	assert.Equal(t, StatusFailed, res.Status)
}

// --- Supervisor ---

func TestSupervisor_DelegatesAndTracksPerformance(t *testing.T) {
	p := mocks.NewMockProvider().WithResponse("answer")
	sup := NewSupervisor("sup", "research", "", nil, routing.StrategyCapability, zap.NewNop())

	require.NoError(t, sup.AddWorker(NewWorker(Worker{Name: "searcher", Capabilities: []string{"search"}}, p)))
	require.NoError(t, sup.AddWorker(NewWorker(Worker{Name: "writer", Capabilities: []string{"writing"}}, p)))
	assert.Error(t, sup.AddWorker(NewWorker(Worker{Name: "writer"}, p)))

	res := sup.Run(context.Background(), "search for solar data", nil)
	require.NoError(t, res.Err())
	require.NotNil(t, res.Delegation)
	assert.Equal(t, "searcher", res.Delegation.Target)
	assert.Equal(t, "capability", res.Delegation.Strategy)
	assert.Equal(t, "answer", res.Response)
	assert.Equal(t, 2, res.Metadata["total_workers"])

	a, ok := sup.Router().Agent("searcher")
	require.True(t, ok)
	assert.Equal(t, 0, a.CurrentWorkload)
	// 亚毫秒级调用按 1s 记录
	assert.Equal(t, 1.0, a.AverageResponseTime)

	assert.True(t, sup.RemoveWorker("writer"))
	assert.False(t, sup.RemoveWorker("writer"))
	assert.Len(t, sup.Workers(), 1)
	_, ok = sup.Router().Agent("writer")
	assert.False(t, ok)
}

func TestSupervisor_NoWorkers(t *testing.T) {
	sup := NewSupervisor("sup", "empty", "", nil, "", nil)
	res := sup.Run(context.Background(), "task", nil)
	assert.Error(t, res.Err())
	assert.Equal(t, "no workers available", res.Error)
	assert.Equal(t, routing.StrategyCapability, sup.Strategy())
}

func TestSupervisor_WorkerFailureLowersSuccessRate(t *testing.T) {
	sup := NewSupervisor("sup", "t", "", nil, routing.StrategyWorkload, nil)
	require.NoError(t, sup.AddWorker(NewWorker(Worker{Name: "w"}, mocks.NewMockProvider().WithError(errors.New("down")))))

	res := sup.Run(context.Background(), "task", nil)
	assert.Error(t, res.Err())
	require.NotNil(t, res.WorkerResult)
	assert.Equal(t, StatusFailed, res.WorkerResult.Status)

	a, _ := sup.Router().Agent("w")
	assert.InDelta(t, 0.9, a.SuccessRate, 1e-9)
}

// --- Coordinator ---

func TestCoordinator_NoTeams(t *testing.T) {
	c := NewCoordinator("c", "m", nil, "", nil)
	res := c.Run(context.Background(), "task", nil)
	assert.Error(t, res.Err())
	assert.Equal(t, routing.StrategyHybrid, c.Strategy())
}

func TestCoordinator_TeamCapabilities(t *testing.T) {
	p := mocks.NewMockProvider()
	sup := NewSupervisor("sup", "research", "", nil, "", nil)
	require.NoError(t, sup.AddWorker(NewWorker(Worker{Name: "a", Capabilities: []string{"x", "y"}, Priority: 3, MaxWorkload: 4}, p)))
	require.NoError(t, sup.AddWorker(NewWorker(Worker{Name: "b", Capabilities: []string{"y", "z"}, Keywords: []string{"k"}}, p)))

	c := NewCoordinator("c", "m", nil, "", nil)
	require.NoError(t, c.AddTeam(sup))
	assert.Error(t, c.AddTeam(sup))

	a, ok := c.Router().Agent("research")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y", "z"}, a.Capabilities)
	assert.Equal(t, []string{"k"}, a.SpecializationKeywords)
	assert.Equal(t, 3, a.Priority)
	assert.Equal(t, 14, a.MaxWorkload)

	assert.True(t, c.RemoveTeam("research"))
	assert.False(t, c.RemoveTeam("research"))
}

// --- Team ---

func TestBuild_HierarchyInfo(t *testing.T) {
	team := buildTeam(t, mocks.NewMockProvider(), BuildOptions{})

	info := team.HierarchyInfo()
	assert.Equal(t, "research_coordinator", info.Coordinator.Name)
	assert.Equal(t, "gpt-4o-mini", info.Coordinator.Model)
	assert.Equal(t, "hybrid", info.Coordinator.Strategy)
	assert.Equal(t, 2, info.TotalTeams)
	assert.Equal(t, 3, info.TotalWorkers)
	assert.Equal(t, []string{"research", "writing"}, info.TeamOrder)

	research := info.Teams["research"]
	assert.Equal(t, "research_supervisor", research.SupervisorName)
	assert.Equal(t, "capability", research.Strategy)
	assert.Equal(t, 2, research.WorkerCount)
	assert.Equal(t, "researcher", research.Workers[0].Specialization)
	assert.Equal(t, 2, research.Workers[0].Priority)
	assert.Equal(t, 1, research.Workers[1].Priority)

	assert.Equal(t, []string{"content_writer", "data_analyst", "web_researcher"}, team.WorkerNames())
	assert.True(t, team.HasWorker("content_writer"))
	assert.False(t, team.HasWorker("ghost"))
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Build(ctx, "x", nil, BuildOptions{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))

	_, err = Build(ctx, "x", &teamconfig.HierarchicalConfig{}, BuildOptions{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))

	cfg := parseFixture(t)
	cfg.Coordinator.Routing.Strategy = "telepathy"
	_, err = Build(ctx, "x", cfg, BuildOptions{ProviderFactory: mockFactory(mocks.NewMockProvider())})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))

	cfg = parseFixture(t)
	_, err = Build(ctx, "x", cfg, BuildOptions{ProviderFactory: func(teamconfig.LLMConfig) (llm.Provider, error) {
		return nil, errors.New("no key")
	}})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))

	cfg = parseFixture(t)
	cfg.Teams[0].Workers[0].ConfigData = map[string]any{"agent": "not a map"}
	_, err = Build(ctx, "x", cfg, BuildOptions{ProviderFactory: mockFactory(mocks.NewMockProvider())})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
}

func TestBuild_WorkerResolution(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "agents/writer.yml", fixtures.WriterAgentYAML)

	cfg := parseFixture(t)
	// config_file 覆盖 content_writer
	cfg.Teams[1].Workers[0].ConfigFile = "agents/writer.yml"
	cfg.Teams[1].Workers[0].Capabilities = nil
	cfg.Teams[1].Workers[0].Role = ""
	// config_data 覆盖 data_analyst
	cfg.Teams[0].Workers[1].ConfigData = map[string]any{
		"agent":   map[string]any{"name": "inline", "description": "inline analyst"},
		"llm":     map[string]any{"model": "inline-model"},
		"prompts": map[string]any{"system_prompt": map[string]any{"template": "You analyze."}},
	}
	cfg.Teams[0].Workers[1].Description = ""
	// 找不到的 config_file 回退到条目本身
	cfg.Teams[0].Workers[0].ConfigFile = "agents/missing.yml"

	var (
		mu     sync.Mutex
		models []string
	)
	factory := func(c teamconfig.LLMConfig) (llm.Provider, error) {
		mu.Lock()
		models = append(models, c.Provider+"/"+c.Model)
		mu.Unlock()
		return mocks.NewMockProvider(), nil
	}

	team, err := Build(context.Background(), "t", cfg, BuildOptions{
		BaseDirs:        []string{dir},
		DefaultLLM:      teamconfig.LLMConfig{Provider: "echo", Model: "default-model"},
		ProviderFactory: factory,
	})
	require.NoError(t, err)

	info := team.HierarchyInfo()
	writer := info.Teams["writing"].Workers[0]
	assert.Equal(t, []string{"writing", "documentation"}, writer.Capabilities)
	assert.Equal(t, "writing", writer.Specialization)
	assert.Equal(t, []string{"file_reader", "style_checker"}, writer.Tools)
	assert.Equal(t, "Writes articles and reports", writer.Description)

	analyst := info.Teams["research"].Workers[1]
	assert.Equal(t, "inline analyst", analyst.Description)
	assert.Equal(t, "inline-model", analyst.Model)

	researcher := info.Teams["research"].Workers[0]
	assert.Equal(t, []string{"web_search", "research"}, researcher.Capabilities)

	// 相同 provider/model 只创建一次
	assert.ElementsMatch(t, []string{"echo/gpt-4o-mini", "echo/default-model", "echo/inline-model"}, models)
}

func TestTeam_Run(t *testing.T) {
	p := mocks.NewMockProvider().WithResponse("findings")
	var (
		mu     sync.Mutex
		levels []string
	)
	team := buildTeam(t, p, BuildOptions{Observer: func(level string, d routing.Decision) {
		mu.Lock()
		levels = append(levels, level)
		mu.Unlock()
	}})

	res, err := team.Run(testutil.TestContext(t), "search the web and find sources on solar power", map[string]any{"priority": "normal"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "findings", res.Response)
	assert.Equal(t, "research", res.Team)
	assert.Equal(t, "web_researcher", res.Worker)
	require.NotNil(t, res.Routing)
	assert.Equal(t, "hybrid", res.Routing.Strategy)
	require.NotNil(t, res.Delegation)
	assert.Equal(t, "capability", res.Delegation.Strategy)
	assert.Len(t, res.IntermediateSteps, 3)
	assert.Contains(t, res.Reasoning, "Team routing:")
	assert.Equal(t, 30, res.Usage.TotalTokens)
	assert.Equal(t, []string{"coordinator", "supervisor"}, levels)

	stats := team.RoutingStatistics()
	assert.Equal(t, 1, stats.Coordinator.TotalDecisions)
	assert.Equal(t, 1, stats.Teams["research"].TotalDecisions)
	assert.Equal(t, 0, stats.Teams["writing"].TotalDecisions)
}

func TestTeam_RunFailure(t *testing.T) {
	boom := errors.New("provider down")
	team := buildTeam(t, mocks.NewMockProvider().WithError(boom), BuildOptions{})

	res, err := team.Run(context.Background(), "write an article", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "provider down", res.Error)
}

func TestTeam_RunCancelled(t *testing.T) {
	team := buildTeam(t, mocks.NewMockProvider().WithDelay(time.Second), BuildOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := team.Run(ctx, "write an article", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTeam_RunTeamAndWorker(t *testing.T) {
	p := mocks.NewMockProvider().WithResponse("ok")
	team := buildTeam(t, p, BuildOptions{})
	ctx := context.Background()

	res, err := team.RunTeam(ctx, "writing", "anything at all", nil)
	require.NoError(t, err)
	assert.Equal(t, "writing", res.Team)
	assert.Equal(t, "content_writer", res.Worker)
	assert.Nil(t, res.Routing)

	_, err = team.RunTeam(ctx, "ghost", "x", nil)
	assert.True(t, types.IsErrorCode(err, types.ErrTeamNotFound))

	res, err = team.RunWorker(ctx, "data_analyst", "crunch numbers", nil)
	require.NoError(t, err)
	assert.Equal(t, "research", res.Team)
	assert.Equal(t, "data_analyst", res.Worker)
	assert.Equal(t, "Direct worker execution", res.Reasoning)

	_, err = team.RunWorker(ctx, "ghost", "x", nil)
	assert.True(t, types.IsErrorCode(err, types.ErrAgentNotFound))
}
