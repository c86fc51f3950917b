package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/metrics"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/testutil"
	"github.com/BaSui01/agentteams/testutil/fixtures"
	"github.com/BaSui01/agentteams/testutil/mocks"
)

type testEnv struct {
	provider   *mocks.MockProvider
	registry   *prometheus.Registry
	collector  *metrics.Collector
	teamStore  store.TeamStore
	execStore  store.ExecutionStore
	teams      *TeamService
	executions *ExecutionService
}

func newTestEnv(t *testing.T, p *mocks.MockProvider, execOpts ExecutionOptions) *testEnv {
	t.Helper()
	if p == nil {
		p = mocks.NewMockProvider()
	}
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("agentteams", reg, reg, zap.NewNop())

	env := &testEnv{
		provider:  p,
		registry:  reg,
		collector: collector,
		teamStore: store.NewMemoryTeamStore(),
		execStore: store.NewMemoryExecutionStore(),
	}
	env.teams = NewTeamService(env.teamStore, env.execStore, TeamOptions{
		TemplateDirs: []string{t.TempDir()},
		ProviderFactory: func(teamconfig.LLMConfig) (llm.Provider, error) {
			return p, nil
		},
		Metrics: collector,
		Logger:  zap.NewNop(),
	})

	execOpts.Metrics = collector
	execOpts.Logger = zap.NewNop()
	env.executions = NewExecutionService(env.execStore, env.teams, execOpts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.executions.Shutdown(ctx)
	})
	return env
}

func fixtureConfig(t *testing.T) map[string]any {
	t.Helper()
	raw, err := teamconfig.DecodeMap([]byte(fixtures.ResearchTeamYAML), teamconfig.FormatYAML)
	require.NoError(t, err)
	return raw
}

func (e *testEnv) createTeam(t *testing.T) *api.TeamResponse {
	t.Helper()
	resp, err := e.teams.Create(testutil.TestContext(t), &api.CreateTeamRequest{ConfigData: fixtureConfig(t)})
	require.NoError(t, err)
	return resp
}

// waitTerminal 轮询直到执行进入终态
func (e *testEnv) waitTerminal(t *testing.T, id string) *api.ExecutionResponse {
	t.Helper()
	var last *api.ExecutionResponse
	ok := testutil.WaitFor(func() bool {
		resp, err := e.executions.Get(context.Background(), id)
		if err != nil {
			return false
		}
		last = resp
		return store.ExecutionStatus(resp.Status.Status).Terminal()
	}, 5*time.Second)
	require.True(t, ok, "execution %s did not finish", id)
	return last
}
