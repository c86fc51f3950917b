package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/library"
	"github.com/BaSui01/agentteams/internal/service"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/testutil"
	"github.com/BaSui01/agentteams/testutil/fixtures"
	"github.com/BaSui01/agentteams/testutil/mocks"
)

// apiEnv 基于内存存储与模拟 LLM 的完整路由
type apiEnv struct {
	provider   *mocks.MockProvider
	teams      *service.TeamService
	executions *service.ExecutionService
	server     *httptest.Server
}

func newAPIEnv(t *testing.T, p *mocks.MockProvider) *apiEnv {
	t.Helper()
	if p == nil {
		p = mocks.NewMockProvider().WithResponse("mock answer")
	}
	logger := zap.NewNop()

	templateDir := t.TempDir()
	testutil.WriteFile(t, templateDir, "research_team.yaml", fixtures.ResearchTeamYAML)

	agentDir := t.TempDir()
	testutil.WriteFile(t, agentDir, "technical_writer.yml", fixtures.WriterAgentYAML)
	testutil.WriteFile(t, agentDir, "project_coordinator.yml", fixtures.CoordinatorAgentYAML)
	testutil.WriteFile(t, agentDir, "web_researcher.yml", fixtures.ResearcherAgentYAML)
	lib, err := library.New(agentDir, logger)
	require.NoError(t, err)

	teamStore := store.NewMemoryTeamStore()
	execStore := store.NewMemoryExecutionStore()
	teams := service.NewTeamService(teamStore, execStore, service.TeamOptions{
		TemplateDirs: []string{templateDir},
		ProviderFactory: func(teamconfig.LLMConfig) (llm.Provider, error) {
			return p, nil
		},
		Logger: logger,
	})
	agents := service.NewAgentService(lib, logger)
	executions := service.NewExecutionService(execStore, teams, service.ExecutionOptions{
		Observers: []service.ExecutionObserver{agents.RecordExecution},
		Logger:    logger,
	})
	configs := service.NewConfigService(teams, service.ConfigOptions{
		TemplateDirs: []string{templateDir},
		Logger:       logger,
	})
	evaluations := service.NewEvaluationService(teams, nil, service.EvaluationOptions{Logger: logger})

	hs := &Handlers{
		Health:      NewHealthHandler(BuildInfo{Version: "test"}, teams, executions, logger),
		Teams:       NewTeamHandler(teams, evaluations, logger),
		Executions:  NewExecutionHandler(executions, nil, logger),
		Configs:     NewConfigHandler(configs, logger),
		Agents:      NewAgentHandler(agents, logger),
		Evaluations: NewEvaluationHandler(evaluations, logger),
	}
	mux := http.NewServeMux()
	hs.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = executions.Shutdown(ctx)
	})

	return &apiEnv{provider: p, teams: teams, executions: executions, server: srv}
}

// do 发送 JSON 请求并解码统一响应
func (e *apiEnv) do(t *testing.T, method, path string, body any) (int, Response) {
	t.Helper()
	reader := strings.NewReader("")
	if body != nil {
		reader = strings.NewReader(testutil.MustJSON(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// decodeData 将 Response.Data 转为具体类型
func decodeData[T any](t *testing.T, resp Response) T {
	t.Helper()
	var out T
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func (e *apiEnv) createTeam(t *testing.T) string {
	t.Helper()
	status, resp := e.do(t, http.MethodPost, "/api/v1/teams", map[string]any{"template_id": "research_team"})
	require.Equal(t, http.StatusCreated, status, "%+v", resp.Error)
	team := decodeData[map[string]any](t, resp)
	return team["id"].(string)
}
