package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/testutil/fixtures"
	"github.com/BaSui01/agentteams/testutil/mocks"
)

func decode(t *testing.T, yamlText string) map[string]any {
	t.Helper()
	m, err := teamconfig.DecodeMap([]byte(yamlText), "yaml")
	require.NoError(t, err)
	return m
}

func issuesAt(r *Report, location string) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Location == location {
			out = append(out, i)
		}
	}
	return out
}

func TestValidate_CleanConfig(t *testing.T) {
	v := NewHierarchyValidator(WithLogger(zap.NewNop()))
	r := v.Validate(context.Background(), decode(t, fixtures.ResearchTeamYAML))

	assert.Empty(t, r.Issues)
	assert.Equal(t, 100.0, r.OverallScore)
	assert.Equal(t, 1.0, r.CapabilityCoverage)
	assert.InDelta(t, 0.8, r.RoutingClarityScore, 1e-9)
	assert.InDelta(t, 2.6/3, r.PromptQuality, 1e-9)
	assert.Empty(t, r.Suggestions)
	assert.NotNil(t, r.OptimizedConfig)
	assert.False(t, r.ValidatedAt.IsZero())
}

func TestValidate_MissingSections(t *testing.T) {
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), map[string]any{"name": "x"})

	counts := r.CountBySeverity()
	assert.Equal(t, 3, counts[SeverityCritical])
	for _, loc := range []string{"root.team", "root.coordinator", "root.teams"} {
		require.Len(t, issuesAt(r, loc), 1, loc)
		assert.Equal(t, 1.0, issuesAt(r, loc)[0].Confidence)
	}
	// 没有可分析的 Agent
	assert.Equal(t, 0.0, r.OverallScore)
}

func TestValidate_EmptyTeams(t *testing.T) {
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), decode(t, `
team: {name: t}
coordinator:
  prompts:
    system_prompt:
      template: Route every task to the right team.
teams: []
`))

	issues := issuesAt(r, "root.teams")
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityHigh, issues[0].Severity)
	// 100 - 15 = 85 > 80，加 1 个 Agent 的奖励
	assert.InDelta(t, 86.0, r.OverallScore, 1e-9)
}

func TestValidate_EmptyPromptsAndOptimizedConfig(t *testing.T) {
	config := decode(t, `
team: {name: t}
coordinator: {name: c}
teams:
  - name: alpha
    supervisor: {name: s}
    workers:
      - name: w1
      - name: w2
        description: Writes code
        capabilities: [coding]
`)
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), config)

	coord := issuesAt(r, coordinatorPromptLocation)
	require.Len(t, coord, 1)
	assert.Equal(t, CategoryPromptClarity, coord[0].Category)
	assert.True(t, coord[0].AutoFixable)
	assert.Equal(t, 0.95, coord[0].Confidence)

	sup := issuesAt(r, "teams.alpha.supervisor.prompts.system_prompt")
	require.Len(t, sup, 1)
	assert.Equal(t, SeverityHigh, sup[0].Severity)

	noCaps := issuesAt(r, "teams.alpha.workers.w1.capabilities")
	require.Len(t, noCaps, 1)
	assert.Equal(t, SeverityLow, noCaps[0].Severity)

	// 100 - 15*0.95*2 - 3*0.7
	assert.InDelta(t, 69.4, r.OverallScore, 1e-9)
	assert.Equal(t, 0.5, r.CapabilityCoverage)
	assert.InDelta(t, 0.2, r.RoutingClarityScore, 1e-9)

	opt := r.OptimizedConfig
	coordPrompt := opt["coordinator"].(map[string]any)["prompts"].(map[string]any)["system_prompt"].(map[string]any)["template"].(string)
	assert.Contains(t, coordPrompt, "- alpha: No description (2 workers) - Capabilities: coding")

	team := opt["teams"].([]any)[0].(map[string]any)
	supPrompt := team["supervisor"].(map[string]any)["prompts"].(map[string]any)["system_prompt"].(map[string]any)["template"].(string)
	assert.Contains(t, supPrompt, "supervisor for the alpha team")
	assert.Contains(t, supPrompt, "- w2: Writes code - Capabilities: coding")

	// 原配置不被修改
	_, touched := config["coordinator"].(map[string]any)["prompts"]
	assert.False(t, touched)

	// 优化后的配置再次校验不再有提示词为空的问题
	again := v.Validate(context.Background(), opt)
	assert.Empty(t, issuesAt(again, coordinatorPromptLocation))
	assert.Greater(t, again.OverallScore, r.OverallScore)
}

func TestValidate_SupervisorPromptChecks(t *testing.T) {
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), decode(t, `
team: {name: t}
coordinator:
  prompts:
    system_prompt:
      template: You coordinate alpha.
teams:
  - name: alpha
    supervisor:
      prompts:
        system_prompt:
          template: You manage stuff.
    workers:
      - name: w1
        capabilities: [coding]
`))

	sup := issuesAt(r, "teams.alpha.supervisor.prompts.system_prompt")
	require.Len(t, sup, 3)
	assert.Equal(t, CategoryRoutingLogic, sup[0].Category)
	assert.Equal(t, 0.85, sup[0].Confidence)
	assert.Equal(t, CategoryCapabilityAlignment, sup[1].Category)
	assert.Equal(t, 0.80, sup[1].Confidence)
	assert.Equal(t, SeverityLow, sup[2].Severity)
	assert.Equal(t, 0.75, sup[2].Confidence)

	// 100 - 8*0.85 - 8*0.8 - 3*0.75 = 84.55，加 2 个 Agent 的奖励
	assert.InDelta(t, 86.55, r.OverallScore, 1e-9)
	assert.InDelta(t, (1.0+0.7*0.7*0.8*0.8)/2, r.RoutingClarityScore, 1e-9)

	// 非 prompt_clarity 问题不改写提示词
	team := r.OptimizedConfig["teams"].([]any)[0].(map[string]any)
	tmpl := team["supervisor"].(map[string]any)["prompts"].(map[string]any)["system_prompt"].(map[string]any)["template"]
	assert.Equal(t, "You manage stuff.", tmpl)
}

func TestValidate_CoordinatorPromptChecks(t *testing.T) {
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), decode(t, `
team: {name: t}
coordinator:
  prompts:
    system_prompt:
      template: Answer questions politely.
teams:
  - name: alpha
    supervisor:
      prompts:
        system_prompt:
          template: Delegate to w1 for coding.
    workers:
      - name: w1
        capabilities: [coding]
`))

	coord := issuesAt(r, coordinatorPromptLocation)
	require.Len(t, coord, 2)
	assert.Equal(t, CategoryRoutingLogic, coord[0].Category)
	assert.Equal(t, CategoryCapabilityAlignment, coord[1].Category)
	assert.InDelta(t, (0.56+0.7)/2, r.RoutingClarityScore, 1e-9)
}

func TestValidate_Failure(t *testing.T) {
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), nil)

	assert.Equal(t, 0.0, r.OverallScore)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, SeverityCritical, r.Issues[0].Severity)
	assert.Equal(t, "root", r.Issues[0].Location)
	assert.Contains(t, r.Issues[0].Message, "Validation failed with error")
}

func TestValidate_LLMSuggestions(t *testing.T) {
	p := mocks.NewMockProvider().WithResponse(`Here is my analysis.

ADDITIONAL_SUGGESTIONS:
- Add a fallback team
-
ROUTING_IMPROVEMENTS:
- Mention worker tools in supervisor prompts

PERFORMANCE_OPTIMIZATIONS:
- Cache frequent lookups
not a bullet
`)
	v := NewHierarchyValidator(WithProvider(p, "judge-model"))
	r := v.Validate(context.Background(), decode(t, fixtures.ResearchTeamYAML))

	assert.Equal(t, []string{
		"[General] Add a fallback team",
		"[Routing] Mention worker tools in supervisor prompts",
		"[Performance] Cache frequent lookups",
	}, r.Suggestions)

	req := p.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "judge-model", req.Model)
	assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "CONFIGURATION:")
}

func TestValidate_LLMFailure(t *testing.T) {
	p := mocks.NewMockProvider().WithError(errors.New("quota exceeded"))
	v := NewHierarchyValidator(WithProvider(p, "m"))
	r := v.Validate(context.Background(), decode(t, fixtures.ResearchTeamYAML))

	assert.Equal(t, []string{manualReviewSuggestion}, r.Suggestions)
	assert.Equal(t, 100.0, r.OverallScore)
}

func TestValidate_HistoryAndObserver(t *testing.T) {
	var seen []float64
	v := NewHierarchyValidator(WithObserver(func(r *Report) { seen = append(seen, r.OverallScore) }))

	v.Validate(context.Background(), nil)
	v.Validate(context.Background(), decode(t, fixtures.ResearchTeamYAML))

	assert.Equal(t, []float64{0, 100}, seen)
	h := v.History(1)
	require.Len(t, h, 1)
	assert.Equal(t, 100.0, h[0].OverallScore)
	assert.Len(t, v.History(0), 2)
}

func TestValidate_AcceptsTypedSlices(t *testing.T) {
	v := NewHierarchyValidator()
	r := v.Validate(context.Background(), map[string]any{
		"team":        map[string]any{"name": "t"},
		"coordinator": map[string]any{"prompts": map[string]any{"system_prompt": map[string]any{"template": "Route to alpha team."}}},
		"teams": []map[string]any{{
			"name":       "alpha",
			"supervisor": map[string]any{"prompts": map[string]any{"system_prompt": map[string]any{"template": "Delegate to w1 for coding."}}},
			"workers":    []map[string]any{{"name": "w1", "capabilities": []string{"coding"}}},
		}},
	})

	assert.Empty(t, r.Issues)
	assert.Equal(t, 1.0, r.CapabilityCoverage)
}

func TestParseSuggestions_NoSections(t *testing.T) {
	assert.Empty(t, parseSuggestions("- orphan bullet\nplain text"))
}
