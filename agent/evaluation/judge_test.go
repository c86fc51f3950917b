package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/testutil/mocks"
)

func TestParseDimensionEvaluation(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		raw      int
		reason   string
		suggests []string
	}{
		{
			name:     "json",
			content:  "Here you go:\n```json\n{\"score\": 4, \"reasoning\": \"solid\", \"suggestions\": [\"add tests\"]}\n```",
			raw:      4,
			reason:   "solid",
			suggests: []string{"add tests"},
		},
		{name: "json clamped", content: `{"score": 9, "reasoning": "wow"}`, raw: 5, reason: "wow"},
		{name: "json rounded", content: `{"score": 2.6, "reasoning": "ok"}`, raw: 3, reason: "ok"},
		{name: "score line", content: "Analysis done.\nScore: 2 out of 5", raw: 2},
		{name: "rating line", content: "Rating: 5", raw: 5},
		{name: "out of range line", content: "score: 7", raw: 3},
		{name: "no score", content: "I cannot decide.", raw: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, reason, suggests := parseDimensionEvaluation(tt.content)
			assert.Equal(t, tt.raw, raw)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
			} else {
				assert.Equal(t, strings.TrimSpace(tt.content), reason)
			}
			assert.Equal(t, tt.suggests, suggests)
		})
	}
}

func TestLLMJudge_ScenarioSuccess(t *testing.T) {
	ctx := context.Background()
	withExpected := Scenario{Name: "q", Prompt: "capital of France?", ExpectedOutcome: "Paris"}

	t.Run("no expected outcome", func(t *testing.T) {
		j := NewLLMJudge(nil, DefaultJudgeConfig(), nil)
		assert.True(t, j.ScenarioSuccess(ctx, Scenario{Name: "x"}, "anything"))
		assert.False(t, j.ScenarioSuccess(ctx, Scenario{Name: "x"}, "   "))
	})

	t.Run("llm verdict", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithResponses(" TRUE \n", "false")
		j := NewLLMJudge(provider, DefaultJudgeConfig(), zap.NewNop())

		assert.True(t, j.ScenarioSuccess(ctx, withExpected, "Paris"))
		assert.False(t, j.ScenarioSuccess(ctx, withExpected, "Berlin"))

		req := provider.LastRequest()
		require.NotNil(t, req)
		assert.Equal(t, "judge", req.Agent)
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Contains(t, req.Messages[0].Content, "Expected: Paris")
	})

	t.Run("fallback to length", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithError(errors.New("offline"))
		j := NewLLMJudge(provider, DefaultJudgeConfig(), zap.NewNop())

		assert.False(t, j.ScenarioSuccess(ctx, withExpected, "Paris"))
		assert.True(t, j.ScenarioSuccess(ctx, withExpected, strings.Repeat("Paris ", 10)))
	})
}

func TestLLMJudge_JudgeDimension(t *testing.T) {
	ctx := context.Background()
	dctx := DimensionContext{
		TeamName:     "alpha",
		TeamsCount:   2,
		WorkersCount: 4,
		SuccessRate:  0.5,
		Results: []TestResult{
			{ScenarioName: "Edge", Success: false, ErrorMessage: "boom"},
		},
	}

	provider := mocks.NewMockProvider().WithResponse(`{"score": 2, "reasoning": "weak", "suggestions": ["handle empty input"]}`)
	j := NewLLMJudge(provider, DefaultJudgeConfig(), zap.NewNop())

	score := j.JudgeDimension(ctx, DimensionErrorHandling, dctx)
	assert.Equal(t, DimensionErrorHandling, score.Dimension)
	assert.Equal(t, 2, score.RawScore)
	assert.InDelta(t, 0.25, score.Score, 1e-9)
	assert.Equal(t, []string{"handle empty input"}, score.Suggestions)

	req := provider.LastRequest()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "edge cases")
	assert.Contains(t, req.Messages[1].Content, "error handling")
	assert.Contains(t, req.Messages[1].Content, "Success Rate: 50.0%")
	assert.Contains(t, req.Messages[1].Content, "Error: boom")

	failing := NewLLMJudge(mocks.NewMockProvider().WithError(errors.New("quota")), DefaultJudgeConfig(), zap.NewNop())
	fallback := failing.JudgeDimension(ctx, DimensionTaskCompletion, dctx)
	assert.Equal(t, 0.5, fallback.Score)
	assert.Equal(t, 3, fallback.RawScore)
	assert.True(t, strings.HasPrefix(fallback.Reasoning, "Evaluation failed: "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "你好...", truncate("你好世界", 2))
}
