package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/hierarchical"
	"github.com/BaSui01/agentteams/llm"
)

func TestAccuracyMetric(t *testing.T) {
	m := NewAccuracyMetric()
	ctx := context.Background()

	tests := []struct {
		name     string
		expected string
		response string
		want     float64
	}{
		{name: "contains ignoring case", expected: "Paris", response: "The capital is paris.", want: 1},
		{name: "exact", expected: "42", response: " 42 ", want: 1},
		{name: "edit distance", expected: "kitten", response: "sitting", want: 1 - 3.0/7.0},
		{name: "unicode runes", expected: "análisis", response: "analisis", want: 1 - 1.0/8.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Compute(ctx, Scenario{ExpectedOutcome: tt.expected}, &TestResult{Response: tt.response})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := m.Compute(ctx, Scenario{}, &TestResult{Response: "x"})
	assert.ErrorIs(t, err, ErrMetricNotApplicable)
}

func TestLatencyAndTokenMetrics(t *testing.T) {
	ctx := context.Background()

	v, err := LatencyMetric{}.Compute(ctx, Scenario{Timeout: 10 * time.Second}, &TestResult{ExecutionTime: 2 * time.Second})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-9)

	v, err = LatencyMetric{}.Compute(ctx, Scenario{}, &TestResult{ExecutionTime: 60 * time.Second})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)

	tok := NewTokenEfficiencyMetric(0)
	assert.Equal(t, defaultTokenBudget, tok.MaxTokens)
	v, err = tok.Compute(ctx, Scenario{}, &TestResult{TokensUsed: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, v, 1e-9)

	_, err = tok.Compute(ctx, Scenario{}, &TestResult{})
	assert.ErrorIs(t, err, ErrMetricNotApplicable)
}

func TestMetricRegistry(t *testing.T) {
	r := NewRegistryWithBuiltinMetrics()
	assert.Equal(t, []string{"accuracy", "latency", "token_efficiency"}, r.List())

	r.Register(NewTokenEfficiencyMetric(100))
	assert.Len(t, r.List(), 3)

	// 超出预算的结果截断为 0，不适用的指标不出现
	got := r.ComputeAll(context.Background(), Scenario{Timeout: time.Second}, &TestResult{TokensUsed: 500})
	assert.Equal(t, map[string]float64{"latency": 1, "token_efficiency": 0}, got)

	var empty *MetricRegistry
	assert.Nil(t, empty.ComputeAll(context.Background(), Scenario{}, &TestResult{}))
}

func TestAverageMetrics(t *testing.T) {
	avg := AverageMetrics([]TestResult{
		{Metrics: map[string]float64{"latency": 1, "accuracy": 0.5}},
		{Metrics: map[string]float64{"latency": 0.5}},
		{},
	})
	assert.Equal(t, map[string]float64{"latency": 0.75, "accuracy": 0.5}, avg)
	assert.Nil(t, AverageMetrics(nil))
}

func TestTeamEvaluator_RecordsScenarioMetrics(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, input string, params map[string]any) (*hierarchical.RunResult, error) {
		return &hierarchical.RunResult{
			Response: "The answer is 4",
			Status:   hierarchical.StatusCompleted,
			Usage:    llm.ChatUsage{TotalTokens: 400},
		}, nil
	})
	scenario := Custom("math", "what is 2+2", func(s *Scenario) { s.ExpectedOutcome = "4" })

	res, err := NewTeamEvaluator(nil, WithLogger(zap.NewNop())).Evaluate(context.Background(), nil, runner,
		[]Scenario{scenario}, []Dimension{DimensionTaskCompletion})
	require.NoError(t, err)

	require.Len(t, res.TestResults, 1)
	tr := res.TestResults[0]
	assert.Equal(t, 400, tr.TokensUsed)
	assert.Equal(t, 1.0, tr.Metrics["accuracy"])
	assert.InDelta(t, 0.9, tr.Metrics["token_efficiency"], 1e-9)
	assert.Greater(t, tr.Metrics["latency"], 0.99)
	assert.Equal(t, tr.Metrics, res.MetricAverages)

	res, err = NewTeamEvaluator(nil, WithMetrics(nil)).Evaluate(context.Background(), nil, runner,
		[]Scenario{scenario}, []Dimension{DimensionTaskCompletion})
	require.NoError(t, err)
	assert.Nil(t, res.TestResults[0].Metrics)
	assert.Nil(t, res.MetricAverages)
}
