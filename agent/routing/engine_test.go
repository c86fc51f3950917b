package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/testutil/mocks"
	"github.com/BaSui01/agentteams/types"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := NewEngine(append([]Option{WithLogger(zap.NewNop())}, opts...)...)

	researcher := NewAgentCapability("researcher", "research", "web_search")
	researcher.SpecializationKeywords = []string{"investigate"}
	writer := NewAgentCapability("writer", "writing")
	writer.SpecializationKeywords = []string{"article"}

	require.NoError(t, e.RegisterAgent(*researcher))
	require.NoError(t, e.RegisterAgent(*writer))
	return e
}

var both = []string{"researcher", "writer"}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"keyword", StrategyKeyword},
		{"capability_based", StrategyCapability},
		{"HYBRID", StrategyHybrid},
		{" performance-based ", StrategyPerformance},
		{"llm_based", StrategyLLM},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStrategy("round_robin")
	assert.Error(t, err)
	_, err = ParseStrategy("bogus")
	assert.Error(t, err)
}

func TestAgentCapability_Scores(t *testing.T) {
	a := NewAgentCapability("a")
	assert.Equal(t, 1.0, a.Availability())
	assert.InDelta(t, 1.0, a.PerformanceScore(), 1e-9)

	a.CurrentWorkload = 5
	assert.InDelta(t, 0.5, a.Availability(), 1e-9)

	a.CurrentWorkload = 20
	assert.Equal(t, 0.0, a.Availability())

	a.MaxWorkload = 0
	assert.Equal(t, 0.0, a.Availability())

	b := NewAgentCapability("b")
	b.AverageResponseTime = 30
	b.SuccessRate = 0.5
	// 0.5*0.5 + 0.5*0.2 + 1*0.3
	assert.InDelta(t, 0.65, b.PerformanceScore(), 1e-9)

	b.AverageResponseTime = 120
	assert.InDelta(t, 0.55, b.PerformanceScore(), 1e-9)
}

func TestEngine_RegisterAndUpdate(t *testing.T) {
	e := newTestEngine(t)

	assert.Error(t, e.RegisterAgent(AgentCapability{}))

	agents := e.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "researcher", agents[0].AgentID)

	// 重复注册保持顺序
	require.NoError(t, e.RegisterAgent(*NewAgentCapability("researcher", "research")))
	assert.Equal(t, "researcher", e.Agents()[0].AgentID)

	assert.True(t, e.UpdateWorkload("writer", 3))
	assert.True(t, e.UpdateWorkload("writer", -10))
	w, ok := e.Agent("writer")
	require.True(t, ok)
	assert.Equal(t, 0, w.CurrentWorkload)
	assert.False(t, e.UpdateWorkload("ghost", 1))

	assert.True(t, e.UpdatePerformance("writer", 2.0, true))
	assert.True(t, e.UpdatePerformance("writer", 4.0, false))
	w, _ = e.Agent("writer")
	assert.InDelta(t, 2.4, w.AverageResponseTime, 1e-9)
	assert.InDelta(t, 0.9, w.SuccessRate, 1e-9)

	for i := 0; i < 50; i++ {
		e.UpdatePerformance("writer", 1, false)
	}
	w, _ = e.Agent("writer")
	assert.InDelta(t, 0.1, w.SuccessRate, 1e-9)
	assert.False(t, e.UpdatePerformance("ghost", 1, true))

	assert.True(t, e.UnregisterAgent("writer"))
	assert.False(t, e.UnregisterAgent("writer"))
	assert.Len(t, e.Agents(), 1)
}

func TestRoute_Errors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Route(ctx, "task", nil, StrategyKeyword, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRoutingFailed))

	_, err = e.Route(ctx, "task", []string{"ghost"}, StrategyKeyword, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRoutingFailed))
}

func TestRoute_Keyword(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.Route(context.Background(), "Write an article about research", both, StrategyKeyword, nil)
	require.NoError(t, err)

	// writer: article(+3) + write/article 映射(+2) = 5; researcher: research(+2) + 映射(+2) = 4
	assert.Equal(t, "writer", d.Target)
	assert.Equal(t, StrategyKeyword, d.Strategy)
	assert.InDelta(t, 5.0/9.0, d.Confidence, 1e-9)
	require.Len(t, d.Alternatives, 1)
	assert.Equal(t, Alternative{AgentID: "researcher", Score: 4}, d.Alternatives[0])
	assert.False(t, d.Timestamp.IsZero())
}

func TestRoute_Capability(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.Route(context.Background(), "research the market data", both, StrategyCapability, nil)
	require.NoError(t, err)
	assert.Equal(t, "researcher", d.Target)
	assert.InDelta(t, 6.0/9.0, d.Confidence, 1e-9)
	assert.Equal(t, []string{"research", "market", "data"}, d.Metadata["task_keywords"])
}

func TestRoute_WorkloadAndPerformance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.UpdateWorkload("researcher", 5)

	d, err := e.Route(ctx, "anything", both, StrategyWorkload, nil)
	require.NoError(t, err)
	assert.Equal(t, "writer", d.Target)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
	require.Len(t, d.Alternatives, 1)
	assert.InDelta(t, 0.5, d.Alternatives[0].Score, 1e-9)

	e.UpdateWorkload("researcher", -5)
	e.UpdatePerformance("writer", 30, false)
	d, err = e.Route(ctx, "anything", both, StrategyPerformance, nil)
	require.NoError(t, err)
	assert.Equal(t, "researcher", d.Target)
	assert.InDelta(t, 0.9, d.Confidence, 1e-9)
}

func TestRoute_Rule(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	d, err := e.Route(ctx, "please handle this", both, StrategyRule, map[string]any{"priority": "high"})
	require.NoError(t, err)
	assert.Equal(t, "researcher", d.Target)
	assert.Equal(t, 0.9, d.Confidence)
	assert.Equal(t, "urgent_high_priority", d.Metadata["rule"])

	e.UpdateWorkload("researcher", 5)
	d, err = e.Route(ctx, "short task", both, StrategyRule, nil)
	require.NoError(t, err)
	assert.Equal(t, "writer", d.Target)
	assert.Equal(t, 0.7, d.Confidence)

	medium := strings.Repeat("word ", 20)
	d, err = e.Route(ctx, medium, both, StrategyRule, nil)
	require.NoError(t, err)
	assert.Equal(t, "researcher", d.Target)
	assert.Equal(t, 0.3, d.Confidence)
	assert.Nil(t, d.Metadata)
}

func TestRoute_Hybrid(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.Route(context.Background(), "research solar panels", both, StrategyHybrid, nil)
	require.NoError(t, err)

	// capability 0.4*(6/9) + performance 0.3*0.9 + workload 0.2*0.8 + keyword 0.1*0.9
	assert.Equal(t, "researcher", d.Target)
	assert.Equal(t, StrategyHybrid, d.Strategy)
	assert.InDelta(t, 0.4*6.0/9.0+0.27+0.16+0.09, d.Confidence, 1e-9)

	weighted := d.Metadata["weighted_scores"].(map[string]float64)
	assert.InDelta(t, 0.025, weighted["writer"], 1e-9)
	assert.Equal(t, "researcher", d.Metadata["strategy_decisions"].(map[string]string)["capability"])
}

func TestRoute_DefaultStrategyIsHybrid(t *testing.T) {
	e := newTestEngine(t)
	d, err := e.Route(context.Background(), "research", both, "", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyHybrid, d.Strategy)
}

func TestRoute_LLM(t *testing.T) {
	ctx := context.Background()

	t.Run("json answer", func(t *testing.T) {
		p := mocks.NewMockProvider().WithResponse(
			"```json\n{\"chosen_agent\":\"writer\",\"confidence\":0.8,\"reasoning\":\"writes\",\"alternatives\":[\"writer\",\"researcher\",\"other\",\"more\"]}\n```")
		e := newTestEngine(t, WithProvider(p, "gpt-4o-mini"))

		d, err := e.Route(ctx, "draft a post", both, StrategyLLM, nil)
		require.NoError(t, err)
		assert.Equal(t, "writer", d.Target)
		assert.Equal(t, 0.8, d.Confidence)
		assert.Equal(t, "writes", d.Reasoning)
		assert.Equal(t, []Alternative{{"researcher", 0.5}, {"other", 0.5}}, d.Alternatives)

		req := p.LastRequest()
		require.NotNil(t, req)
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Contains(t, req.Messages[1].Content, "- researcher: Capabilities: research, web_search")
	})

	t.Run("free text answer", func(t *testing.T) {
		p := mocks.NewMockProvider().WithResponse("I would give this to the Writer agent.")
		e := newTestEngine(t, WithProvider(p, "m"))

		d, err := e.Route(ctx, "draft a post", both, StrategyLLM, nil)
		require.NoError(t, err)
		assert.Equal(t, "writer", d.Target)
		assert.Equal(t, 0.6, d.Confidence)
		assert.Equal(t, StrategyLLM, d.Strategy)
	})

	t.Run("unknown agent falls back to first", func(t *testing.T) {
		p := mocks.NewMockProvider().WithResponse(`{"chosen_agent":"nobody"}`)
		e := newTestEngine(t, WithProvider(p, "m"))

		d, err := e.Route(ctx, "draft a post", both, StrategyLLM, nil)
		require.NoError(t, err)
		assert.Equal(t, "researcher", d.Target)
		assert.Equal(t, 0.6, d.Confidence)
	})

	t.Run("provider error falls back to round robin", func(t *testing.T) {
		p := mocks.NewMockProvider().WithError(errors.New("boom"))
		e := newTestEngine(t, WithProvider(p, "m"))

		d1, err := e.Route(ctx, "task", both, StrategyLLM, nil)
		require.NoError(t, err)
		d2, err := e.Route(ctx, "task", both, StrategyLLM, nil)
		require.NoError(t, err)

		assert.Equal(t, StrategyRoundRobin, d1.Strategy)
		assert.Equal(t, 0.3, d1.Confidence)
		assert.Equal(t, "researcher", d1.Target)
		assert.Equal(t, "writer", d2.Target)
		assert.Contains(t, d1.Reasoning, "boom")
		assert.Equal(t, "llm", d1.Metadata["requested_strategy"])
	})

	t.Run("no provider", func(t *testing.T) {
		e := newTestEngine(t)
		d, err := e.Route(ctx, "task", both, StrategyLLM, nil)
		require.NoError(t, err)
		assert.Equal(t, StrategyRoundRobin, d.Strategy)
		assert.Contains(t, d.Reasoning, ErrNoProvider.Error())
	})
}

func TestHistoryAndStatistics(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []Decision
	)
	e := newTestEngine(t,
		WithHistoryLimit(3),
		WithObserver(func(d Decision) {
			mu.Lock()
			observed = append(observed, d)
			mu.Unlock()
		}))
	ctx := context.Background()

	assert.Equal(t, 0, e.Statistics().TotalDecisions)

	for i := 0; i < 4; i++ {
		_, err := e.Route(ctx, "Write an article", both, StrategyKeyword, nil)
		require.NoError(t, err)
	}
	_, err := e.Route(ctx, "anything", []string{"researcher"}, StrategyWorkload, nil)
	require.NoError(t, err)

	assert.Len(t, observed, 5)
	assert.Len(t, e.History(0), 3)
	last := e.History(1)
	require.Len(t, last, 1)
	assert.Equal(t, StrategyWorkload, last[0].Strategy)

	stats := e.Statistics()
	assert.Equal(t, 3, stats.TotalDecisions)
	assert.Equal(t, map[string]int{"keyword": 2, "workload": 1}, stats.StrategyDistribution)
	assert.Equal(t, map[string]int{"researcher": 1, "writer": 2}, stats.AgentUtilization)
	assert.Len(t, stats.Agents, 2)
	assert.Greater(t, stats.AverageConfidence, 0.0)
}

func TestExtractTaskKeywords(t *testing.T) {
	got := ExtractTaskKeywords("The quick analysis of an AI model, and the data is big!")
	assert.Equal(t, []string{"quick", "analysis", "model", "data", "big"}, got)

	long := strings.Repeat("alpha ", 15)
	assert.Len(t, ExtractTaskKeywords(long), 10)
	assert.True(t, IsStopWord("The"))
}

func TestExtractTaskKeywords_Unicode(t *testing.T) {
	tests := []struct {
		task string
		want []string
	}{
		{task: "realizar análisis de datos", want: []string{"realizar", "análisis", "datos"}},
		{task: "Überprüfung für Daten", want: []string{"überprüfung", "für", "daten"}},
		// 按字符而非字节计算长度
		{task: "请 做 研究报告 分析", want: []string{"研究报告"}},
		{task: "çé ñ", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTaskKeywords(tt.task))
		})
	}
}

func TestRoute_CapabilityNonASCII(t *testing.T) {
	e := NewEngine(WithLogger(zap.NewNop()))
	require.NoError(t, e.RegisterAgent(*NewAgentCapability("analyst", "Análisis")))
	require.NoError(t, e.RegisterAgent(*NewAgentCapability("writer", "writing")))

	d, err := e.Route(context.Background(), "realizar análisis de datos", []string{"writer", "analyst"}, StrategyCapability, nil)
	require.NoError(t, err)
	assert.Equal(t, "analyst", d.Target)
	scores := d.Metadata["scores"].(map[string]float64)
	assert.Greater(t, scores["analyst"], scores["writer"])
}

func TestEngine_ConcurrentAccess(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.UpdateWorkload("researcher", 1)
			_, _ = e.Route(ctx, "research", both, StrategyHybrid, nil)
			e.UpdatePerformance("researcher", float64(i), i%2 == 0)
			e.UpdateWorkload("researcher", -1)
			_ = e.Statistics()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, e.Statistics().TotalDecisions)
	a, _ := e.Agent("researcher")
	assert.Equal(t, 0, a.CurrentWorkload)
}
