package routing

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

var propertyCapabilities = []string{"research", "web_search", "writing", "coding", "analysis", "data", "support"}

func genAgentCapability(id string) *rapid.Generator[AgentCapability] {
	return rapid.Custom(func(t *rapid.T) AgentCapability {
		return AgentCapability{
			AgentID:                id,
			Capabilities:           rapid.SliceOfNDistinct(rapid.SampledFrom(propertyCapabilities), 0, 5, rapid.ID[string]).Draw(t, "capabilities"),
			CurrentWorkload:        rapid.IntRange(0, 20).Draw(t, "workload"),
			MaxWorkload:            rapid.IntRange(0, 15).Draw(t, "max_workload"),
			AverageResponseTime:    rapid.Float64Range(0, 300).Draw(t, "response_time"),
			SuccessRate:            rapid.Float64Range(0.1, 1).Draw(t, "success_rate"),
			SpecializationKeywords: rapid.SliceOfN(rapid.SampledFrom([]string{"search", "write", "chart", "debug"}), 0, 3).Draw(t, "keywords"),
			Priority:               rapid.IntRange(0, 5).Draw(t, "priority"),
		}
	})
}

// 属性: 任意 Agent 组合与策略下，目标总在候选集中，置信度落在 [0,1]
func TestProperty_RouteTargetAndConfidenceBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := NewEngine()
		n := rapid.IntRange(1, 6).Draw(rt, "agents")
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("agent_%d", i)
			c := genAgentCapability(id).Draw(rt, id)
			if err := e.RegisterAgent(c); err != nil {
				rt.Fatalf("register: %v", err)
			}
			ids = append(ids, id)
		}

		task := rapid.StringMatching(`[a-z ]{0,120}`).Draw(rt, "task")
		strategy := rapid.SampledFrom([]Strategy{
			StrategyKeyword, StrategyRule, StrategyCapability,
			StrategyWorkload, StrategyPerformance, StrategyHybrid,
		}).Draw(rt, "strategy")

		d, err := e.Route(context.Background(), task, ids, strategy, nil)
		if err != nil {
			rt.Fatalf("route: %v", err)
		}
		if !slices.Contains(ids, d.Target) {
			rt.Fatalf("target %q not among candidates", d.Target)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			rt.Fatalf("confidence out of range: %v", d.Confidence)
		}
		if d.Strategy != strategy {
			rt.Fatalf("strategy %s reported as %s", strategy, d.Strategy)
		}
	})
}

// 属性: 性能更新后成功率保持在 [0.1,1]，可用度与性能分保持在 [0,1]
func TestProperty_PerformanceUpdatesStayBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := NewEngine()
		c := genAgentCapability("a").Draw(rt, "agent")
		if err := e.RegisterAgent(c); err != nil {
			rt.Fatalf("register: %v", err)
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			e.UpdatePerformance("a", rapid.Float64Range(0, 200).Draw(rt, "rt"), rapid.Bool().Draw(rt, "ok"))
			e.UpdateWorkload("a", rapid.IntRange(-3, 3).Draw(rt, "delta"))
		}

		a, _ := e.Agent("a")
		if a.SuccessRate < 0.1 || a.SuccessRate > 1 {
			rt.Fatalf("success rate out of range: %v", a.SuccessRate)
		}
		if a.CurrentWorkload < 0 {
			rt.Fatalf("negative workload: %d", a.CurrentWorkload)
		}
		if av := a.Availability(); av < 0 || av > 1 {
			rt.Fatalf("availability out of range: %v", av)
		}
		if p := a.PerformanceScore(); p < 0 || p > 1+1e-9 {
			rt.Fatalf("performance score out of range: %v", p)
		}
	})
}
