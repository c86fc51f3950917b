package routing

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

type scored struct {
	id    string
	score float64
}

// rankDesc 稳定降序排序，同分保持输入顺序
func rankDesc(items []scored) []scored {
	out := append([]scored(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func alternativesOf(ranked []scored, from, to int) []Alternative {
	if from >= len(ranked) {
		return nil
	}
	to = min(to, len(ranked))
	out := make([]Alternative, 0, to-from)
	for _, s := range ranked[from:to] {
		out = append(out, Alternative{AgentID: s.id, Score: s.score})
	}
	return out
}

func scoreMap(items []scored) map[string]float64 {
	out := make(map[string]float64, len(items))
	for _, s := range items {
		out[s.id] = s.score
	}
	return out
}

// --- keyword ---

func (e *Engine) routeKeyword(task string, agents []*AgentCapability) *Decision {
	taskLower := strings.ToLower(task)
	scores := make([]scored, 0, len(agents))

	for _, a := range agents {
		caps := lowerAll(a.Capabilities)
		score := 0.0
		for _, c := range caps {
			if c != "" && strings.Contains(taskLower, c) {
				score += 2
			}
		}
		for _, kw := range a.SpecializationKeywords {
			if kw != "" && strings.Contains(taskLower, strings.ToLower(kw)) {
				score += 3
			}
		}
		for _, m := range e.mappings {
			if !slices.Contains(caps, m.Category) {
				continue
			}
			for _, w := range m.Words {
				if strings.Contains(taskLower, w) {
					score++
				}
			}
		}
		scores = append(scores, scored{a.AgentID, score})
	}

	ranked := rankDesc(scores)
	best := ranked[0]
	second := 0.0
	if len(ranked) > 1 {
		second = ranked[1].score
	}

	return &Decision{
		Target:       best.id,
		Confidence:   min(0.9, best.score/max(1, best.score+second)),
		Reasoning:    fmt.Sprintf("Keyword matching: %g points for %s", best.score, best.id),
		Strategy:     StrategyKeyword,
		Alternatives: alternativesOf(ranked, 1, 3),
		Metadata:     map[string]any{"scores": scoreMap(scores)},
	}
}

// --- rule ---

type rule struct {
	name       string
	condition  func(taskLower string, rctx map[string]any) bool
	filter     func(a *AgentCapability) bool
	confidence float64
	reasoning  string
}

func ctxEquals(rctx map[string]any, key, want string) bool {
	v, ok := rctx[key]
	if !ok || v == nil {
		return false
	}
	return strings.EqualFold(fmt.Sprint(v), want)
}

func defaultRules() []rule {
	return []rule{
		{
			name: "urgent_high_priority",
			condition: func(task string, rctx map[string]any) bool {
				return ctxEquals(rctx, "priority", "high") || strings.Contains(task, "urgent")
			},
			filter:     func(a *AgentCapability) bool { return a.PerformanceScore() > 0.8 },
			confidence: 0.9,
			reasoning:  "High priority task routed to high-performance agent",
		},
		{
			name: "simple_task_available_agent",
			condition: func(task string, _ map[string]any) bool {
				return len(strings.Fields(task)) < 10
			},
			filter:     func(a *AgentCapability) bool { return a.Availability() > 0.7 },
			confidence: 0.7,
			reasoning:  "Simple task routed to available agent",
		},
		{
			name: "complex_task_expert",
			condition: func(task string, rctx map[string]any) bool {
				return len(strings.Fields(task)) > 50 || ctxEquals(rctx, "complexity", "high")
			},
			filter: func(a *AgentCapability) bool {
				return a.PerformanceScore() > 0.7 && len(a.Capabilities) > 3
			},
			confidence: 0.85,
			reasoning:  "Complex task routed to expert agent",
		},
	}
}

func (e *Engine) routeRule(task string, agents []*AgentCapability, rctx map[string]any) *Decision {
	taskLower := strings.ToLower(task)

	for _, r := range e.rules {
		if !r.condition(taskLower, rctx) {
			continue
		}
		for _, a := range agents {
			if r.filter(a) {
				return &Decision{
					Target:     a.AgentID,
					Confidence: r.confidence,
					Reasoning:  r.reasoning,
					Strategy:   StrategyRule,
					Metadata:   map[string]any{"rule": r.name},
				}
			}
		}
	}

	return &Decision{
		Target:     agents[0].AgentID,
		Confidence: 0.3,
		Reasoning:  "No rules matched, using first available agent",
		Strategy:   StrategyRule,
	}
}

// --- capability ---

func routeCapability(task string, agents []*AgentCapability) *Decision {
	keywords := ExtractTaskKeywords(task)
	taskLower := strings.ToLower(task)
	scores := make([]scored, 0, len(agents))

	for _, a := range agents {
		caps := lowerAll(a.Capabilities)
		score := 0.0
		for _, kw := range keywords {
			if slices.Contains(caps, kw) {
				score += 5
			}
		}
		for _, spec := range a.SpecializationKeywords {
			if spec != "" && strings.Contains(taskLower, strings.ToLower(spec)) {
				score += 3
			}
		}
		score += float64(a.Priority)
		scores = append(scores, scored{a.AgentID, score})
	}

	best := rankDesc(scores)[0]
	confidence := 0.0
	if best.score > 0 {
		confidence = min(0.95, best.score/(best.score+3))
	}

	return &Decision{
		Target:     best.id,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Best capability match with score %g", best.score),
		Strategy:   StrategyCapability,
		Metadata:   map[string]any{"scores": scoreMap(scores), "task_keywords": keywords},
	}
}

// --- workload / performance ---

func routeWorkload(agents []*AgentCapability) *Decision {
	items := make([]scored, 0, len(agents))
	for _, a := range agents {
		items = append(items, scored{a.AgentID, a.Availability()})
	}
	ranked := rankDesc(items)
	best := ranked[0]

	return &Decision{
		Target:       best.id,
		Confidence:   best.score * 0.8,
		Reasoning:    fmt.Sprintf("Best availability: %.2f", best.score),
		Strategy:     StrategyWorkload,
		Alternatives: alternativesOf(ranked, 1, 3),
		Metadata:     map[string]any{"availabilities": scoreMap(items)},
	}
}

func routePerformance(agents []*AgentCapability) *Decision {
	items := make([]scored, 0, len(agents))
	for _, a := range agents {
		items = append(items, scored{a.AgentID, a.PerformanceScore()})
	}
	ranked := rankDesc(items)
	best := ranked[0]

	return &Decision{
		Target:       best.id,
		Confidence:   best.score * 0.9,
		Reasoning:    fmt.Sprintf("Best performance score: %.2f", best.score),
		Strategy:     StrategyPerformance,
		Alternatives: alternativesOf(ranked, 1, 3),
		Metadata:     map[string]any{"performance_scores": scoreMap(items)},
	}
}

// --- hybrid ---

var hybridWeights = []struct {
	strategy Strategy
	weight   float64
}{
	{StrategyCapability, 0.4},
	{StrategyPerformance, 0.3},
	{StrategyWorkload, 0.2},
	{StrategyKeyword, 0.1},
}

func (e *Engine) routeHybrid(task string, agents []*AgentCapability) *Decision {
	decisions := make(map[Strategy]*Decision, len(hybridWeights))
	for _, hw := range hybridWeights {
		switch hw.strategy {
		case StrategyCapability:
			decisions[hw.strategy] = routeCapability(task, agents)
		case StrategyPerformance:
			decisions[hw.strategy] = routePerformance(agents)
		case StrategyWorkload:
			decisions[hw.strategy] = routeWorkload(agents)
		case StrategyKeyword:
			decisions[hw.strategy] = e.routeKeyword(task, agents)
		}
	}

	weighted := make([]scored, 0, len(agents))
	for _, a := range agents {
		score := 0.0
		for _, hw := range hybridWeights {
			d := decisions[hw.strategy]
			if d.Target == a.AgentID {
				score += d.Confidence * hw.weight
				continue
			}
			for _, alt := range d.Alternatives {
				if alt.AgentID == a.AgentID {
					score += (alt.Score / 10) * hw.weight * 0.5
					break
				}
			}
		}
		weighted = append(weighted, scored{a.AgentID, score})
	}

	ranked := rankDesc(weighted)
	best := ranked[0]

	contributing := make([]string, 0, len(hybridWeights))
	targets := make(map[string]string, len(hybridWeights))
	for _, hw := range hybridWeights {
		contributing = append(contributing, string(hw.strategy))
		targets[string(hw.strategy)] = decisions[hw.strategy].Target
	}

	return &Decision{
		Target:       best.id,
		Confidence:   min(0.95, best.score),
		Reasoning:    "Hybrid decision combining: " + strings.Join(contributing, ", "),
		Strategy:     StrategyHybrid,
		Alternatives: alternativesOf(ranked, 1, 3),
		Metadata: map[string]any{
			"strategy_decisions": targets,
			"weighted_scores":    scoreMap(weighted),
		},
	}
}
