package routing

import (
	"fmt"
	"strings"
	"time"
)

// Strategy 路由策略
type Strategy string

const (
	StrategyKeyword     Strategy = "keyword"
	StrategyLLM         Strategy = "llm"
	StrategyRule        Strategy = "rule"
	StrategyCapability  Strategy = "capability"
	StrategyWorkload    Strategy = "workload"
	StrategyPerformance Strategy = "performance"
	StrategyHybrid      Strategy = "hybrid"

	// StrategyRoundRobin 仅出现在策略失败后的回退决策中
	StrategyRoundRobin Strategy = "round_robin"
)

// Strategies 返回可配置的路由策略
func Strategies() []Strategy {
	return []Strategy{
		StrategyKeyword, StrategyLLM, StrategyRule, StrategyCapability,
		StrategyWorkload, StrategyPerformance, StrategyHybrid,
	}
}

// ParseStrategy 解析策略名，兼容 "capability_based" 这类带后缀的写法
func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimSuffix(name, "_based")
	name = strings.TrimSuffix(name, "-based")
	for _, st := range Strategies() {
		if string(st) == name {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown routing strategy %q", s)
}

// AgentCapability 路由视角下的 Agent 描述与运行指标
type AgentCapability struct {
	AgentID                string   `json:"agent_id"`
	Capabilities           []string `json:"capabilities"`
	CurrentWorkload        int      `json:"current_workload"`
	MaxWorkload            int      `json:"max_workload"`
	AverageResponseTime    float64  `json:"average_response_time"`
	SuccessRate            float64  `json:"success_rate"`
	SpecializationKeywords []string `json:"specialization_keywords"`
	Priority               int      `json:"priority"`
}

// NewAgentCapability 使用默认指标创建 AgentCapability
func NewAgentCapability(agentID string, capabilities ...string) *AgentCapability {
	return &AgentCapability{
		AgentID:      agentID,
		Capabilities: capabilities,
		MaxWorkload:  10,
		SuccessRate:  1.0,
		Priority:     1,
	}
}

// Availability 剩余容量比例，MaxWorkload<=0 时为 0
func (a *AgentCapability) Availability() float64 {
	if a.MaxWorkload <= 0 {
		return 0
	}
	return max(0, 1-float64(a.CurrentWorkload)/float64(a.MaxWorkload))
}

// PerformanceScore 综合成功率、响应时间（60s 归一化）与可用度
func (a *AgentCapability) PerformanceScore() float64 {
	timeScore := max(0, 1-a.AverageResponseTime/60)
	return a.SuccessRate*0.5 + timeScore*0.2 + a.Availability()*0.3
}

func (a *AgentCapability) clone() *AgentCapability {
	c := *a
	c.Capabilities = append([]string(nil), a.Capabilities...)
	c.SpecializationKeywords = append([]string(nil), a.SpecializationKeywords...)
	return &c
}

// Alternative 候选目标及其在对应策略下的得分
type Alternative struct {
	AgentID string  `json:"agent_id"`
	Score   float64 `json:"score"`
}

// Decision 一次路由决策
type Decision struct {
	Target       string         `json:"target"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning"`
	Strategy     Strategy       `json:"strategy"`
	Alternatives []Alternative  `json:"alternatives,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Statistics 路由统计
type Statistics struct {
	TotalDecisions       int               `json:"total_decisions"`
	StrategyDistribution map[string]int    `json:"strategy_distribution"`
	AverageConfidence    float64           `json:"average_confidence"`
	AgentUtilization     map[string]int    `json:"agent_utilization"`
	Agents               []AgentCapability `json:"agents,omitempty"`
}
