package validation

import "time"

// Severity 问题严重程度
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// penalty 每个问题按 penalty*confidence 扣分
func (s Severity) penalty() float64 {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 8
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 1
	default:
		return 5
	}
}

// Category 问题类别
type Category string

const (
	CategoryRoutingLogic            Category = "routing_logic"
	CategoryCapabilityAlignment     Category = "capability_alignment"
	CategoryPromptClarity           Category = "prompt_clarity"
	CategoryFallbackHandling        Category = "fallback_handling"
	CategoryPerformanceOptimization Category = "performance_optimization"
	CategoryStructureValidation     Category = "structure_validation"
)

// Issue 配置中发现的一个问题
type Issue struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Location    string   `json:"location"`
	Suggestion  string   `json:"suggestion"`
	AutoFixable bool     `json:"auto_fixable"`
	Confidence  float64  `json:"confidence"`
}

// Report 层级配置校验报告
type Report struct {
	OverallScore        float64        `json:"overall_score"`
	Issues              []Issue        `json:"issues"`
	RoutingClarityScore float64        `json:"routing_clarity_score"`
	CapabilityCoverage  float64        `json:"capability_coverage"`
	PromptQuality       float64        `json:"prompt_quality"`
	Suggestions         []string       `json:"suggestions"`
	OptimizedConfig     map[string]any `json:"optimized_config,omitempty"`
	ValidatedAt         time.Time      `json:"validated_at"`
}

// CountBySeverity 按严重程度统计问题数
func (r *Report) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int)
	for _, issue := range r.Issues {
		out[issue.Severity]++
	}
	return out
}

// agentAnalysis 单个 Coordinator / Supervisor 的分析结果
type agentAnalysis struct {
	id             string
	kind           string
	routingClarity float64
	issues         []Issue
}

func (a agentAnalysis) promptQuality() float64 {
	return min(a.routingClarity+0.1, 1.0)
}
