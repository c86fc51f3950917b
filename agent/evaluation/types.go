package evaluation

import (
	"fmt"
	"time"
)

// Dimension 评估维度
type Dimension string

const (
	DimensionTaskCompletion             Dimension = "task_completion"
	DimensionCollaborationEffectiveness Dimension = "collaboration_effectiveness"
	DimensionResourceUtilization        Dimension = "resource_utilization"
	DimensionResponseCoherence          Dimension = "response_coherence"
	DimensionScalabilityPerformance     Dimension = "scalability_performance"
	DimensionErrorHandling              Dimension = "error_handling"
)

// AllDimensions 返回全部维度（固定顺序）
func AllDimensions() []Dimension {
	return []Dimension{
		DimensionTaskCompletion,
		DimensionCollaborationEffectiveness,
		DimensionResourceUtilization,
		DimensionResponseCoherence,
		DimensionScalabilityPerformance,
		DimensionErrorHandling,
	}
}

// ParseDimension 解析维度名
func ParseDimension(s string) (Dimension, error) {
	for _, d := range AllDimensions() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown evaluation dimension %q", s)
}

// ScenarioType 场景类型
type ScenarioType string

const (
	ScenarioSimpleTask      ScenarioType = "simple_task"
	ScenarioComplexWorkflow ScenarioType = "complex_workflow"
	ScenarioEdgeCase        ScenarioType = "edge_case"
	ScenarioComparativeTest ScenarioType = "comparative_test"
	ScenarioLoadTest        ScenarioType = "load_test"
)

// Difficulty 难度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Scenario 单个测试场景
type Scenario struct {
	Name            string        `json:"name"`
	Type            ScenarioType  `json:"type"`
	Difficulty      Difficulty    `json:"difficulty"`
	Prompt          string        `json:"prompt"`
	ExpectedOutcome string        `json:"expected_outcome,omitempty"`
	Timeout         time.Duration `json:"timeout"`
	Domain          string        `json:"domain"`
	Tags            []string      `json:"tags,omitempty"`
}

// dimensionRelevance 每个维度参考哪些场景类型的结果
var dimensionRelevance = map[Dimension][]ScenarioType{
	DimensionTaskCompletion:             {ScenarioSimpleTask, ScenarioComplexWorkflow},
	DimensionCollaborationEffectiveness: {ScenarioComplexWorkflow, ScenarioLoadTest},
	DimensionResourceUtilization:        {ScenarioLoadTest, ScenarioComplexWorkflow},
	DimensionResponseCoherence:          {ScenarioSimpleTask, ScenarioComplexWorkflow},
	DimensionScalabilityPerformance:     {ScenarioLoadTest},
	DimensionErrorHandling:              {ScenarioEdgeCase},
}

// DimensionScore 单个维度的评分
type DimensionScore struct {
	Dimension   Dimension `json:"dimension"`
	Score       float64   `json:"score"`
	RawScore    int       `json:"raw_score"`
	Reasoning   string    `json:"reasoning"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// TestResult 单个场景的执行结果
type TestResult struct {
	ScenarioName    string        `json:"scenario_name"`
	ScenarioType    ScenarioType  `json:"scenario_type"`
	Success         bool          `json:"success"`
	ExecutionTime   time.Duration `json:"execution_time"`
	Response        string        `json:"response"`
	ExpectedOutcome string        `json:"expected_outcome,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	TokensUsed      int           `json:"tokens_used,omitempty"`
	// Metrics 客观指标（accuracy、latency 等），0-1
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Result 一次团队评估的完整结果
type Result struct {
	ID              string                `json:"id"`
	TeamID          string                `json:"team_id,omitempty"`
	TeamName        string                `json:"team_name"`
	OverallScore    float64               `json:"overall_score"`
	Grade           string                `json:"grade"`
	DimensionScores map[Dimension]float64 `json:"dimension_scores"`
	Dimensions      []DimensionScore      `json:"dimensions"`
	TestResults     []TestResult          `json:"test_results"`
	MetricAverages  map[string]float64    `json:"metric_averages,omitempty"`
	EvaluationTime  time.Duration         `json:"evaluation_time"`
	Timestamp       time.Time             `json:"timestamp"`
	Recommendations []string              `json:"recommendations"`
	Warnings        []string              `json:"warnings"`
}

// SuccessRate 场景成功率
func (r *Result) SuccessRate() float64 {
	if len(r.TestResults) == 0 {
		return 0
	}
	n := 0
	for _, t := range r.TestResults {
		if t.Success {
			n++
		}
	}
	return float64(n) / float64(len(r.TestResults))
}

// Grade 把 0-1 分数换算为等级
func Grade(score float64) string {
	switch {
	case score >= 0.9:
		return "A+"
	case score >= 0.8:
		return "A"
	case score >= 0.7:
		return "B"
	case score >= 0.6:
		return "C"
	case score >= 0.5:
		return "D"
	default:
		return "F"
	}
}
