package evaluation

import (
	"context"
	"errors"
	"strings"
)

// ErrMetricNotApplicable 场景缺少指标所需的数据，该指标不计入结果
var ErrMetricNotApplicable = errors.New("metric not applicable")

// Metric 单个场景的客观指标，分数范围 0-1
type Metric interface {
	Name() string
	Compute(ctx context.Context, s Scenario, r *TestResult) (float64, error)
}

// MetricRegistry 指标注册表，按注册顺序计算
type MetricRegistry struct {
	metrics []Metric
}

// NewMetricRegistry 创建空注册表
func NewMetricRegistry(metrics ...Metric) *MetricRegistry {
	r := &MetricRegistry{}
	for _, m := range metrics {
		r.Register(m)
	}
	return r
}

// Register 注册指标，同名指标被替换
func (r *MetricRegistry) Register(metric Metric) {
	for i, m := range r.metrics {
		if m.Name() == metric.Name() {
			r.metrics[i] = metric
			return
		}
	}
	r.metrics = append(r.metrics, metric)
}

// List 指标名称
func (r *MetricRegistry) List() []string {
	names := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		names[i] = m.Name()
	}
	return names
}

// ComputeAll 计算全部指标。不适用或出错的指标不写入结果。
func (r *MetricRegistry) ComputeAll(ctx context.Context, s Scenario, tr *TestResult) map[string]float64 {
	if r == nil || len(r.metrics) == 0 {
		return nil
	}
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		v, err := m.Compute(ctx, s, tr)
		if err != nil {
			continue
		}
		out[m.Name()] = clamp01(v)
	}
	return out
}

// NewRegistryWithBuiltinMetrics accuracy、latency、token_efficiency
func NewRegistryWithBuiltinMetrics() *MetricRegistry {
	return NewMetricRegistry(NewAccuracyMetric(), LatencyMetric{}, NewTokenEfficiencyMetric(0))
}

// AverageMetrics 按指标名求平均，只统计出现过该指标的场景
func AverageMetrics(results []TestResult) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range results {
		for name, v := range r.Metrics {
			sums[name] += v
			counts[name]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sums))
	for name, sum := range sums {
		out[name] = sum / float64(counts[name])
	}
	return out
}

// =============================================================================
// 内置指标
// =============================================================================

// AccuracyMetric 响应与期望结果的相似度。
// UseContains 时响应包含期望结果即为满分，否则按字符编辑距离计算。
type AccuracyMetric struct {
	CaseSensitive bool
	UseContains   bool
}

// NewAccuracyMetric 默认忽略大小写并接受包含匹配
func NewAccuracyMetric() *AccuracyMetric {
	return &AccuracyMetric{UseContains: true}
}

// Name 指标名
func (m *AccuracyMetric) Name() string { return "accuracy" }

// Compute 场景没有期望结果时不适用
func (m *AccuracyMetric) Compute(_ context.Context, s Scenario, r *TestResult) (float64, error) {
	expected := strings.TrimSpace(s.ExpectedOutcome)
	if expected == "" || r == nil {
		return 0, ErrMetricNotApplicable
	}
	actual := strings.TrimSpace(r.Response)
	if !m.CaseSensitive {
		expected = strings.ToLower(expected)
		actual = strings.ToLower(actual)
	}
	if expected == actual || (m.UseContains && strings.Contains(actual, expected)) {
		return 1, nil
	}
	return stringSimilarity(expected, actual), nil
}

// LatencyMetric 1 - 耗时/场景超时
type LatencyMetric struct{}

// Name 指标名
func (LatencyMetric) Name() string { return "latency" }

// Compute 场景未设置超时时使用默认超时
func (LatencyMetric) Compute(_ context.Context, s Scenario, r *TestResult) (float64, error) {
	if r == nil {
		return 0, ErrMetricNotApplicable
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultScenarioTimeout
	}
	return 1 - r.ExecutionTime.Seconds()/timeout.Seconds(), nil
}

const defaultTokenBudget = 4000

// TokenEfficiencyMetric 1 - 令牌用量/预算
type TokenEfficiencyMetric struct {
	MaxTokens int
}

// NewTokenEfficiencyMetric maxTokens<=0 时预算为 4000
func NewTokenEfficiencyMetric(maxTokens int) *TokenEfficiencyMetric {
	if maxTokens <= 0 {
		maxTokens = defaultTokenBudget
	}
	return &TokenEfficiencyMetric{MaxTokens: maxTokens}
}

// Name 指标名
func (m *TokenEfficiencyMetric) Name() string { return "token_efficiency" }

// Compute provider 未上报用量时不适用
func (m *TokenEfficiencyMetric) Compute(_ context.Context, _ Scenario, r *TestResult) (float64, error) {
	if r == nil || r.TokensUsed <= 0 {
		return 0, ErrMetricNotApplicable
	}
	return 1 - float64(r.TokensUsed)/float64(m.MaxTokens), nil
}

// stringSimilarity 按 rune 计算的归一化 Levenshtein 相似度
func stringSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		if len(ra) == len(rb) {
			return 1
		}
		return 0
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return 1 - float64(prev[len(rb)])/float64(max(len(ra), len(rb)))
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
