package evaluation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentteams/agent/hierarchical"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/types"
)

const (
	failureRateThreshold   = 0.3
	slowResponseSeconds    = 30.0
	criticalDimension      = 0.4
	poorDimension          = 0.6
	errorRateThreshold     = 0.2
	defaultScenarioTimeout = 120 * time.Second
)

// Runner 被评估的团队运行时，*hierarchical.Team 满足该接口
type Runner interface {
	Run(ctx context.Context, input string, params map[string]any) (*hierarchical.RunResult, error)
}

// RunnerFunc 函数适配器
type RunnerFunc func(ctx context.Context, input string, params map[string]any) (*hierarchical.RunResult, error)

// Run 实现 Runner
func (f RunnerFunc) Run(ctx context.Context, input string, params map[string]any) (*hierarchical.RunResult, error) {
	return f(ctx, input, params)
}

// TeamEvaluator 运行场景并按维度评分
type TeamEvaluator struct {
	judge       *LLMJudge
	metrics     *MetricRegistry
	concurrency int
	observer    func(*Result)
	logger      *zap.Logger
}

// EvaluatorOption 评估器选项
type EvaluatorOption func(*TeamEvaluator)

// WithConcurrency 并发执行的场景数上限
func WithConcurrency(n int) EvaluatorOption {
	return func(e *TeamEvaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithMetrics 替换场景指标注册表，nil 表示不计算指标
func WithMetrics(registry *MetricRegistry) EvaluatorOption {
	return func(e *TeamEvaluator) { e.metrics = registry }
}

// WithObserver 每次评估完成后回调
func WithObserver(fn func(*Result)) EvaluatorOption {
	return func(e *TeamEvaluator) { e.observer = fn }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) EvaluatorOption {
	return func(e *TeamEvaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewTeamEvaluator 创建评估器
func NewTeamEvaluator(judge *LLMJudge, opts ...EvaluatorOption) *TeamEvaluator {
	e := &TeamEvaluator{
		judge:       judge,
		metrics:     NewRegistryWithBuiltinMetrics(),
		concurrency: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.judge == nil {
		e.judge = NewLLMJudge(nil, DefaultJudgeConfig(), e.logger)
	}
	e.logger = e.logger.With(zap.String("component", "team_evaluator"))
	return e
}

// Evaluate 执行全部场景并对每个维度评分。dims 为空时评估全部维度。
func (e *TeamEvaluator) Evaluate(ctx context.Context, cfg *teamconfig.HierarchicalConfig, runner Runner, scenarios []Scenario, dims []Dimension) (*Result, error) {
	if runner == nil {
		return nil, types.NewInvalidRequestError("team runtime is required")
	}
	if len(scenarios) == 0 {
		return nil, types.NewInvalidRequestError("at least one scenario is required")
	}
	if len(dims) == 0 {
		dims = AllDimensions()
	}

	start := time.Now()
	results, err := e.runScenarios(ctx, runner, scenarios)
	if err != nil {
		return nil, err
	}

	dctxBase := DimensionContext{
		TeamName:         "Unknown Team",
		SuccessRate:      successRate(results),
		AvgExecutionTime: avgSeconds(results),
	}
	if cfg != nil {
		if cfg.Team.Name != "" {
			dctxBase.TeamName = cfg.Team.Name
		}
		dctxBase.TeamsCount = len(cfg.Teams)
		dctxBase.WorkersCount = cfg.WorkerCount()
	}

	scores, err := e.judgeDimensions(ctx, dims, dctxBase, results)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:              uuid.New().String(),
		TeamName:        dctxBase.TeamName,
		DimensionScores: make(map[Dimension]float64, len(scores)),
		Dimensions:      scores,
		TestResults:     results,
		MetricAverages:  AverageMetrics(results),
		Recommendations: recommendations(scores, results),
		Warnings:        warnings(scores, results),
	}
	var total float64
	for _, s := range scores {
		res.DimensionScores[s.Dimension] = s.Score
		total += s.Score
	}
	res.OverallScore = total / float64(len(scores))
	res.Grade = Grade(res.OverallScore)
	res.Timestamp = time.Now()
	res.EvaluationTime = res.Timestamp.Sub(start)

	e.logger.Info("team evaluated",
		zap.String("team", res.TeamName),
		zap.Float64("overall_score", res.OverallScore),
		zap.String("grade", res.Grade),
		zap.Int("scenarios", len(results)))

	if e.observer != nil {
		e.observer(res)
	}
	return res, nil
}

// runScenarios 并发执行场景，结果保持输入顺序
func (e *TeamEvaluator) runScenarios(ctx context.Context, runner Runner, scenarios []Scenario) ([]TestResult, error) {
	results := make([]TestResult, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, s := range scenarios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.runScenario(gctx, runner, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *TeamEvaluator) runScenario(ctx context.Context, runner Runner, s Scenario) TestResult {
	tr := TestResult{
		ScenarioName:    s.Name,
		ScenarioType:    s.Type,
		ExpectedOutcome: s.ExpectedOutcome,
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultScenarioTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := runner.Run(sctx, s.Prompt, map[string]any{"evaluation_scenario": s.Name})
	tr.ExecutionTime = time.Since(start)

	if err != nil {
		tr.Success = false
		if errors.Is(err, context.DeadlineExceeded) {
			tr.ErrorMessage = fmt.Sprintf("Scenario timed out after %s", timeout)
		} else {
			tr.ErrorMessage = err.Error()
		}
		if out != nil {
			tr.Response = out.Response
		}
		e.logger.Debug("scenario failed", zap.String("scenario", s.Name), zap.Error(err))
		return tr
	}

	if out != nil {
		tr.Response = out.Response
		tr.TokensUsed = out.Usage.TotalTokens
	}
	tr.Success = e.judge.ScenarioSuccess(ctx, s, tr.Response)
	tr.Metrics = e.metrics.ComputeAll(ctx, s, &tr)
	return tr
}

// judgeDimensions 并行评判各维度，结果按 dims 顺序
func (e *TeamEvaluator) judgeDimensions(ctx context.Context, dims []Dimension, base DimensionContext, results []TestResult) ([]DimensionScore, error) {
	scores := make([]DimensionScore, len(dims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, d := range dims {
		g.Go(func() error {
			dctx := base
			dctx.Results = relevantResults(d, results)
			scores[i] = e.judge.JudgeDimension(gctx, d, dctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func relevantResults(d Dimension, results []TestResult) []TestResult {
	kinds := dimensionRelevance[d]
	var out []TestResult
	for _, r := range results {
		if slices.Contains(kinds, r.ScenarioType) {
			out = append(out, r)
		}
	}
	return out
}

func successRate(results []TestResult) float64 {
	if len(results) == 0 {
		return 0
	}
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return float64(n) / float64(len(results))
}

func avgSeconds(results []TestResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range results {
		total += r.ExecutionTime
	}
	return total.Seconds() / float64(len(results))
}

// recommendations 去重并保持出现顺序
func recommendations(scores []DimensionScore, results []TestResult) []string {
	out := []string{}
	add := func(s string) {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}

	for _, s := range scores {
		if s.Score < poorDimension {
			for _, sug := range s.Suggestions {
				add(sug)
			}
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if float64(failed) > float64(len(results))*failureRateThreshold {
		add("Consider simplifying team structure - high failure rate suggests complexity issues")
	}
	if avgSeconds(results) > slowResponseSeconds {
		add("Optimize team configuration for faster response times")
	}
	return out
}

func warnings(scores []DimensionScore, results []TestResult) []string {
	out := []string{}

	var critical []string
	for _, s := range scores {
		if s.Score < criticalDimension {
			critical = append(critical, string(s.Dimension))
		}
	}
	if len(critical) > 0 {
		out = append(out, "Critical performance issues in: "+strings.Join(critical, ", "))
	}

	if len(results) > 0 {
		errs := 0
		for _, r := range results {
			if r.ErrorMessage != "" {
				errs++
			}
		}
		if rate := float64(errs) / float64(len(results)); rate > errorRateThreshold {
			out = append(out, fmt.Sprintf("High error rate (%.1f%%) - team may be unstable", rate*100))
		}
	}
	return out
}
