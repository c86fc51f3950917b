package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/evaluation"
	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/metrics"
	"github.com/BaSui01/agentteams/types"
)

const defaultMaxEvaluations = 100

// EvaluationOptions EvaluationService 参数
type EvaluationOptions struct {
	Concurrency int
	// MaxResults 内存中保留的评估结果数，超出后淘汰最早的
	MaxResults int
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

// EvaluationService 团队评估，结果保存在内存中
type EvaluationService struct {
	teams     *TeamService
	evaluator *evaluation.TeamEvaluator
	max       int
	logger    *zap.Logger

	mu      sync.RWMutex
	results map[string]*evaluation.Result
	order   []string
}

// NewEvaluationService 创建评估服务。judge 为空时评估使用回退评分。
func NewEvaluationService(teams *TeamService, judge *evaluation.LLMJudge, opts EvaluationOptions) *EvaluationService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxEvaluations
	}

	evalOpts := []evaluation.EvaluatorOption{
		evaluation.WithConcurrency(opts.Concurrency),
		evaluation.WithLogger(logger),
	}
	if c := opts.Metrics; c != nil {
		evalOpts = append(evalOpts, evaluation.WithObserver(func(r *evaluation.Result) {
			c.RecordEvaluation(r.Grade, r.OverallScore)
		}))
	}

	return &EvaluationService{
		teams:     teams,
		evaluator: evaluation.NewTeamEvaluator(judge, evalOpts...),
		max:       opts.MaxResults,
		logger:    logger.With(zap.String("component", "evaluation_service")),
		results:   make(map[string]*evaluation.Result),
	}
}

// Evaluate 同步运行场景集并保存结果
func (s *EvaluationService) Evaluate(ctx context.Context, teamID string, req *api.EvaluateRequest) (*evaluation.Result, error) {
	scenarios, err := evaluation.ScenarioSet(strings.TrimSpace(req.ScenarioSet))
	if err != nil {
		return nil, types.NewInvalidRequestError(err.Error())
	}
	dims := make([]evaluation.Dimension, 0, len(req.Dimensions))
	for _, name := range req.Dimensions {
		d, err := evaluation.ParseDimension(strings.TrimSpace(name))
		if err != nil {
			return nil, types.NewInvalidRequestError(err.Error())
		}
		dims = append(dims, d)
	}

	team, err := s.teams.Runtime(ctx, teamID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("evaluation started",
		zap.String("team_id", teamID),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("dimensions", len(dims)))

	result, err := s.evaluator.Evaluate(ctx, team.Config, team, scenarios, dims)
	if err != nil {
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, types.NewInternalError("evaluation failed", err)
	}
	s.store(result)
	return result, nil
}

func (s *EvaluationService) store(r *evaluation.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = r
	s.order = append(s.order, r.ID)
	for len(s.order) > s.max {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

// Get 按 id 返回评估结果
func (s *EvaluationService) Get(_ context.Context, id string) (*evaluation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, types.NewNotFoundError("evaluation", id)
	}
	return r, nil
}

// Compare 对比至少两个已保存的评估结果
func (s *EvaluationService) Compare(ctx context.Context, req *api.CompareRequest) (*evaluation.Comparison, error) {
	if len(req.EvaluationIDs) < 2 {
		return nil, types.NewInvalidRequestError("need at least 2 evaluations to compare")
	}
	results := make([]*evaluation.Result, 0, len(req.EvaluationIDs))
	for _, id := range req.EvaluationIDs {
		r, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return evaluation.Compare(results)
}
