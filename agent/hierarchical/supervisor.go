package hierarchical

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/routing"
)

// Delegation 路由结果摘要
type Delegation struct {
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Strategy   string  `json:"strategy"`
}

func delegationOf(d *routing.Decision) *Delegation {
	return &Delegation{
		Target:     d.Target,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Strategy:   string(d.Strategy),
	}
}

// SupervisorResult Supervisor 执行结果
type SupervisorResult struct {
	Response     string         `json:"response"`
	Supervisor   string         `json:"supervisor"`
	Team         string         `json:"team"`
	Delegation   *Delegation    `json:"delegation,omitempty"`
	WorkerResult *WorkerResult  `json:"worker_result,omitempty"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	err error
}

// Err 返回失败原因
func (r *SupervisorResult) Err() error {
	return r.err
}

func (r *SupervisorResult) fail(err error, response string) *SupervisorResult {
	r.err = err
	r.Error = err.Error()
	r.Response = response
	return r
}

// Supervisor 团队内路由器，把任务委派给 Worker
type Supervisor struct {
	Name        string
	TeamName    string
	Description string

	router   *routing.Engine
	strategy routing.Strategy

	mu      sync.RWMutex
	workers []*Worker
	logger  *zap.Logger
}

// NewSupervisor 创建 Supervisor；router 为空时使用默认引擎
func NewSupervisor(name, teamName, description string, router *routing.Engine, strategy routing.Strategy, logger *zap.Logger) *Supervisor {
	if router == nil {
		router = routing.NewEngine(routing.WithLogger(logger))
	}
	if strategy == "" {
		strategy = routing.StrategyCapability
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		Name:        name,
		TeamName:    teamName,
		Description: description,
		router:      router,
		strategy:    strategy,
		logger:      logger.With(zap.String("component", "supervisor"), zap.String("team", teamName)),
	}
}

// Router 返回团队路由引擎
func (s *Supervisor) Router() *routing.Engine { return s.router }

// Strategy 返回委派策略
func (s *Supervisor) Strategy() routing.Strategy { return s.strategy }

// AddWorker 加入 Worker 并注册到路由引擎
func (s *Supervisor) AddWorker(w *Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.workers {
		if existing.Name == w.Name {
			return fmt.Errorf("worker %q already in team %q", w.Name, s.TeamName)
		}
	}

	c := routing.NewAgentCapability(w.Name, w.Capabilities...)
	c.SpecializationKeywords = append([]string(nil), w.Keywords...)
	c.Priority = w.Priority
	c.MaxWorkload = w.MaxWorkload
	if err := s.router.RegisterAgent(*c); err != nil {
		return err
	}
	s.workers = append(s.workers, w)
	return nil
}

// RemoveWorker 移除 Worker
func (s *Supervisor) RemoveWorker(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.workers {
		if w.Name == name {
			s.workers = append(s.workers[:i], s.workers[i+1:]...)
			s.router.UnregisterAgent(name)
			return true
		}
	}
	return false
}

// Workers 返回 Worker 列表副本
func (s *Supervisor) Workers() []*Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Worker(nil), s.workers...)
}

// Worker 按名称查找
func (s *Supervisor) Worker(name string) (*Worker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.workers {
		if w.Name == name {
			return w, true
		}
	}
	return nil, false
}

func (s *Supervisor) workerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.workers))
	for i, w := range s.workers {
		names[i] = w.Name
	}
	return names
}

// Run 路由到 Worker 并执行
func (s *Supervisor) Run(ctx context.Context, input string, params map[string]any) *SupervisorResult {
	result := &SupervisorResult{Supervisor: s.Name, Team: s.TeamName}

	names := s.workerNames()
	if len(names) == 0 {
		return result.fail(errors.New("no workers available"), "No workers assigned to this supervisor")
	}

	decision, err := s.router.Route(ctx, input, names, s.strategy, params)
	if err != nil {
		return result.fail(err, "Delegation failed: "+err.Error())
	}
	result.Delegation = delegationOf(decision)

	worker, ok := s.Worker(decision.Target)
	if !ok {
		return result.fail(fmt.Errorf("target worker %q not found", decision.Target),
			fmt.Sprintf("Worker '%s' is not available", decision.Target))
	}

	s.logger.Debug("task delegated",
		zap.String("worker", worker.Name),
		zap.String("strategy", result.Delegation.Strategy),
		zap.Float64("confidence", decision.Confidence))

	wr := s.execute(ctx, worker, input, params)
	result.WorkerResult = wr
	result.Response = wr.Response
	result.Metadata = map[string]any{
		"total_workers":     len(names),
		"available_workers": names,
	}
	if wr.Status != StatusCompleted {
		result.err = wr.err
		result.Error = wr.Error
	}
	return result
}

// RunWorker 跳过路由直接执行指定 Worker
func (s *Supervisor) RunWorker(ctx context.Context, name, input string, params map[string]any) (*WorkerResult, error) {
	w, ok := s.Worker(name)
	if !ok {
		return nil, fmt.Errorf("worker %q not found in team %q", name, s.TeamName)
	}
	return s.execute(ctx, w, input, params), nil
}

// execute 执行期间负载 +1，并回写性能指标
func (s *Supervisor) execute(ctx context.Context, w *Worker, input string, params map[string]any) *WorkerResult {
	s.router.UpdateWorkload(w.Name, 1)
	defer s.router.UpdateWorkload(w.Name, -1)

	wr := w.Run(ctx, input, params)
	s.router.UpdatePerformance(w.Name, responseSeconds(wr.Duration), wr.Status == StatusCompleted)
	return wr
}

// responseSeconds 亚毫秒级的调用按 1s 记录
func responseSeconds(d time.Duration) float64 {
	if d < time.Millisecond {
		return 1.0
	}
	return d.Seconds()
}
