package hierarchical

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/routing"
)

// CoordinatorResult Coordinator 执行结果
type CoordinatorResult struct {
	Response    string            `json:"response"`
	Coordinator string            `json:"coordinator"`
	Routing     *Delegation       `json:"routing,omitempty"`
	TeamResult  *SupervisorResult `json:"team_result,omitempty"`
	Error       string            `json:"error,omitempty"`

	err error
}

// Err 返回失败原因
func (r *CoordinatorResult) Err() error {
	return r.err
}

// Coordinator 顶层路由器，把任务分配给团队 Supervisor
type Coordinator struct {
	Name  string
	Model string

	router   *routing.Engine
	strategy routing.Strategy

	mu     sync.RWMutex
	teams  []*Supervisor
	logger *zap.Logger
}

// NewCoordinator 创建 Coordinator，默认策略 hybrid
func NewCoordinator(name, model string, router *routing.Engine, strategy routing.Strategy, logger *zap.Logger) *Coordinator {
	if router == nil {
		router = routing.NewEngine(routing.WithLogger(logger))
	}
	if strategy == "" {
		strategy = routing.StrategyHybrid
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		Name:     name,
		Model:    model,
		router:   router,
		strategy: strategy,
		logger:   logger.With(zap.String("component", "coordinator")),
	}
}

// Router 返回顶层路由引擎
func (c *Coordinator) Router() *routing.Engine { return c.router }

// Strategy 返回路由策略
func (c *Coordinator) Strategy() routing.Strategy { return c.strategy }

// AddTeam 加入团队；团队能力为其 Worker 能力的并集
func (c *Coordinator) AddTeam(s *Supervisor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.teams {
		if existing.TeamName == s.TeamName {
			return fmt.Errorf("team %q already registered", s.TeamName)
		}
	}

	capability := routing.NewAgentCapability(s.TeamName)
	capacity := 0
	for _, w := range s.Workers() {
		for _, name := range w.Capabilities {
			if !slices.Contains(capability.Capabilities, name) {
				capability.Capabilities = append(capability.Capabilities, name)
			}
		}
		for _, kw := range w.Keywords {
			if !slices.Contains(capability.SpecializationKeywords, kw) {
				capability.SpecializationKeywords = append(capability.SpecializationKeywords, kw)
			}
		}
		capability.Priority = max(capability.Priority, w.Priority)
		capacity += w.MaxWorkload
	}
	capability.MaxWorkload = max(capacity, 10)

	if err := c.router.RegisterAgent(*capability); err != nil {
		return err
	}
	c.teams = append(c.teams, s)
	return nil
}

// RemoveTeam 移除团队
func (c *Coordinator) RemoveTeam(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.teams {
		if s.TeamName == name {
			c.teams = append(c.teams[:i], c.teams[i+1:]...)
			c.router.UnregisterAgent(name)
			return true
		}
	}
	return false
}

// Teams 返回团队列表副本（声明顺序）
func (c *Coordinator) Teams() []*Supervisor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Supervisor(nil), c.teams...)
}

// Team 按团队名查找 Supervisor
func (c *Coordinator) Team(name string) (*Supervisor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.teams {
		if s.TeamName == name {
			return s, true
		}
	}
	return nil, false
}

// Run 路由到团队并由其 Supervisor 执行
func (c *Coordinator) Run(ctx context.Context, input string, params map[string]any) *CoordinatorResult {
	result := &CoordinatorResult{Coordinator: c.Name}

	teams := c.Teams()
	if len(teams) == 0 {
		result.err = errors.New("no teams available")
		result.Error = result.err.Error()
		result.Response = "No teams configured for this coordinator"
		return result
	}

	names := make([]string, len(teams))
	for i, s := range teams {
		names[i] = s.TeamName
	}

	decision, err := c.router.Route(ctx, input, names, c.strategy, params)
	if err != nil {
		result.err = err
		result.Error = err.Error()
		result.Response = "Routing failed: " + err.Error()
		return result
	}
	result.Routing = delegationOf(decision)

	team, ok := c.Team(decision.Target)
	if !ok {
		result.err = fmt.Errorf("target team %q not found", decision.Target)
		result.Error = result.err.Error()
		result.Response = fmt.Sprintf("Team '%s' is not available", decision.Target)
		return result
	}
	c.logger.Debug("task routed to team",
		zap.String("team", decision.Target),
		zap.String("strategy", string(decision.Strategy)))

	c.router.UpdateWorkload(team.TeamName, 1)
	start := time.Now()
	tr := team.Run(ctx, input, params)
	c.router.UpdateWorkload(team.TeamName, -1)
	c.router.UpdatePerformance(team.TeamName, responseSeconds(time.Since(start)), tr.err == nil)

	result.TeamResult = tr
	result.Response = tr.Response
	result.err = tr.err
	result.Error = tr.Error
	return result
}
