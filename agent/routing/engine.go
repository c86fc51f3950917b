package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/types"
)

const defaultHistoryLimit = 1000

// DecisionObserver 在每次路由决策后被调用（用于指标上报）
type DecisionObserver func(d Decision)

// Option 配置 Engine
type Option func(*Engine)

// WithProvider 设置 llm 策略使用的模型
func WithProvider(p llm.Provider, model string) Option {
	return func(e *Engine) {
		e.provider = p
		e.model = model
	}
}

// WithDefaultStrategy 设置 Route 未指定策略时使用的策略
func WithDefaultStrategy(s Strategy) Option {
	return func(e *Engine) {
		if s != "" {
			e.defaultStrategy = s
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver 注册决策观察者
func WithObserver(fn DecisionObserver) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// WithHistoryLimit 设置决策历史上限
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithKeywordMappings 替换默认关键词表
func WithKeywordMappings(m []KeywordMapping) Option {
	return func(e *Engine) {
		e.mappings = m
	}
}

// Engine 多策略路由引擎，并发安全
type Engine struct {
	mu      sync.RWMutex
	agents  map[string]*AgentCapability
	order   []string
	history []Decision
	rrIndex int

	historyLimit    int
	defaultStrategy Strategy
	mappings        []KeywordMapping
	rules           []rule
	provider        llm.Provider
	model           string
	observers       []DecisionObserver
	logger          *zap.Logger
}

// NewEngine 创建路由引擎，默认策略为 hybrid
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		agents:          make(map[string]*AgentCapability),
		historyLimit:    defaultHistoryLimit,
		defaultStrategy: StrategyHybrid,
		mappings:        DefaultKeywordMappings(),
		rules:           defaultRules(),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "routing_engine"))
	return e
}

// DefaultStrategy 返回默认策略
func (e *Engine) DefaultStrategy() Strategy {
	return e.defaultStrategy
}

// =============================================================================
// Agent 注册与指标
// =============================================================================

// RegisterAgent 注册或更新 Agent；重复注册保留原有顺序
func (e *Engine) RegisterAgent(c AgentCapability) error {
	if c.AgentID == "" {
		return types.NewInvalidRequestError("agent id is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.agents[c.AgentID]; !exists {
		e.order = append(e.order, c.AgentID)
	}
	e.agents[c.AgentID] = c.clone()
	e.logger.Debug("agent registered",
		zap.String("agent_id", c.AgentID),
		zap.Strings("capabilities", c.Capabilities))
	return nil
}

// UnregisterAgent 注销 Agent
func (e *Engine) UnregisterAgent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.agents[id]; !ok {
		return false
	}
	delete(e.agents, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// Agent 返回 Agent 快照
func (e *Engine) Agent(id string) (AgentCapability, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.agents[id]
	if !ok {
		return AgentCapability{}, false
	}
	return *a.clone(), true
}

// Agents 按注册顺序返回全部 Agent 快照
func (e *Engine) Agents() []AgentCapability {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]AgentCapability, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.agents[id].clone())
	}
	return out
}

// UpdateWorkload 调整当前负载，结果不低于 0
func (e *Engine) UpdateWorkload(id string, delta int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.agents[id]
	if !ok {
		return false
	}
	a.CurrentWorkload = max(0, a.CurrentWorkload+delta)
	return true
}

// UpdatePerformance 以指数滑动平均更新响应时间与成功率
func (e *Engine) UpdatePerformance(id string, responseTime float64, success bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.agents[id]
	if !ok {
		return false
	}

	if a.AverageResponseTime == 0 {
		a.AverageResponseTime = responseTime
	} else {
		a.AverageResponseTime = a.AverageResponseTime*0.8 + responseTime*0.2
	}

	if success {
		a.SuccessRate = a.SuccessRate*0.9 + 0.1
	} else {
		a.SuccessRate = a.SuccessRate * 0.9
	}
	a.SuccessRate = min(1.0, max(0.1, a.SuccessRate))
	return true
}

// =============================================================================
// 路由
// =============================================================================

// Route 为任务选择目标 Agent。available 中未注册的 Agent 被忽略；
// 策略出错时回退为轮询，置信度 0.3。
func (e *Engine) Route(ctx context.Context, task string, available []string, strategy Strategy, rctx map[string]any) (*Decision, error) {
	if len(available) == 0 {
		return nil, types.NewError(types.ErrRoutingFailed, "no available agents for routing")
	}
	if strategy == "" {
		strategy = e.defaultStrategy
	}
	if rctx == nil {
		rctx = map[string]any{}
	}

	candidates := e.snapshot(available)
	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrRoutingFailed, "no registered agents available for routing")
	}

	decision, err := e.dispatch(ctx, strategy, task, candidates, rctx)
	if err != nil {
		e.logger.Warn("routing strategy failed, falling back to round robin",
			zap.String("strategy", string(strategy)),
			zap.Error(err))
		decision = &Decision{
			Target:     e.nextRoundRobin(candidates),
			Confidence: 0.3,
			Reasoning:  fmt.Sprintf("Fallback routing due to error: %v", err),
			Strategy:   StrategyRoundRobin,
			Metadata: map[string]any{
				"error":              err.Error(),
				"requested_strategy": string(strategy),
			},
		}
	}
	decision.Timestamp = time.Now()

	e.record(*decision)
	e.logger.Debug("task routed",
		zap.String("target", decision.Target),
		zap.String("strategy", string(decision.Strategy)),
		zap.Float64("confidence", decision.Confidence))
	return decision, nil
}

func (e *Engine) dispatch(ctx context.Context, strategy Strategy, task string, agents []*AgentCapability, rctx map[string]any) (*Decision, error) {
	switch strategy {
	case StrategyKeyword:
		return e.routeKeyword(task, agents), nil
	case StrategyLLM:
		return e.routeLLM(ctx, task, agents, rctx)
	case StrategyRule:
		return e.routeRule(task, agents, rctx), nil
	case StrategyCapability:
		return routeCapability(task, agents), nil
	case StrategyWorkload:
		return routeWorkload(agents), nil
	case StrategyPerformance:
		return routePerformance(agents), nil
	case StrategyHybrid:
		return e.routeHybrid(task, agents), nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", strategy)
	}
}

// snapshot 按 available 的顺序复制已注册 Agent，去重
func (e *Engine) snapshot(available []string) []*AgentCapability {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*AgentCapability, 0, len(available))
	seen := make(map[string]struct{}, len(available))
	for _, id := range available {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := e.agents[id]; ok {
			out = append(out, a.clone())
		}
	}
	return out
}

func (e *Engine) nextRoundRobin(agents []*AgentCapability) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	target := agents[e.rrIndex%len(agents)].AgentID
	e.rrIndex++
	return target
}

func (e *Engine) record(d Decision) {
	e.mu.Lock()
	e.history = append(e.history, d)
	if over := len(e.history) - e.historyLimit; over > 0 {
		e.history = append([]Decision(nil), e.history[over:]...)
	}
	observers := e.observers
	e.mu.Unlock()

	for _, fn := range observers {
		fn(d)
	}
}

// =============================================================================
// 统计
// =============================================================================

// History 返回最近 limit 条决策（按时间顺序），limit<=0 返回全部
func (e *Engine) History(limit int) []Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := 0
	if limit > 0 && len(e.history) > limit {
		start = len(e.history) - limit
	}
	out := make([]Decision, len(e.history)-start)
	copy(out, e.history[start:])
	return out
}

// Statistics 汇总决策分布、平均置信度与各 Agent 的被选次数
func (e *Engine) Statistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Statistics{
		TotalDecisions:       len(e.history),
		StrategyDistribution: make(map[string]int),
		AgentUtilization:     make(map[string]int, len(e.order)),
		Agents:               make([]AgentCapability, 0, len(e.order)),
	}
	for _, id := range e.order {
		stats.AgentUtilization[id] = 0
		stats.Agents = append(stats.Agents, *e.agents[id].clone())
	}

	var total float64
	for _, d := range e.history {
		stats.StrategyDistribution[string(d.Strategy)]++
		total += d.Confidence
		if _, ok := stats.AgentUtilization[d.Target]; ok {
			stats.AgentUtilization[d.Target]++
		}
	}
	if len(e.history) > 0 {
		stats.AverageConfidence = total / float64(len(e.history))
	}
	return stats
}
