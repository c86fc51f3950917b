package hierarchical

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/routing"
	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/types"
)

// ProviderFactory 根据 LLM 配置创建 provider
type ProviderFactory func(cfg teamconfig.LLMConfig) (llm.Provider, error)

// BuildOptions 构建团队运行时的选项
type BuildOptions struct {
	// BaseDirs worker config_file 的查找目录
	BaseDirs []string
	// DefaultLLM 配置中未指定的 provider/model 由此补齐
	DefaultLLM teamconfig.LLMConfig
	// ProviderFactory 为空时使用 llm.NewProvider
	ProviderFactory ProviderFactory

	CoordinatorStrategy routing.Strategy
	SupervisorStrategy  routing.Strategy

	// Observer 接收每次路由决策，level 为 coordinator 或 supervisor
	Observer func(level string, d routing.Decision)

	Tracer trace.Tracer
	Logger *zap.Logger
}

// Team 层级团队运行时：Coordinator -> Supervisor -> Worker
type Team struct {
	Name   string
	Config *teamconfig.HierarchicalConfig

	coordinator *Coordinator
	tracer      trace.Tracer
	logger      *zap.Logger
}

// RunResult 一次团队执行的结果
type RunResult struct {
	Response          string         `json:"response"`
	Status            Status         `json:"status"`
	Error             string         `json:"error,omitempty"`
	Team              string         `json:"team,omitempty"`
	Worker            string         `json:"worker,omitempty"`
	Routing           *Delegation    `json:"routing,omitempty"`
	Delegation        *Delegation    `json:"delegation,omitempty"`
	Reasoning         string         `json:"reasoning,omitempty"`
	IntermediateSteps []string       `json:"intermediate_steps,omitempty"`
	UsedTools         []string       `json:"used_tools,omitempty"`
	Usage             llm.ChatUsage  `json:"usage"`
	Duration          time.Duration  `json:"duration"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// 构建
// =============================================================================

// Build 根据层级配置创建团队运行时。Worker 的 Agent 定义按
// config_data、config_file、条目本身的顺序解析。
func Build(ctx context.Context, name string, cfg *teamconfig.HierarchicalConfig, opts BuildOptions) (*Team, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "team configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "invalid team configuration").WithCause(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("team", name))
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("agentteams/hierarchical")
	}

	b := &builder{
		opts:      opts,
		logger:    logger,
		providers: make(map[string]llm.Provider),
	}
	if b.opts.ProviderFactory == nil {
		b.opts.ProviderFactory = func(c teamconfig.LLMConfig) (llm.Provider, error) {
			return llm.NewProvider(llm.Options{
				Provider:  c.Provider,
				Model:     c.Model,
				APIKeyEnv: c.APIKeyEnv,
				BaseURL:   c.BaseURL,
			}, logger)
		}
	}

	coordinator, err := b.coordinator(cfg)
	if err != nil {
		return nil, err
	}
	for i := range cfg.Teams {
		sup, err := b.supervisor(&cfg.Teams[i])
		if err != nil {
			return nil, err
		}
		if err := coordinator.AddTeam(sup); err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, err.Error())
		}
	}

	logger.Info("team runtime built",
		zap.Int("teams", len(cfg.Teams)),
		zap.Int("workers", cfg.WorkerCount()))

	return &Team{
		Name:        name,
		Config:      cfg,
		coordinator: coordinator,
		tracer:      tracer,
		logger:      logger.With(zap.String("component", "team")),
	}, nil
}

type builder struct {
	opts      BuildOptions
	logger    *zap.Logger
	mu        sync.Mutex
	providers map[string]llm.Provider
}

func (b *builder) provider(c teamconfig.LLMConfig) (llm.Provider, error) {
	key := strings.Join([]string{c.Provider, c.Model, c.APIKeyEnv, c.BaseURL}, "|")

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.providers[key]; ok {
		return p, nil
	}
	p, err := b.opts.ProviderFactory(c)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "cannot create llm provider").WithCause(err)
	}
	b.providers[key] = p
	return p, nil
}

func (b *builder) observer(level string) routing.Option {
	if b.opts.Observer == nil {
		return func(*routing.Engine) {}
	}
	fn := b.opts.Observer
	return routing.WithObserver(func(d routing.Decision) { fn(level, d) })
}

func parseStrategy(configured string, fallback routing.Strategy) (routing.Strategy, error) {
	if configured == "" {
		return fallback, nil
	}
	s, err := routing.ParseStrategy(configured)
	if err != nil {
		return "", types.NewError(types.ErrInvalidConfig, err.Error())
	}
	return s, nil
}

func (b *builder) coordinator(cfg *teamconfig.HierarchicalConfig) (*Coordinator, error) {
	cc := cfg.Coordinator
	llmCfg := mergeLLM(cc.LLM, b.opts.DefaultLLM)
	provider, err := b.provider(llmCfg)
	if err != nil {
		return nil, err
	}

	strategy, err := parseStrategy(cc.Routing.Strategy, defaultOr(b.opts.CoordinatorStrategy, routing.StrategyHybrid))
	if err != nil {
		return nil, err
	}

	name := cc.Name
	if name == "" {
		name = cfg.Team.Name + "_coordinator"
	}
	router := routing.NewEngine(
		routing.WithLogger(b.logger),
		routing.WithProvider(provider, llmCfg.Model),
		routing.WithDefaultStrategy(strategy),
		b.observer("coordinator"),
	)
	return NewCoordinator(name, llmCfg.Model, router, strategy, b.logger), nil
}

func (b *builder) supervisor(spec *teamconfig.TeamSpec) (*Supervisor, error) {
	var sc teamconfig.SupervisorConfig
	if spec.Supervisor != nil {
		sc = *spec.Supervisor
	}
	llmCfg := mergeLLM(sc.LLM, b.opts.DefaultLLM)
	provider, err := b.provider(llmCfg)
	if err != nil {
		return nil, err
	}

	strategy, err := parseStrategy(sc.Routing.Strategy, defaultOr(b.opts.SupervisorStrategy, routing.StrategyCapability))
	if err != nil {
		return nil, err
	}

	router := routing.NewEngine(
		routing.WithLogger(b.logger),
		routing.WithProvider(provider, llmCfg.Model),
		routing.WithDefaultStrategy(strategy),
		b.observer("supervisor"),
	)
	sup := NewSupervisor(spec.SupervisorName(), spec.Name, spec.Description, router, strategy, b.logger)

	for _, wc := range spec.Workers {
		w, err := b.worker(wc)
		if err != nil {
			return nil, err
		}
		if err := sup.AddWorker(w); err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, err.Error())
		}
	}
	return sup, nil
}

// worker 合并 worker 条目与其 Agent 定义，条目字段优先
func (b *builder) worker(wc teamconfig.WorkerConfig) (*Worker, error) {
	agentCfg, err := b.resolveAgent(wc)
	if err != nil {
		return nil, err
	}

	w := Worker{
		Name:         wc.Name,
		Role:         wc.Role,
		Description:  wc.Description,
		Capabilities: wc.Capabilities,
		Keywords:     wc.Keywords,
		Priority:     wc.Priority,
		MaxWorkload:  wc.MaxWorkload,
		ConfigFile:   wc.ConfigFile,
	}

	var llmCfg teamconfig.LLMConfig
	if agentCfg != nil {
		if w.Description == "" {
			w.Description = agentCfg.Agent.Description
		}
		if len(w.Capabilities) == 0 {
			w.Capabilities = agentCfg.Specialization.Capabilities
		}
		if len(w.Keywords) == 0 {
			w.Keywords = agentCfg.Specialization.Keywords
		}
		if w.Priority == 0 {
			w.Priority = agentCfg.Specialization.Priority
		}
		w.SystemPrompt = agentCfg.Prompts.SystemPrompt.Template
		w.Tools = agentCfg.ToolNames()
		llmCfg = agentCfg.LLM
	}

	llmCfg = mergeLLM(llmCfg, b.opts.DefaultLLM)
	provider, err := b.provider(llmCfg)
	if err != nil {
		return nil, err
	}
	w.Model = llmCfg.Model
	w.Temperature = float32(llmCfg.Temperature)
	w.MaxTokens = llmCfg.MaxTokens

	switch {
	case w.Role != "":
		w.Specialization = w.Role
	case len(w.Capabilities) > 0:
		w.Specialization = w.Capabilities[0]
	}
	return NewWorker(w, provider), nil
}

func (b *builder) resolveAgent(wc teamconfig.WorkerConfig) (*teamconfig.AgentConfig, error) {
	if len(wc.ConfigData) > 0 {
		ac, err := teamconfig.AgentFromMap(wc.ConfigData)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfig,
				fmt.Sprintf("worker %q: invalid config_data", wc.Name)).WithCause(err)
		}
		return ac, nil
	}

	if wc.ConfigFile != "" {
		path, ok := teamconfig.ResolveWorkerFile(b.opts.BaseDirs, wc.ConfigFile)
		if !ok {
			b.logger.Warn("worker config file not found, using inline definition",
				zap.String("worker", wc.Name),
				zap.String("config_file", wc.ConfigFile))
			return nil, nil
		}
		ac, _, err := teamconfig.LoadAgentFile(path)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfig,
				fmt.Sprintf("worker %q: cannot load %s", wc.Name, path)).WithCause(err)
		}
		return ac, nil
	}
	return nil, nil
}

func mergeLLM(primary, fallback teamconfig.LLMConfig) teamconfig.LLMConfig {
	out := primary
	if out.Provider == "" {
		out.Provider = fallback.Provider
		// provider 不同则不沿用其 base_url / api_key_env
		if out.BaseURL == "" {
			out.BaseURL = fallback.BaseURL
		}
		if out.APIKeyEnv == "" {
			out.APIKeyEnv = fallback.APIKeyEnv
		}
	}
	if out.Model == "" {
		out.Model = fallback.Model
	}
	if out.Temperature == 0 {
		out.Temperature = fallback.Temperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = fallback.MaxTokens
	}
	return out
}

func defaultOr(s, fallback routing.Strategy) routing.Strategy {
	if s == "" {
		return fallback
	}
	return s
}

// =============================================================================
// 执行
// =============================================================================

// Coordinator 返回顶层 Coordinator
func (t *Team) Coordinator() *Coordinator { return t.coordinator }

// HasWorker 判断 Worker 是否存在
func (t *Team) HasWorker(name string) bool {
	_, _, ok := t.findWorker(name)
	return ok
}

func (t *Team) findWorker(name string) (*Supervisor, *Worker, bool) {
	for _, s := range t.coordinator.Teams() {
		if w, ok := s.Worker(name); ok {
			return s, w, true
		}
	}
	return nil, nil, false
}

// Run 完整层级执行：Coordinator 路由到团队，Supervisor 委派给 Worker
func (t *Team) Run(ctx context.Context, input string, params map[string]any) (*RunResult, error) {
	ctx, span := t.startSpan(ctx, "team.run", input)
	defer span.End()

	start := time.Now()
	cr := t.coordinator.Run(ctx, input, params)

	res := &RunResult{Response: cr.Response, Routing: cr.Routing}
	steps := []string{}
	if cr.Routing != nil {
		res.Team = cr.Routing.Target
		steps = append(steps, fmt.Sprintf("coordinator %s routed to team %s (%s, confidence %.2f)",
			cr.Coordinator, cr.Routing.Target, cr.Routing.Strategy, cr.Routing.Confidence))
	}
	if tr := cr.TeamResult; tr != nil {
		res.Delegation = tr.Delegation
		if tr.Delegation != nil {
			steps = append(steps, fmt.Sprintf("supervisor %s delegated to worker %s (%s, confidence %.2f)",
				tr.Supervisor, tr.Delegation.Target, tr.Delegation.Strategy, tr.Delegation.Confidence))
		}
		t.fillWorker(res, tr.WorkerResult, &steps)
	}
	res.IntermediateSteps = steps
	res.Reasoning = joinReasoning(res.Routing, res.Delegation)

	return t.finish(span, res, start, cr.err)
}

// RunTeam 跳过 Coordinator，直接由指定团队执行
func (t *Team) RunTeam(ctx context.Context, teamName, input string, params map[string]any) (*RunResult, error) {
	sup, ok := t.coordinator.Team(teamName)
	if !ok {
		return nil, types.NewNotFoundError("team", teamName)
	}

	ctx, span := t.startSpan(ctx, "team.run_team", input)
	defer span.End()
	span.SetAttributes(attribute.String("team.target", teamName))

	start := time.Now()
	tr := sup.Run(ctx, input, params)
	res := &RunResult{Response: tr.Response, Team: teamName, Delegation: tr.Delegation}
	steps := []string{}
	if tr.Delegation != nil {
		steps = append(steps, fmt.Sprintf("supervisor %s delegated to worker %s", tr.Supervisor, tr.Delegation.Target))
	}
	t.fillWorker(res, tr.WorkerResult, &steps)
	res.IntermediateSteps = steps
	res.Reasoning = joinReasoning(nil, tr.Delegation)

	return t.finish(span, res, start, tr.err)
}

// RunWorker 直接执行指定 Worker
func (t *Team) RunWorker(ctx context.Context, workerName, input string, params map[string]any) (*RunResult, error) {
	sup, _, ok := t.findWorker(workerName)
	if !ok {
		return nil, types.NewNotFoundError("agent", workerName)
	}

	ctx, span := t.startSpan(ctx, "team.run_worker", input)
	defer span.End()
	span.SetAttributes(attribute.String("worker.name", workerName))

	start := time.Now()
	wr, err := sup.RunWorker(ctx, workerName, input, params)
	if err != nil {
		return nil, types.NewNotFoundError("agent", workerName)
	}
	res := &RunResult{Response: wr.Response, Team: sup.TeamName, Reasoning: "Direct worker execution"}
	steps := []string{}
	t.fillWorker(res, wr, &steps)
	res.IntermediateSteps = steps

	return t.finish(span, res, start, wr.err)
}

func (t *Team) fillWorker(res *RunResult, wr *WorkerResult, steps *[]string) {
	if wr == nil {
		return
	}
	res.Worker = wr.Worker
	res.Usage = wr.Usage
	*steps = append(*steps, fmt.Sprintf("worker %s (%s) %s", wr.Worker, wr.Specialization, wr.Status))
	if _, w, ok := t.findWorker(wr.Worker); ok {
		res.UsedTools = append([]string(nil), w.Tools...)
	}
	res.Metadata = map[string]any{
		"worker":         wr.Worker,
		"specialization": wr.Specialization,
		"model":          wr.Metadata["model_used"],
	}
}

func (t *Team) startSpan(ctx context.Context, name, input string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("team.name", t.Name),
		attribute.Int("input.length", len(input)),
	))
}

func (t *Team) finish(span trace.Span, res *RunResult, start time.Time, err error) (*RunResult, error) {
	res.Duration = time.Since(start)
	if res.Team != "" {
		span.SetAttributes(attribute.String("team.routed_to", res.Team))
	}
	if res.Worker != "" {
		span.SetAttributes(attribute.String("worker.name", res.Worker))
	}

	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Warn("team run failed", zap.Error(err), zap.Duration("duration", res.Duration))
		return res, err
	}

	res.Status = StatusCompleted
	span.SetStatus(codes.Ok, "")
	t.logger.Debug("team run completed",
		zap.String("routed_team", res.Team),
		zap.String("worker", res.Worker),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func joinReasoning(route, delegation *Delegation) string {
	var parts []string
	if route != nil {
		parts = append(parts, "Team routing: "+route.Reasoning)
	}
	if delegation != nil {
		parts = append(parts, "Worker delegation: "+delegation.Reasoning)
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// 层级信息
// =============================================================================

// WorkerInfo Worker 描述
type WorkerInfo struct {
	Name           string   `json:"name"`
	Role           string   `json:"role,omitempty"`
	Description    string   `json:"description,omitempty"`
	Specialization string   `json:"specialization"`
	Capabilities   []string `json:"capabilities"`
	Keywords       []string `json:"keywords,omitempty"`
	Priority       int      `json:"priority"`
	MaxWorkload    int      `json:"max_workload"`
	Model          string   `json:"model,omitempty"`
	Tools          []string `json:"tools,omitempty"`
}

// TeamInfo 团队描述
type TeamInfo struct {
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	SupervisorName string       `json:"supervisor_name"`
	Strategy       string       `json:"strategy"`
	Workers        []WorkerInfo `json:"workers"`
	WorkerCount    int          `json:"worker_count"`
}

// CoordinatorInfo Coordinator 描述
type CoordinatorInfo struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Strategy string `json:"strategy"`
}

// HierarchyInfo 团队层级结构
type HierarchyInfo struct {
	Coordinator  CoordinatorInfo     `json:"coordinator"`
	Teams        map[string]TeamInfo `json:"teams"`
	TeamOrder    []string            `json:"team_order"`
	TotalTeams   int                 `json:"total_teams"`
	TotalWorkers int                 `json:"total_workers"`
}

// HierarchyInfo 返回层级结构快照
func (t *Team) HierarchyInfo() HierarchyInfo {
	c := t.coordinator
	info := HierarchyInfo{
		Coordinator: CoordinatorInfo{Name: c.Name, Model: c.Model, Strategy: string(c.strategy)},
		Teams:       make(map[string]TeamInfo),
	}

	for _, s := range c.Teams() {
		ti := TeamInfo{
			Name:           s.TeamName,
			Description:    s.Description,
			SupervisorName: s.Name,
			Strategy:       string(s.strategy),
		}
		for _, w := range s.Workers() {
			ti.Workers = append(ti.Workers, WorkerInfo{
				Name:           w.Name,
				Role:           w.Role,
				Description:    w.Description,
				Specialization: w.Specialization,
				Capabilities:   w.Capabilities,
				Keywords:       w.Keywords,
				Priority:       w.Priority,
				MaxWorkload:    w.MaxWorkload,
				Model:          w.Model,
				Tools:          w.Tools,
			})
		}
		ti.WorkerCount = len(ti.Workers)
		info.Teams[s.TeamName] = ti
		info.TeamOrder = append(info.TeamOrder, s.TeamName)
		info.TotalWorkers += ti.WorkerCount
	}
	info.TotalTeams = len(info.Teams)
	return info
}

// WorkerNames 返回全部 Worker 名称（排序）
func (t *Team) WorkerNames() []string {
	var names []string
	for _, s := range t.coordinator.Teams() {
		for _, w := range s.Workers() {
			names = append(names, w.Name)
		}
	}
	sort.Strings(names)
	return names
}

// RoutingStats 团队两级路由统计
type RoutingStats struct {
	Coordinator routing.Statistics            `json:"coordinator"`
	Teams       map[string]routing.Statistics `json:"teams"`
}

// RoutingStatistics 返回 Coordinator 与各 Supervisor 的路由统计
func (t *Team) RoutingStatistics() RoutingStats {
	stats := RoutingStats{
		Coordinator: t.coordinator.router.Statistics(),
		Teams:       make(map[string]routing.Statistics),
	}
	for _, s := range t.coordinator.Teams() {
		stats.Teams[s.TeamName] = s.router.Statistics()
	}
	return stats
}
