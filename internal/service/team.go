package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/hierarchical"
	"github.com/BaSui01/agentteams/agent/routing"
	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/metrics"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/llm"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/types"
)

// TeamOptions TeamService 依赖与参数
type TeamOptions struct {
	// TemplateDirs 模板查找目录
	TemplateDirs []string
	// BaseDirs worker config_file 的查找目录
	BaseDirs []string
	// DefaultLLM 配置中未指定的 provider/model 由此补齐
	DefaultLLM teamconfig.LLMConfig
	// ProviderFactory 为空时使用 llm.NewProvider
	ProviderFactory hierarchical.ProviderFactory

	Tracer  trace.Tracer
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// TeamService 团队管理。记录保存在 TeamStore，运行时团队保存在内存。
type TeamService struct {
	teams      store.TeamStore
	executions store.ExecutionStore
	opts       TeamOptions
	logger     *zap.Logger

	mu       sync.RWMutex
	runtimes map[string]*hierarchical.Team
}

// NewTeamService 创建团队服务
func NewTeamService(teams store.TeamStore, executions store.ExecutionStore, opts TeamOptions) *TeamService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{
		teams:      teams,
		executions: executions,
		opts:       opts,
		logger:     logger.With(zap.String("component", "team_service")),
		runtimes:   make(map[string]*hierarchical.Team),
	}
}

// =============================================================================
// 构建运行时
// =============================================================================

func (s *TeamService) providerFactory() hierarchical.ProviderFactory {
	factory := s.opts.ProviderFactory
	if factory == nil {
		factory = func(c teamconfig.LLMConfig) (llm.Provider, error) {
			return llm.NewProvider(llm.Options{
				Provider:  c.Provider,
				Model:     c.Model,
				APIKeyEnv: c.APIKeyEnv,
				BaseURL:   c.BaseURL,
			}, s.logger)
		}
	}
	if s.opts.Metrics == nil {
		return factory
	}
	return func(c teamconfig.LLMConfig) (llm.Provider, error) {
		p, err := factory(c)
		if err != nil {
			return nil, err
		}
		return metrics.InstrumentProvider(p, s.opts.Metrics), nil
	}
}

func (s *TeamService) observeRouting(level string, d routing.Decision) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordRoutingDecision(level, string(d.Strategy), d.Confidence)
	}
}

func (s *TeamService) build(ctx context.Context, name string, cfg *teamconfig.HierarchicalConfig) (*hierarchical.Team, error) {
	team, err := hierarchical.Build(ctx, name, cfg, hierarchical.BuildOptions{
		BaseDirs:        s.opts.BaseDirs,
		DefaultLLM:      s.opts.DefaultLLM,
		ProviderFactory: s.providerFactory(),
		Observer:        s.observeRouting,
		Tracer:          s.opts.Tracer,
		Logger:          s.logger,
	})
	if err != nil {
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, invalidConfig(err)
	}
	return team, nil
}

// resolveSource 从 config_data、config_file_path、template_id 中恰好一个读取配置
func (s *TeamService) resolveSource(req *api.CreateTeamRequest) (*teamconfig.HierarchicalConfig, map[string]any, error) {
	sources := 0
	if req.ConfigData != nil {
		sources++
	}
	if strings.TrimSpace(req.ConfigFilePath) != "" {
		sources++
	}
	if strings.TrimSpace(req.TemplateID) != "" {
		sources++
	}
	switch {
	case sources == 0:
		return nil, nil, types.NewInvalidRequestError("one of config_data, config_file_path or template_id is required")
	case sources > 1:
		return nil, nil, types.NewInvalidRequestError("only one of config_data, config_file_path or template_id may be set")
	}

	switch {
	case req.ConfigData != nil:
		return parseConfigMap(teamconfig.Clone(req.ConfigData))

	case strings.TrimSpace(req.ConfigFilePath) != "":
		path := strings.TrimSpace(req.ConfigFilePath)
		cfg, raw, err := teamconfig.LoadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, nil, types.NewInvalidRequestError("config file not found: " + path)
		case errors.Is(err, teamconfig.ErrUnsupportedFormat):
			return nil, nil, types.NewError(types.ErrUnsupportedFormat, err.Error())
		case err != nil:
			return nil, nil, invalidConfig(err)
		}
		return cfg, raw, nil

	default:
		id := strings.TrimSpace(req.TemplateID)
		_, raw, err := teamconfig.LoadTemplate(s.opts.TemplateDirs, id)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, types.NewNotFoundError("template", id)
		}
		if err != nil {
			return nil, nil, invalidConfig(err)
		}
		return parseConfigMap(raw)
	}
}

func parseConfigMap(raw map[string]any) (*teamconfig.HierarchicalConfig, map[string]any, error) {
	cfg, err := teamconfig.FromMap(raw)
	if err != nil {
		return nil, nil, invalidConfig(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, invalidConfig(err)
	}
	return cfg, raw, nil
}

// =============================================================================
// CRUD
// =============================================================================

// Create 解析配置、构建运行时并持久化
func (s *TeamService) Create(ctx context.Context, req *api.CreateTeamRequest) (*api.TeamResponse, error) {
	cfg, raw, err := s.resolveSource(req)
	if err != nil {
		return nil, err
	}

	name := firstNonEmpty(req.Name, cfg.Team.Name)
	team, err := s.build(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &store.TeamRecord{
		ID:          uuid.NewString(),
		Name:        name,
		Description: firstNonEmpty(req.Description, cfg.Team.Description),
		Status:      store.TeamStatusActive,
		ConfigData:  raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.teams.Create(ctx, rec); err != nil {
		return nil, storeError(err, "team", rec.ID)
	}
	s.setRuntime(rec.ID, team)

	s.logger.Info("team created",
		zap.String("team_id", rec.ID),
		zap.String("name", rec.Name),
		zap.Int("teams", len(cfg.Teams)),
		zap.Int("workers", cfg.WorkerCount()))
	return toTeamResponse(rec, team), nil
}

// Get 返回团队信息
func (s *TeamService) Get(ctx context.Context, id string) (*api.TeamResponse, error) {
	rec, err := s.teams.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}
	team, _ := s.Runtime(ctx, id)
	return toTeamResponse(rec, team), nil
}

// Record 返回持久化记录
func (s *TeamService) Record(ctx context.Context, id string) (*store.TeamRecord, error) {
	rec, err := s.teams.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}
	return rec, nil
}

// List 分页列出团队，page = offset/limit + 1
func (s *TeamService) List(ctx context.Context, limit, offset int) (*api.TeamListResponse, error) {
	limit = clampLimit(limit, defaultListLimit)
	offset = max(offset, 0)

	recs, total, err := s.teams.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError(err, "team", "")
	}
	resp := &api.TeamListResponse{
		Teams: make([]api.TeamResponse, 0, len(recs)),
		Total: total,
		Page:  offset/limit + 1,
		Limit: limit,
	}
	for i := range recs {
		team, _ := s.lookup(recs[i].ID)
		resp.Teams = append(resp.Teams, *toTeamResponse(&recs[i], team))
	}
	return resp, nil
}

// Update 更新名称、描述或配置。新配置会重建运行时。
func (s *TeamService) Update(ctx context.Context, id string, req *api.UpdateTeamRequest) (*api.TeamResponse, error) {
	rec, err := s.teams.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, types.NewInvalidRequestError("name must not be empty")
		}
		rec.Name = name
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}

	var team *hierarchical.Team
	if req.ConfigData != nil {
		cfg, raw, err := parseConfigMap(teamconfig.Clone(req.ConfigData))
		if err != nil {
			return nil, err
		}
		if team, err = s.build(ctx, rec.Name, cfg); err != nil {
			return nil, err
		}
		rec.ConfigData = raw
	}

	rec.UpdatedAt = time.Now().UTC()
	if err := s.teams.Update(ctx, rec); err != nil {
		return nil, storeError(err, "team", id)
	}

	if team != nil {
		s.setRuntime(id, team)
	} else {
		team, _ = s.lookup(id)
	}

	s.logger.Info("team updated", zap.String("team_id", id), zap.Bool("rebuilt", req.ConfigData != nil))
	return toTeamResponse(rec, team), nil
}

// Delete 删除团队及其运行时
func (s *TeamService) Delete(ctx context.Context, id string) (*api.TeamDeleteResponse, error) {
	rec, err := s.teams.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}
	if err := s.teams.Delete(ctx, id); err != nil {
		return nil, storeError(err, "team", id)
	}

	s.mu.Lock()
	delete(s.runtimes, id)
	n := len(s.runtimes)
	s.mu.Unlock()
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetTeams(n)
	}

	s.logger.Info("team deleted", zap.String("team_id", id), zap.String("name", rec.Name))
	return &api.TeamDeleteResponse{
		Message:   fmt.Sprintf("Team '%s' deleted successfully", rec.Name),
		TeamID:    id,
		DeletedAt: time.Now().UTC(),
	}, nil
}

// Status 团队运行状态：存在 pending/running 执行时为 busy
func (s *TeamService) Status(ctx context.Context, id string) (*api.TeamStatusResponse, error) {
	rec, err := s.teams.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}
	active, total, err := s.executions.CountByTeam(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}

	resp := &api.TeamStatusResponse{
		ID:               rec.ID,
		Name:             rec.Name,
		Status:           store.TeamStatusActive,
		ActiveExecutions: active,
		TotalExecutions:  total,
	}
	if active > 0 {
		resp.Status = store.TeamStatusBusy
	}

	latest, _, err := s.executions.List(ctx, store.ExecutionFilter{TeamID: id, Limit: 1}.Normalize())
	if err != nil {
		return nil, storeError(err, "team", id)
	}
	if len(latest) > 0 {
		last := latest[0].CreatedAt
		if c := latest[0].CompletedAt; c != nil && c.After(last) {
			last = *c
		}
		resp.LastActivity = &last
	}

	if team, ok := s.lookup(id); ok {
		info := team.HierarchyInfo()
		resp.HierarchyInfo = &info
	}
	return resp, nil
}

// =============================================================================
// 运行时
// =============================================================================

// Runtime 返回运行时团队。内存中缺失时按存储记录重建，
// 以支持多实例共享 redis 或数据库后端。
func (s *TeamService) Runtime(ctx context.Context, id string) (*hierarchical.Team, error) {
	if team, ok := s.lookup(id); ok {
		return team, nil
	}
	rec, err := s.teams.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "team", id)
	}
	team, err := s.rebuild(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.setRuntime(id, team)
	return team, nil
}

// Routing 返回团队 Coordinator 与各 Supervisor 的路由统计
func (s *TeamService) Routing(ctx context.Context, id string) (*hierarchical.RoutingStats, error) {
	team, err := s.Runtime(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := team.RoutingStatistics()
	return &stats, nil
}

// Restore 启动时从存储重建全部运行时团队，返回成功数量。
// 单个团队重建失败只记录日志。
func (s *TeamService) Restore(ctx context.Context) (int, error) {
	restored := 0
	for offset := 0; ; offset += defaultListLimit {
		recs, total, err := s.teams.List(ctx, defaultListLimit, offset)
		if err != nil {
			return restored, storeError(err, "team", "")
		}
		for i := range recs {
			team, err := s.rebuild(ctx, &recs[i])
			if err != nil {
				s.logger.Warn("failed to restore team",
					zap.String("team_id", recs[i].ID), zap.Error(err))
				continue
			}
			s.setRuntime(recs[i].ID, team)
			restored++
		}
		if len(recs) == 0 || offset+len(recs) >= total {
			break
		}
	}
	s.logger.Info("teams restored", zap.Int("count", restored))
	return restored, nil
}

func (s *TeamService) rebuild(ctx context.Context, rec *store.TeamRecord) (*hierarchical.Team, error) {
	cfg, _, err := parseConfigMap(teamconfig.Clone(rec.ConfigData))
	if err != nil {
		return nil, err
	}
	return s.build(ctx, rec.Name, cfg)
}

// Count 内存中的运行时团队数
func (s *TeamService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runtimes)
}

func (s *TeamService) lookup(id string) (*hierarchical.Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.runtimes[id]
	return team, ok
}

func (s *TeamService) setRuntime(id string, team *hierarchical.Team) {
	s.mu.Lock()
	s.runtimes[id] = team
	n := len(s.runtimes)
	s.mu.Unlock()
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetTeams(n)
	}
}

func toTeamResponse(rec *store.TeamRecord, team *hierarchical.Team) *api.TeamResponse {
	resp := &api.TeamResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		ConfigData:  rec.ConfigData,
	}
	if resp.Status == "" {
		resp.Status = store.TeamStatusActive
	}
	if team != nil {
		info := team.HierarchyInfo()
		resp.HierarchyInfo = &info
	}
	return resp
}
