package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/agent/library"
	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/types"
)

const (
	defaultAgentLimit = 50
	maxTeamSuggestion = 3
	minTeamSize       = 2
	maxTeamSize       = 20
)

var teamTypes = []string{"hierarchical", "flat", "pipeline"}

type usageCounter struct {
	total     int
	succeeded int
	totalTime time.Duration
	lastUsed  time.Time
}

// AgentService 智能体库查询，并按 Worker 名称累计使用统计
type AgentService struct {
	lib    *library.Library
	logger *zap.Logger

	mu    sync.RWMutex
	usage map[string]*usageCounter
}

// NewAgentService 创建智能体服务
func NewAgentService(lib *library.Library, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		lib:    lib,
		logger: logger.With(zap.String("component", "agent_service")),
		usage:  make(map[string]*usageCounter),
	}
}

// Reload 重新扫描智能体库目录
func (s *AgentService) Reload() error {
	if err := s.lib.Reload(); err != nil {
		return err
	}
	s.logger.Info("agent library reloaded", zap.Int("agents", s.lib.Len()))
	return nil
}

// Search 按关键词、角色与能力搜索
func (s *AgentService) Search(_ context.Context, req *api.AgentSearchRequest) (*api.AgentListResponse, error) {
	role := library.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	switch role {
	case "", library.RoleCoordinator, library.RoleSupervisor, library.RoleWorker, library.RoleSpecialist:
	default:
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid role %q: use coordinator, supervisor, worker or specialist", req.Role))
	}
	limit := clampLimit(req.Limit, defaultAgentLimit)
	offset := max(req.Offset, 0)

	agents, total := s.lib.Search(library.SearchQuery{
		Query:        req.Query,
		Role:         role,
		Capabilities: req.Capabilities,
		Limit:        limit,
		Offset:       offset,
	})
	return &api.AgentListResponse{Agents: agents, Total: total, Limit: limit, Offset: offset}, nil
}

// Get 返回智能体元数据、配置与使用统计
func (s *AgentService) Get(_ context.Context, id string) (*api.AgentResponse, error) {
	meta, data, err := s.lib.Get(id)
	if err != nil {
		return nil, err
	}
	return &api.AgentResponse{
		Agent:      *meta,
		ConfigData: data,
		UsageStats: s.usageStats(meta.Name),
	}, nil
}

// Stats 智能体库统计
func (s *AgentService) Stats(_ context.Context) library.Stats {
	return s.lib.Stats()
}

// Compatibility 至少两个智能体的两两兼容度
func (s *AgentService) Compatibility(_ context.Context, req *api.AgentCompatibilityRequest) (*library.CompatibilityReport, error) {
	return s.lib.Compatibility(req.AgentIDs)
}

// TeamSuggestions 至多 3 种团队组成。preferred_team_size 包含 Coordinator。
func (s *AgentService) TeamSuggestions(_ context.Context, req *api.TeamSuggestionRequest) (*library.SuggestionResult, error) {
	if strings.TrimSpace(req.TaskDescription) == "" {
		return nil, types.NewInvalidRequestError("task_description is required")
	}
	size := req.PreferredTeamSize
	if size != 0 && (size < minTeamSize || size > maxTeamSize) {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("preferred_team_size must be between %d and %d", minTeamSize, maxTeamSize))
	}
	if req.TeamType != "" && !slices.Contains(teamTypes, req.TeamType) {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid team_type %q: use hierarchical, flat or pipeline", req.TeamType))
	}

	res, err := s.lib.TeamSuggestions(req.TaskDescription, req.RequiredCapabilities, maxTeamSuggestion)
	if err != nil {
		return nil, err
	}
	if size > 0 {
		for i := range res.Suggestions {
			trimSuggestion(&res.Suggestions[i], size, res.TaskAnalysis.RequiredCapabilities)
		}
	}
	return res, nil
}

func trimSuggestion(sg *library.TeamSuggestion, size int, needed []string) {
	limit := size
	if sg.Coordinator != nil {
		limit--
	}
	limit = max(limit, 1)
	if len(sg.Workers) <= limit {
		return
	}
	sg.Workers = sg.Workers[:limit]

	covered := []string{}
	for _, w := range sg.Workers {
		for _, c := range w.Capabilities {
			if slices.Contains(needed, c) && !slices.Contains(covered, c) {
				covered = append(covered, c)
			}
		}
	}
	sg.CoveredCapabilities = covered
}

// =============================================================================
// 使用统计
// =============================================================================

// RecordExecution 作为 ExecutionObserver 累计 Worker 的使用统计
func (s *AgentService) RecordExecution(e *store.Execution, worker string) {
	if worker == "" || e.CompletedAt == nil {
		return
	}
	key := strings.ToLower(worker)

	var dur time.Duration
	if e.StartedAt != nil {
		dur = e.CompletedAt.Sub(*e.StartedAt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.usage[key]
	if !ok {
		c = &usageCounter{}
		s.usage[key] = c
	}
	c.total++
	if e.Status == store.StatusCompleted {
		c.succeeded++
	}
	c.totalTime += dur
	c.lastUsed = *e.CompletedAt
}

func (s *AgentService) usageStats(name string) api.AgentUsageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.usage[strings.ToLower(name)]
	if !ok || c.total == 0 {
		return api.AgentUsageStats{}
	}
	last := c.lastUsed
	return api.AgentUsageStats{
		TotalExecutions:     c.total,
		SuccessRate:         float64(c.succeeded) / float64(c.total),
		AverageResponseTime: c.totalTime.Seconds() / float64(c.total),
		LastUsed:            &last,
	}
}
