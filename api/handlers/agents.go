package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/service"
)

// =============================================================================
// 📚 智能体库 Handler
// =============================================================================

// AgentHandler 智能体库查询
type AgentHandler struct {
	agents *service.AgentService
	logger *zap.Logger
}

// NewAgentHandler 创建智能体库处理器
func NewAgentHandler(agents *service.AgentService, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		agents: agents,
		logger: logger.With(zap.String("handler", "agents")),
	}
}

// HandleList 通过查询参数搜索智能体
// @Summary 智能体列表
// @Tags 智能体库
// @Produce json
// @Param query query string false "关键词"
// @Param capabilities query string false "能力，逗号分隔或重复参数"
// @Param role query string false "coordinator|supervisor|worker|specialist"
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} Response{data=api.AgentListResponse}
// @Failure 400 {object} Response
// @Router /api/v1/agents [get]
func (h *AgentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := api.AgentSearchRequest{
		Query:        q.Get("query"),
		Role:         q.Get("role"),
		Capabilities: splitList(q["capabilities"]),
	}
	var err error
	if req.Limit, err = queryInt(r, "limit", 0); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if req.Offset, err = queryInt(r, "offset", 0); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.search(w, r, &req)
}

// HandleSearch 以 JSON 请求体搜索智能体
// @Summary 搜索智能体
// @Tags 智能体库
// @Accept json
// @Produce json
// @Param request body api.AgentSearchRequest true "搜索条件"
// @Success 200 {object} Response{data=api.AgentListResponse}
// @Router /api/v1/agents/search [post]
func (h *AgentHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req api.AgentSearchRequest
	if err := DecodeOptionalJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	h.search(w, r, &req)
}

func (h *AgentHandler) search(w http.ResponseWriter, r *http.Request, req *api.AgentSearchRequest) {
	resp, err := h.agents.Search(r.Context(), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleGet 智能体详情与使用统计
// @Summary 智能体详情
// @Tags 智能体库
// @Produce json
// @Param id path string true "智能体 ID"
// @Success 200 {object} Response{data=api.AgentResponse}
// @Failure 404 {object} Response
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	resp, err := h.agents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleStats 智能体库统计
// @Summary 智能体库统计
// @Tags 智能体库
// @Produce json
// @Success 200 {object} Response{data=library.Stats}
// @Router /api/v1/agents/stats [get]
func (h *AgentHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.agents.Stats(r.Context()))
}

// HandleCompatibility 两两兼容度
// @Summary 兼容度检查
// @Tags 智能体库
// @Accept json
// @Produce json
// @Param request body api.AgentCompatibilityRequest true "至少两个智能体 ID"
// @Success 200 {object} Response{data=library.CompatibilityReport}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/agents/compatibility [post]
func (h *AgentHandler) HandleCompatibility(w http.ResponseWriter, r *http.Request) {
	var req api.AgentCompatibilityRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.agents.Compatibility(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleTeamSuggestions 团队组成建议
// @Summary 团队组成建议
// @Tags 智能体库
// @Accept json
// @Produce json
// @Param request body api.TeamSuggestionRequest true "任务描述"
// @Success 200 {object} Response{data=library.SuggestionResult}
// @Failure 400 {object} Response
// @Router /api/v1/agents/team-suggestions [post]
func (h *AgentHandler) HandleTeamSuggestions(w http.ResponseWriter, r *http.Request) {
	var req api.TeamSuggestionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.agents.TeamSuggestions(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// splitList 合并重复参数与逗号分隔值
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
