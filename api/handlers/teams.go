package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/service"
)

// =============================================================================
// 👥 团队管理 Handler
// =============================================================================

// TeamHandler 团队 CRUD、状态、路由统计与评估
type TeamHandler struct {
	teams       *service.TeamService
	evaluations *service.EvaluationService
	logger      *zap.Logger
}

// NewTeamHandler 创建团队处理器
func NewTeamHandler(teams *service.TeamService, evaluations *service.EvaluationService, logger *zap.Logger) *TeamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamHandler{
		teams:       teams,
		evaluations: evaluations,
		logger:      logger.With(zap.String("handler", "teams")),
	}
}

// HandleCreate 创建层级团队
// @Summary 创建团队
// @Description 从 config_data、config_file_path 或 template_id 之一创建团队
// @Tags 团队
// @Accept json
// @Produce json
// @Param request body api.CreateTeamRequest true "创建请求"
// @Success 201 {object} Response{data=api.TeamResponse}
// @Failure 400 {object} Response
// @Failure 404 {object} Response "模板不存在"
// @Router /api/v1/teams [post]
func (h *TeamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTeamRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.teams.Create(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteData(w, r, http.StatusCreated, resp)
}

// HandleList 分页列出团队
// @Summary 团队列表
// @Tags 团队
// @Produce json
// @Param limit query int false "每页数量" default(100)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} Response{data=api.TeamListResponse}
// @Router /api/v1/teams [get]
func (h *TeamHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.teams.List(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleGet 团队详情
// @Summary 团队详情
// @Tags 团队
// @Produce json
// @Param id path string true "团队 ID"
// @Success 200 {object} Response{data=api.TeamResponse}
// @Failure 404 {object} Response
// @Router /api/v1/teams/{id} [get]
func (h *TeamHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	resp, err := h.teams.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleUpdate 更新团队
// @Summary 更新团队
// @Description 提供 config_data 时重建运行时团队
// @Tags 团队
// @Accept json
// @Produce json
// @Param id path string true "团队 ID"
// @Param request body api.UpdateTeamRequest true "更新请求"
// @Success 200 {object} Response{data=api.TeamResponse}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/teams/{id} [put]
func (h *TeamHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateTeamRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.teams.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleDelete 删除团队
// @Summary 删除团队
// @Tags 团队
// @Produce json
// @Param id path string true "团队 ID"
// @Success 200 {object} Response{data=api.TeamDeleteResponse}
// @Failure 404 {object} Response
// @Router /api/v1/teams/{id} [delete]
func (h *TeamHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	resp, err := h.teams.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleStatus 团队运行状态
// @Summary 团队状态
// @Tags 团队
// @Produce json
// @Param id path string true "团队 ID"
// @Success 200 {object} Response{data=api.TeamStatusResponse}
// @Failure 404 {object} Response
// @Router /api/v1/teams/{id}/status [get]
func (h *TeamHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.teams.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleRouting 路由统计
// @Summary 路由统计
// @Description Coordinator 与各 Supervisor 的路由决策统计
// @Tags 团队
// @Produce json
// @Param id path string true "团队 ID"
// @Success 200 {object} Response{data=hierarchical.RoutingStats}
// @Failure 404 {object} Response
// @Router /api/v1/teams/{id}/routing [get]
func (h *TeamHandler) HandleRouting(w http.ResponseWriter, r *http.Request) {
	stats, err := h.teams.Routing(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, stats)
}

// HandleEvaluate 同步运行团队评估
// @Summary 评估团队
// @Tags 团队
// @Accept json
// @Produce json
// @Param id path string true "团队 ID"
// @Param request body api.EvaluateRequest false "场景集与评估维度"
// @Success 200 {object} Response{data=evaluation.Result}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/teams/{id}/evaluate [post]
func (h *TeamHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req api.EvaluateRequest
	if err := DecodeOptionalJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	result, err := h.evaluations.Evaluate(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, result)
}
