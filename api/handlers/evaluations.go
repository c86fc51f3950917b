package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/service"
)

// EvaluationHandler 评估结果查询与对比
type EvaluationHandler struct {
	evaluations *service.EvaluationService
	logger      *zap.Logger
}

// NewEvaluationHandler 创建评估处理器
func NewEvaluationHandler(evaluations *service.EvaluationService, logger *zap.Logger) *EvaluationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationHandler{
		evaluations: evaluations,
		logger:      logger.With(zap.String("handler", "evaluations")),
	}
}

// HandleGet 评估结果
// @Summary 评估结果
// @Tags 评估
// @Produce json
// @Param id path string true "评估 ID"
// @Success 200 {object} Response{data=evaluation.Result}
// @Failure 404 {object} Response
// @Router /api/v1/evaluations/{id} [get]
func (h *EvaluationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	result, err := h.evaluations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, result)
}

// HandleCompare 对比评估结果
// @Summary 对比评估
// @Tags 评估
// @Accept json
// @Produce json
// @Param request body api.CompareRequest true "至少两个评估 ID"
// @Success 200 {object} Response{data=evaluation.Comparison}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/evaluations/compare [post]
func (h *EvaluationHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req api.CompareRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.evaluations.Compare(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}
