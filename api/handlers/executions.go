package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/service"
	"github.com/BaSui01/agentteams/internal/store"
)

const streamWriteTimeout = 10 * time.Second

// =============================================================================
// ⚙️ 执行 Handler
// =============================================================================

// ExecutionHandler 提交、查询、取消与订阅执行
type ExecutionHandler struct {
	executions *service.ExecutionService
	// originPatterns websocket 允许的跨域来源，为空时只接受同源
	originPatterns []string
	logger         *zap.Logger
}

// NewExecutionHandler 创建执行处理器
func NewExecutionHandler(executions *service.ExecutionService, originPatterns []string, logger *zap.Logger) *ExecutionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionHandler{
		executions:     executions,
		originPatterns: originPatterns,
		logger:         logger.With(zap.String("handler", "executions")),
	}
}

// HandleExecute 提交团队执行
// @Summary 提交执行
// @Description 创建 pending 执行并立即返回，任务在后台运行
// @Tags 执行
// @Accept json
// @Produce json
// @Param team_id path string true "团队 ID"
// @Param request body api.ExecutionRequest true "执行请求"
// @Success 202 {object} Response{data=api.ExecutionResponse}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/executions/{team_id}/execute [post]
func (h *ExecutionHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req api.ExecutionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	h.execute(w, r, &req)
}

// HandleExecuteWorker 直接在指定 Worker 上执行
// @Summary 指定 Worker 执行
// @Tags 执行
// @Accept json
// @Produce json
// @Param team_id path string true "团队 ID"
// @Param worker_id path string true "Worker 名称"
// @Param request body api.ExecutionRequest true "执行请求"
// @Success 202 {object} Response{data=api.ExecutionResponse}
// @Failure 404 {object} Response "团队或 Worker 不存在"
// @Router /api/v1/executions/{team_id}/workers/{worker_id}/execute [post]
func (h *ExecutionHandler) HandleExecuteWorker(w http.ResponseWriter, r *http.Request) {
	var req api.ExecutionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	req.WorkerID = r.PathValue("worker_id")
	h.execute(w, r, &req)
}

func (h *ExecutionHandler) execute(w http.ResponseWriter, r *http.Request, req *api.ExecutionRequest) {
	resp, err := h.executions.Execute(r.Context(), r.PathValue("team_id"), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteData(w, r, http.StatusAccepted, resp)
}

// HandleList 通过查询参数过滤执行
// @Summary 执行列表
// @Tags 执行
// @Produce json
// @Param team_id query string false "团队 ID"
// @Param status query string false "pending|running|completed|failed|timeout"
// @Param order_by query string false "created_at|completed_at|status"
// @Param order_direction query string false "asc|desc"
// @Param limit query int false "每页数量" default(50)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} Response{data=api.ExecutionListResponse}
// @Failure 400 {object} Response
// @Router /api/v1/executions [get]
func (h *ExecutionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := api.ExecutionListRequest{
		TeamID:         q.Get("team_id"),
		Status:         q.Get("status"),
		OrderBy:        q.Get("order_by"),
		OrderDirection: q.Get("order_direction"),
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
	h.list(w, r, &req)
}

// HandleListPost 以 JSON 请求体过滤执行
// @Summary 执行列表（POST）
// @Tags 执行
// @Accept json
// @Produce json
// @Param request body api.ExecutionListRequest false "过滤条件"
// @Success 200 {object} Response{data=api.ExecutionListResponse}
// @Router /api/v1/executions [post]
func (h *ExecutionHandler) HandleListPost(w http.ResponseWriter, r *http.Request) {
	var req api.ExecutionListRequest
	if err := DecodeOptionalJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	h.list(w, r, &req)
}

func (h *ExecutionHandler) list(w http.ResponseWriter, r *http.Request, req *api.ExecutionListRequest) {
	resp, err := h.executions.List(r.Context(), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleGet 执行详情
// @Summary 执行详情
// @Tags 执行
// @Produce json
// @Param id path string true "执行 ID"
// @Success 200 {object} Response{data=api.ExecutionResponse}
// @Failure 404 {object} Response
// @Router /api/v1/executions/{id} [get]
func (h *ExecutionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	resp, err := h.executions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleCancel 取消执行
// @Summary 取消执行
// @Tags 执行
// @Accept json
// @Produce json
// @Param id path string true "执行 ID"
// @Param request body api.ExecutionCancelRequest false "取消原因"
// @Success 200 {object} Response{data=api.ExecutionCancelResponse}
// @Failure 404 {object} Response
// @Failure 409 {object} Response "执行已结束"
// @Router /api/v1/executions/{id}/cancel [post]
func (h *ExecutionHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req api.ExecutionCancelRequest
	if err := DecodeOptionalJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.executions.Cancel(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleStream 通过 websocket 推送执行状态，终态后以正常关闭码结束
// @Summary 执行状态流
// @Tags 执行
// @Param id path string true "执行 ID"
// @Success 101 {object} api.ExecutionResponse "websocket 消息"
// @Failure 404 {object} Response
// @Router /api/v1/executions/{id}/stream [get]
func (h *ExecutionHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	updates, unsubscribe, err := h.executions.Subscribe(r.Context(), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		// Accept 已写出错误响应
		h.logger.Debug("websocket accept failed", zap.String("execution_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// 客户端不发送消息，CloseRead 负责处理关闭帧
	ctx := conn.CloseRead(r.Context())

	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-updates:
			if !ok {
				// 缓冲已满时中间状态可能被丢弃，结束前补发终态
				if !store.ExecutionStatus(last).Terminal() {
					if final, err := h.executions.Get(ctx, id); err == nil {
						if err := h.write(ctx, conn, final); err != nil {
							return
						}
					}
				}
				conn.Close(websocket.StatusNormalClosure, "execution finished")
				return
			}
			if err := h.write(ctx, conn, &resp); err != nil {
				h.logger.Debug("websocket write failed", zap.String("execution_id", id), zap.Error(err))
				return
			}
			last = resp.Status.Status
		}
	}
}

func (h *ExecutionHandler) write(ctx context.Context, conn *websocket.Conn, resp *api.ExecutionResponse) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, resp)
}
