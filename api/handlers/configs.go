package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/service"
	"github.com/BaSui01/agentteams/types"
)

// multipart 编码开销
const multipartOverhead = 1 << 20

// ConfigHandler 配置校验、分析、上传、模板与导出
type ConfigHandler struct {
	configs *service.ConfigService
	logger  *zap.Logger
}

// NewConfigHandler 创建配置处理器
func NewConfigHandler(configs *service.ConfigService, logger *zap.Logger) *ConfigHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigHandler{
		configs: configs,
		logger:  logger.With(zap.String("handler", "configs")),
	}
}

// HandleValidate 校验配置
// @Summary 校验配置
// @Description 校验层级或单智能体配置，错误与警告分开返回
// @Tags 配置
// @Accept json
// @Produce json
// @Param request body api.ConfigValidationRequest true "配置"
// @Success 200 {object} Response{data=api.ConfigValidationResponse}
// @Failure 400 {object} Response
// @Router /api/v1/configs/validate [post]
func (h *ConfigHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req api.ConfigValidationRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.configs.Validate(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleAnalyze 层级结构分析报告
// @Summary 分析配置
// @Tags 配置
// @Accept json
// @Produce json
// @Param request body api.ConfigAnalyzeRequest true "配置"
// @Success 200 {object} Response{data=validation.Report}
// @Router /api/v1/configs/analyze [post]
func (h *ConfigHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req api.ConfigAnalyzeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	report, err := h.configs.Analyze(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, report)
}

// HandleUpload 上传配置文件（multipart 字段 file）
// @Summary 上传配置
// @Tags 配置
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "yaml 或 json 配置文件"
// @Success 200 {object} Response{data=api.ConfigUploadResponse}
// @Failure 400 {object} Response
// @Failure 413 {object} Response
// @Router /api/v1/configs/upload [post]
func (h *ConfigHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.configs.MaxUploadSize()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, r, types.NewError(types.ErrPayloadTooLarge, "request body too large"), h.logger)
			return
		}
		WriteError(w, r, types.NewInvalidRequestError("invalid multipart form: "+err.Error()), h.logger)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, types.NewInvalidRequestError("form field 'file' is required"), h.logger)
		return
	}
	defer file.Close()

	// 多读一个字节用于判断是否超限
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		WriteError(w, r, types.NewInvalidRequestError("cannot read uploaded file").WithCause(err), h.logger)
		return
	}

	resp, err := h.configs.Upload(r.Context(), header.Filename, content)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleListTemplates 模板列表
// @Summary 模板列表
// @Tags 配置
// @Produce json
// @Success 200 {object} Response{data=api.TemplateListResponse}
// @Router /api/v1/configs/templates [get]
func (h *ConfigHandler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.configs.ListTemplates(r.Context()))
}

// HandleGetTemplate 模板详情
// @Summary 模板详情
// @Tags 配置
// @Produce json
// @Param id path string true "模板 ID"
// @Success 200 {object} Response{data=api.TemplateResponse}
// @Failure 404 {object} Response
// @Router /api/v1/configs/templates/{id} [get]
func (h *ConfigHandler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.configs.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}

// HandleExport 导出团队配置
// @Summary 导出配置
// @Tags 配置
// @Accept json
// @Produce json
// @Param request body api.ConfigExportRequest true "导出请求"
// @Success 200 {object} Response{data=api.ConfigExportResponse}
// @Failure 404 {object} Response
// @Router /api/v1/configs/export [post]
func (h *ConfigHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req api.ConfigExportRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	resp, err := h.configs.Export(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, resp)
}
