package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/config"
	"github.com/BaSui01/agentteams/types"
)

// =============================================================================
// ⚙️ 服务配置 Handler
// =============================================================================

// SystemConfigHandler 服务配置的版本查询、手动重载与回滚
type SystemConfigHandler struct {
	reloader *config.HotReloadManager
	logger   *zap.Logger
}

// NewSystemConfigHandler 创建服务配置处理器
func NewSystemConfigHandler(reloader *config.HotReloadManager, logger *zap.Logger) *SystemConfigHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemConfigHandler{
		reloader: reloader,
		logger:   logger.With(zap.String("handler", "system_config")),
	}
}

// HandleStatus 配置版本历史与可热更新字段
// @Summary 服务配置状态
// @Tags 系统
// @Produce json
// @Success 200 {object} Response{data=api.ServiceConfigStatus}
// @Router /api/v1/system/config [get]
func (h *SystemConfigHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.status())
}

// HandleReload 立即从配置文件重载
// @Summary 重载服务配置
// @Tags 系统
// @Produce json
// @Success 200 {object} Response{data=api.ServiceConfigStatus}
// @Failure 400 {object} Response "未指定配置文件或配置无效"
// @Router /api/v1/system/config/reload [post]
func (h *SystemConfigHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.reloader.ReloadFromFile(); err != nil {
		if errors.Is(err, config.ErrNoConfigPath) {
			WriteError(w, r, types.NewInvalidRequestError("server was started without a config file"), h.logger)
			return
		}
		WriteError(w, r, types.NewError(types.ErrInvalidConfig, "config reload failed").WithCause(err), h.logger)
		return
	}
	h.logger.Info("service config reloaded via api", zap.Int("version", h.reloader.CurrentVersion()))
	WriteSuccess(w, r, h.status())
}

// HandleRollback 回滚到上一次生效的配置
// @Summary 回滚服务配置
// @Tags 系统
// @Produce json
// @Success 200 {object} Response{data=api.ServiceConfigStatus}
// @Failure 409 {object} Response "没有可回滚的配置"
// @Router /api/v1/system/config/rollback [post]
func (h *SystemConfigHandler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	if err := h.reloader.Rollback(); err != nil {
		if errors.Is(err, config.ErrNoPreviousConfig) {
			WriteError(w, r, types.NewError(types.ErrConflict, err.Error()), h.logger)
			return
		}
		WriteError(w, r, err, h.logger)
		return
	}
	h.logger.Warn("service config rolled back via api", zap.Int("version", h.reloader.CurrentVersion()))
	WriteSuccess(w, r, h.status())
}

func (h *SystemConfigHandler) status() *api.ServiceConfigStatus {
	history := h.reloader.History()
	out := &api.ServiceConfigStatus{
		CurrentVersion: h.reloader.CurrentVersion(),
		WatchEnabled:   h.reloader.IsRunning(),
		History:        make([]api.ConfigVersion, 0, len(history)),
	}
	for _, s := range history {
		out.History = append(out.History, api.ConfigVersion{
			Version:   s.Version,
			Source:    s.Source,
			Timestamp: s.Timestamp,
			Checksum:  s.Checksum,
		})
	}
	for _, f := range config.HotReloadableFields() {
		out.HotReloadable = append(out.HotReloadable, api.ConfigField{Path: f.Path, Description: f.Description})
	}
	return out
}
