package api

import (
	"time"

	"github.com/BaSui01/agentteams/agent/hierarchical"
	"github.com/BaSui01/agentteams/agent/library"
	"github.com/BaSui01/agentteams/teamconfig"
)

// =============================================================================
// 团队类型
// =============================================================================

// CreateTeamRequest 创建层级团队。配置来源为 config_data、config_file_path、
// template_id 三者之一。
// @Description 创建团队请求
type CreateTeamRequest struct {
	// 团队名称，为空时使用配置中的 team.name
	Name string `json:"name,omitempty" example:"research-team"`
	// 团队描述
	Description string `json:"description,omitempty"`
	// 内联配置
	ConfigData map[string]any `json:"config_data,omitempty"`
	// 服务端配置文件路径
	ConfigFilePath string `json:"config_file_path,omitempty"`
	// 模板 ID
	TemplateID string `json:"template_id,omitempty" example:"research_team"`
}

// UpdateTeamRequest 更新团队，未提供的字段保持不变
// @Description 更新团队请求
type UpdateTeamRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	ConfigData  map[string]any `json:"config_data,omitempty"`
}

// TeamResponse 团队信息
// @Description 团队信息
type TeamResponse struct {
	ID            string                      `json:"id"`
	Name          string                      `json:"name"`
	Description   string                      `json:"description,omitempty"`
	Status        string                      `json:"status" example:"active"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	HierarchyInfo *hierarchical.HierarchyInfo `json:"hierarchy_info,omitempty"`
	ConfigData    map[string]any              `json:"config_data,omitempty"`
}

// TeamListResponse 团队列表
type TeamListResponse struct {
	Teams []TeamResponse `json:"teams"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// TeamDeleteResponse 删除结果
type TeamDeleteResponse struct {
	Message   string    `json:"message"`
	TeamID    string    `json:"team_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TeamStatusResponse 团队运行状态
type TeamStatusResponse struct {
	ID               string                      `json:"id"`
	Name             string                      `json:"name"`
	Status           string                      `json:"status" example:"busy"`
	ActiveExecutions int                         `json:"active_executions"`
	TotalExecutions  int                         `json:"total_executions"`
	LastActivity     *time.Time                  `json:"last_activity,omitempty"`
	HierarchyInfo    *hierarchical.HierarchyInfo `json:"hierarchy_info,omitempty"`
}

// =============================================================================
// 执行类型
// =============================================================================

// ExecutionRequest 提交执行
// @Description 执行请求
type ExecutionRequest struct {
	// 输入文本
	InputText string `json:"input_text" example:"Summarize recent AI research"`
	// 指定 Worker（可选，路径参数优先）
	WorkerID string `json:"worker_id,omitempty"`
	// 超时秒数，为 0 时使用服务默认值
	TimeoutSeconds int `json:"timeout_seconds,omitempty" example:"120"`
	// 附加参数
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ExecutionStatus 执行状态
type ExecutionStatus struct {
	Status       string     `json:"status" example:"running"`
	Progress     int        `json:"progress"`
	CurrentStep  string     `json:"current_step,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ExecutionMetadata 执行元数据
type ExecutionMetadata struct {
	ExecutionID string         `json:"execution_id"`
	TeamID      string         `json:"team_id"`
	WorkerID    string         `json:"worker_id,omitempty"`
	InputText   string         `json:"input_text"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ExecutionResult 执行结果
type ExecutionResult struct {
	Response             string         `json:"response"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Reasoning            string         `json:"reasoning,omitempty"`
	IntermediateSteps    []string       `json:"intermediate_steps,omitempty"`
	UsedTools            []string       `json:"used_tools,omitempty"`
	ExecutionTimeSeconds float64        `json:"execution_time_seconds"`
}

// ExecutionResponse 完整执行信息
type ExecutionResponse struct {
	ExecutionID string            `json:"execution_id"`
	Status      ExecutionStatus   `json:"status"`
	Metadata    ExecutionMetadata `json:"metadata"`
	Result      *ExecutionResult  `json:"result,omitempty"`
}

// ExecutionListRequest 执行列表过滤
type ExecutionListRequest struct {
	TeamID         string `json:"team_id,omitempty"`
	Status         string `json:"status,omitempty"`
	OrderBy        string `json:"order_by,omitempty" example:"created_at"`
	OrderDirection string `json:"order_direction,omitempty" example:"desc"`
	Limit          int    `json:"limit,omitempty" example:"50"`
	Offset         int    `json:"offset,omitempty"`
}

// ExecutionListResponse 执行列表
type ExecutionListResponse struct {
	Executions []ExecutionResponse `json:"executions"`
	Total      int                 `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// ExecutionCancelRequest 取消执行
type ExecutionCancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ExecutionCancelResponse 取消结果
type ExecutionCancelResponse struct {
	ExecutionID string    `json:"execution_id"`
	Message     string    `json:"message"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// =============================================================================
// 配置类型
// =============================================================================

// ConfigValidationRequest 校验配置
type ConfigValidationRequest struct {
	ConfigData map[string]any `json:"config_data"`
	// hierarchical 或 single，默认 hierarchical
	ConfigType string `json:"config_type,omitempty" example:"hierarchical"`
}

// ConfigValidationResponse 校验结果
type ConfigValidationResponse struct {
	Valid       bool      `json:"valid"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
	ConfigType  string    `json:"config_type"`
	ValidatedAt time.Time `json:"validated_at"`
}

// ConfigAnalyzeRequest 层级结构分析
type ConfigAnalyzeRequest struct {
	ConfigData map[string]any `json:"config_data"`
}

// ConfigUploadResponse 上传结果
type ConfigUploadResponse struct {
	FileID           string                    `json:"file_id"`
	Filename         string                    `json:"filename"`
	UploadedAt       time.Time                 `json:"uploaded_at"`
	ValidationResult *ConfigValidationResponse `json:"validation_result,omitempty"`
}

// TemplateListResponse 模板列表
type TemplateListResponse struct {
	Templates []teamconfig.TemplateInfo `json:"templates"`
	Total     int                       `json:"total"`
}

// TemplateResponse 单个模板
type TemplateResponse struct {
	Template   teamconfig.TemplateInfo `json:"template"`
	ConfigData map[string]any          `json:"config_data"`
}

// ConfigExportRequest 导出团队配置
type ConfigExportRequest struct {
	TeamID string `json:"team_id"`
	// yaml 或 json，默认 yaml
	Format string `json:"format,omitempty" example:"yaml"`
	// 默认 true
	IncludeMetadata *bool `json:"include_metadata,omitempty"`
}

// ConfigExportResponse 导出结果
type ConfigExportResponse struct {
	TeamID     string    `json:"team_id"`
	Format     string    `json:"format"`
	Content    string    `json:"content"`
	Filename   string    `json:"filename"`
	ExportedAt time.Time `json:"exported_at"`
}

// =============================================================================
// 智能体库类型
// =============================================================================

// AgentSearchRequest 搜索智能体
type AgentSearchRequest struct {
	Query        string   `json:"query,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Role         string   `json:"role,omitempty" example:"worker"`
	Limit        int      `json:"limit,omitempty" example:"50"`
	Offset       int      `json:"offset,omitempty"`
}

// AgentListResponse 智能体列表
type AgentListResponse struct {
	Agents []library.AgentMetadata `json:"agents"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// AgentUsageStats 由执行结果累计的使用统计
type AgentUsageStats struct {
	TotalExecutions     int        `json:"total_executions"`
	SuccessRate         float64    `json:"success_rate"`
	AverageResponseTime float64    `json:"average_response_time"`
	LastUsed            *time.Time `json:"last_used"`
}

// AgentResponse 智能体详情
type AgentResponse struct {
	Agent      library.AgentMetadata `json:"agent"`
	ConfigData map[string]any        `json:"config_data,omitempty"`
	UsageStats AgentUsageStats       `json:"usage_stats"`
}

// AgentCompatibilityRequest 兼容度检查
type AgentCompatibilityRequest struct {
	AgentIDs []string `json:"agent_ids"`
}

// TeamSuggestionRequest 团队组成建议
type TeamSuggestionRequest struct {
	TaskDescription      string   `json:"task_description"`
	PreferredTeamSize    int      `json:"preferred_team_size,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	TeamType             string   `json:"team_type,omitempty" example:"hierarchical"`
}

// =============================================================================
// 评估类型
// =============================================================================

// EvaluateRequest 运行团队评估
type EvaluateRequest struct {
	// quick、comprehensive 或 domain:<name>
	ScenarioSet string   `json:"scenario_set,omitempty" example:"quick"`
	Dimensions  []string `json:"dimensions,omitempty"`
}

// CompareRequest 对比评估结果
type CompareRequest struct {
	EvaluationIDs []string `json:"evaluation_ids"`
}

// =============================================================================
// 服务信息
// =============================================================================

// HealthResponse /health 响应
type HealthResponse struct {
	Status           string    `json:"status" example:"healthy"`
	Version          string    `json:"version"`
	TeamsCount       int       `json:"teams_count"`
	ActiveExecutions int       `json:"active_executions"`
	Timestamp        time.Time `json:"timestamp"`
}

// ServiceInfo / 响应
type ServiceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Docs    string `json:"docs,omitempty"`
	Health  string `json:"health"`
}

// =============================================================================
// 服务配置热重载
// =============================================================================

// ConfigVersion 配置历史版本，不含配置内容
type ConfigVersion struct {
	Version   int       `json:"version"`
	Source    string    `json:"source" example:"file"`
	Timestamp time.Time `json:"timestamp"`
	Checksum  string    `json:"checksum"`
}

// ConfigField 可热更新的配置字段
type ConfigField struct {
	Path        string `json:"path" example:"Log.Level"`
	Description string `json:"description"`
}

// ServiceConfigStatus 服务配置版本与可热更新字段
type ServiceConfigStatus struct {
	CurrentVersion int             `json:"current_version"`
	WatchEnabled   bool            `json:"watch_enabled"`
	History        []ConfigVersion `json:"history"`
	HotReloadable  []ConfigField   `json:"hot_reloadable"`
}
