package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// TeamStatus 团队记录状态
const (
	TeamStatusActive = "active"
	TeamStatusBusy   = "busy"
)

// ExecutionStatus 执行状态
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusTimeout   ExecutionStatus = "timeout"
)

// Terminal 是否为终态
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}

// Active pending 或 running
func (s ExecutionStatus) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// TeamRecord 持久化的团队
type TeamRecord struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	ConfigData  map[string]any `json:"config_data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ExecutionResult 成功执行的结果
type ExecutionResult struct {
	Response             string         `json:"response"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Reasoning            string         `json:"reasoning,omitempty"`
	IntermediateSteps    []string       `json:"intermediate_steps,omitempty"`
	UsedTools            []string       `json:"used_tools,omitempty"`
	ExecutionTimeSeconds float64        `json:"execution_time_seconds"`
}

// Execution 一次执行记录
type Execution struct {
	ID           string           `json:"id"`
	TeamID       string           `json:"team_id"`
	WorkerID     string           `json:"worker_id,omitempty"`
	InputText    string           `json:"input_text"`
	Parameters   map[string]any   `json:"parameters,omitempty"`
	Status       ExecutionStatus  `json:"status"`
	Progress     int              `json:"progress"`
	Result       *ExecutionResult `json:"result,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// Order 字段
const (
	OrderByCreatedAt   = "created_at"
	OrderByCompletedAt = "completed_at"
	OrderByStatus      = "status"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ExecutionFilter 执行列表过滤条件
type ExecutionFilter struct {
	TeamID         string          `json:"team_id,omitempty"`
	Status         ExecutionStatus `json:"status,omitempty"`
	OrderBy        string          `json:"order_by,omitempty"`
	OrderDirection string          `json:"order_direction,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
}

// Normalize 补齐默认值：created_at / desc / limit 50，limit 限制在 [1, 1000]
func (f ExecutionFilter) Normalize() ExecutionFilter {
	switch f.OrderBy {
	case OrderByCreatedAt, OrderByCompletedAt, OrderByStatus:
	default:
		f.OrderBy = OrderByCreatedAt
	}
	if f.OrderDirection != OrderAsc {
		f.OrderDirection = OrderDesc
	}
	switch {
	case f.Limit == 0:
		f.Limit = 50
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > 1000:
		f.Limit = 1000
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// TeamStore 团队存储
type TeamStore interface {
	Create(ctx context.Context, t *TeamRecord) error
	Get(ctx context.Context, id string) (*TeamRecord, error)
	// List 按创建顺序分页，返回总数
	List(ctx context.Context, limit, offset int) ([]TeamRecord, int, error)
	Update(ctx context.Context, t *TeamRecord) error
	Delete(ctx context.Context, id string) error
}

// ExecutionStore 执行记录存储
type ExecutionStore interface {
	Create(ctx context.Context, e *Execution) error
	Get(ctx context.Context, id string) (*Execution, error)
	Update(ctx context.Context, e *Execution) error
	List(ctx context.Context, filter ExecutionFilter) ([]Execution, int, error)
	// CountByTeam 返回 pending/running 数与总数
	CountByTeam(ctx context.Context, teamID string) (active, total int, err error)
}
