package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// =============================================================================
// 🗄️ GORM 存储（postgres / mysql / sqlite）
// =============================================================================

// teamModel teams 表
type teamModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"size:32;not null;default:active"`
	ConfigData  string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 表名
func (teamModel) TableName() string { return "teams" }

// executionModel executions 表
type executionModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	TeamID       string `gorm:"size:64;not null;index"`
	WorkerID     string `gorm:"size:255"`
	InputText    string `gorm:"type:text"`
	Parameters   string `gorm:"type:text"`
	Status       string `gorm:"size:32;not null;index"`
	Progress     int
	Result       string `gorm:"type:text"`
	ErrorMessage string `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"index"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TableName 表名
func (executionModel) TableName() string { return "executions" }

// AutoMigrate 创建或更新表结构（主要用于 sqlite 与测试）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&teamModel{}, &executionModel{})
}

func toTeamModel(t *TeamRecord) (*teamModel, error) {
	cfg, err := marshalText(t.ConfigData)
	if err != nil {
		return nil, err
	}
	return &teamModel{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      t.Status,
		ConfigData:  cfg,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}, nil
}

func (m *teamModel) record() (*TeamRecord, error) {
	t := &TeamRecord{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if err := unmarshalText(m.ConfigData, &t.ConfigData); err != nil {
		return nil, fmt.Errorf("team %s config: %w", m.ID, err)
	}
	return t, nil
}

func toExecutionModel(e *Execution) (*executionModel, error) {
	params, err := marshalText(e.Parameters)
	if err != nil {
		return nil, err
	}
	result := ""
	if e.Result != nil {
		if result, err = marshalText(e.Result); err != nil {
			return nil, err
		}
	}
	return &executionModel{
		ID:           e.ID,
		TeamID:       e.TeamID,
		WorkerID:     e.WorkerID,
		InputText:    e.InputText,
		Parameters:   params,
		Status:       string(e.Status),
		Progress:     e.Progress,
		Result:       result,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
		StartedAt:    e.StartedAt,
		CompletedAt:  e.CompletedAt,
	}, nil
}

func (m *executionModel) record() (*Execution, error) {
	e := &Execution{
		ID:           m.ID,
		TeamID:       m.TeamID,
		WorkerID:     m.WorkerID,
		InputText:    m.InputText,
		Status:       ExecutionStatus(m.Status),
		Progress:     m.Progress,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
	if err := unmarshalText(m.Parameters, &e.Parameters); err != nil {
		return nil, fmt.Errorf("execution %s parameters: %w", m.ID, err)
	}
	if m.Result != "" {
		e.Result = &ExecutionResult{}
		if err := json.Unmarshal([]byte(m.Result), e.Result); err != nil {
			return nil, fmt.Errorf("execution %s result: %w", m.ID, err)
		}
	}
	return e, nil
}

func marshalText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal column: %w", err)
	}
	if string(data) == "null" {
		return "", nil
	}
	return string(data), nil
}

func unmarshalText(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GormTeamStore GORM 团队存储
type GormTeamStore struct {
	db *gorm.DB
}

// NewGormTeamStore 创建 GORM 团队存储
func NewGormTeamStore(db *gorm.DB) *GormTeamStore {
	return &GormTeamStore{db: db}
}

// Create 创建
func (s *GormTeamStore) Create(ctx context.Context, t *TeamRecord) error {
	m, err := toTeamModel(t)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// Get 获取
func (s *GormTeamStore) Get(ctx context.Context, id string) (*TeamRecord, error) {
	var m teamModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return m.record()
}

// List 按创建时间升序分页
func (s *GormTeamStore) List(ctx context.Context, limit, offset int) ([]TeamRecord, int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&teamModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Offset(max(offset, 0))
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []teamModel
	if err := q.Find(&models).Error; err != nil {
		return nil, 0, err
	}

	out := make([]TeamRecord, 0, len(models))
	for i := range models {
		t, err := models[i].record()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, int(total), nil
}

// Update 全量更新
func (s *GormTeamStore) Update(ctx context.Context, t *TeamRecord) error {
	m, err := toTeamModel(t)
	if err != nil {
		return err
	}
	return s.updateAll(ctx, m, m.ID)
}

func (s *GormTeamStore) updateAll(ctx context.Context, m *teamModel, id string) error {
	res := s.db.WithContext(ctx).Model(&teamModel{}).Where("id = ?", id).Select("*").Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.exists(ctx, id)
	}
	return nil
}

// exists mysql 在值未变化时 RowsAffected 为 0，需要再确认一次
func (s *GormTeamStore) exists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&teamModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除
func (s *GormTeamStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&teamModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormExecutionStore GORM 执行存储
type GormExecutionStore struct {
	db *gorm.DB
}

// NewGormExecutionStore 创建 GORM 执行存储
func NewGormExecutionStore(db *gorm.DB) *GormExecutionStore {
	return &GormExecutionStore{db: db}
}

// Create 创建
func (s *GormExecutionStore) Create(ctx context.Context, e *Execution) error {
	m, err := toExecutionModel(e)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// Get 获取
func (s *GormExecutionStore) Get(ctx context.Context, id string) (*Execution, error) {
	var m executionModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return m.record()
}

// Update 全量更新
func (s *GormExecutionStore) Update(ctx context.Context, e *Execution) error {
	m, err := toExecutionModel(e)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&executionModel{}).Where("id = ?", e.ID).Select("*").Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&executionModel{}).Where("id = ?", e.ID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List 在 SQL 中完成过滤、排序与分页
func (s *GormExecutionStore) List(ctx context.Context, filter ExecutionFilter) ([]Execution, int, error) {
	filter = filter.Normalize()

	scoped := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&executionModel{})
		if filter.TeamID != "" {
			db = db.Where("team_id = ?", filter.TeamID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", string(filter.Status))
		}
		return db
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := scoped()
	for _, order := range orderClauses(filter) {
		db = db.Order(order)
	}
	var models []executionModel
	if err := db.Offset(filter.Offset).Limit(filter.Limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	out := make([]Execution, 0, len(models))
	for i := range models {
		e, err := models[i].record()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, int(total), nil
}

// orderClauses 与内存实现一致：completed_at 为空视为最早，created_at、id 兜底
func orderClauses(f ExecutionFilter) []string {
	dir := "DESC"
	if f.OrderDirection == OrderAsc {
		dir = "ASC"
	}
	var out []string
	switch f.OrderBy {
	case OrderByStatus:
		out = append(out, "status "+dir)
	case OrderByCompletedAt:
		out = append(out, "completed_at IS NOT NULL "+dir, "completed_at "+dir)
	}
	return append(out, "created_at "+dir, "id "+dir)
}

// CountByTeam 统计
func (s *GormExecutionStore) CountByTeam(ctx context.Context, teamID string) (int, int, error) {
	var total, active int64
	if err := s.db.WithContext(ctx).Model(&executionModel{}).Where("team_id = ?", teamID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err := s.db.WithContext(ctx).Model(&executionModel{}).
		Where("team_id = ? AND status IN ?", teamID, []string{string(StatusPending), string(StatusRunning)}).
		Count(&active).Error
	if err != nil {
		return 0, 0, err
	}
	return int(active), int(total), nil
}
