package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/agentteams/teamconfig"
)

// =============================================================================
// 内存存储
// =============================================================================

// MemoryTeamStore 基于 map 的团队存储，列表保持插入顺序
type MemoryTeamStore struct {
	mu    sync.RWMutex
	teams map[string]*TeamRecord
	order []string
}

// NewMemoryTeamStore 创建内存团队存储
func NewMemoryTeamStore() *MemoryTeamStore {
	return &MemoryTeamStore{teams: make(map[string]*TeamRecord)}
}

// Create 创建
func (s *MemoryTeamStore) Create(_ context.Context, t *TeamRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.teams[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.teams[t.ID] = cloneTeam(t)
	return nil
}

// Get 获取
func (s *MemoryTeamStore) Get(_ context.Context, id string) (*TeamRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTeam(t), nil
}

// List 分页
func (s *MemoryTeamStore) List(_ context.Context, limit, offset int) ([]TeamRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	out := []TeamRecord{}
	for _, id := range page(s.order, limit, offset) {
		out = append(out, *cloneTeam(s.teams[id]))
	}
	return out, total, nil
}

// Update 更新
func (s *MemoryTeamStore) Update(_ context.Context, t *TeamRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; !ok {
		return ErrNotFound
	}
	s.teams[t.ID] = cloneTeam(t)
	return nil
}

// Delete 删除
func (s *MemoryTeamStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return ErrNotFound
	}
	delete(s.teams, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryExecutionStore 基于 map 的执行记录存储
type MemoryExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]*Execution
}

// NewMemoryExecutionStore 创建内存执行存储
func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{executions: make(map[string]*Execution)}
}

// Create 创建
func (s *MemoryExecutionStore) Create(_ context.Context, e *Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[e.ID] = cloneExecution(e)
	return nil
}

// Get 获取
func (s *MemoryExecutionStore) Get(_ context.Context, id string) (*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneExecution(e), nil
}

// Update 更新
func (s *MemoryExecutionStore) Update(_ context.Context, e *Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[e.ID]; !ok {
		return ErrNotFound
	}
	s.executions[e.ID] = cloneExecution(e)
	return nil
}

// List 过滤、排序、分页
func (s *MemoryExecutionStore) List(_ context.Context, filter ExecutionFilter) ([]Execution, int, error) {
	s.mu.RLock()
	matched := make([]Execution, 0, len(s.executions))
	for _, e := range s.executions {
		if filter.matches(e) {
			matched = append(matched, *cloneExecution(e))
		}
	}
	s.mu.RUnlock()

	return sortAndPage(matched, filter)
}

// CountByTeam 统计
func (s *MemoryExecutionStore) CountByTeam(_ context.Context, teamID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active, total := 0, 0
	for _, e := range s.executions {
		if e.TeamID != teamID {
			continue
		}
		total++
		if e.Status.Active() {
			active++
		}
	}
	return active, total, nil
}

// =============================================================================
// 共享辅助
// =============================================================================

func (f ExecutionFilter) matches(e *Execution) bool {
	if f.TeamID != "" && e.TeamID != f.TeamID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}

// sortAndPage 内存与 redis 后端共用的排序分页
func sortAndPage(list []Execution, filter ExecutionFilter) ([]Execution, int, error) {
	filter = filter.Normalize()
	sort.SliceStable(list, func(i, j int) bool {
		less := executionLess(&list[i], &list[j], filter.OrderBy)
		if filter.OrderDirection == OrderAsc {
			return less
		}
		return executionLess(&list[j], &list[i], filter.OrderBy)
	})

	total := len(list)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return list[start:end], total, nil
}

func executionLess(a, b *Execution, orderBy string) bool {
	switch orderBy {
	case OrderByStatus:
		if a.Status != b.Status {
			return a.Status < b.Status
		}
	case OrderByCompletedAt:
		ta, tb := completedAt(a), completedAt(b)
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// completedAt 未完成的记录视为零时间
func completedAt(e *Execution) time.Time {
	if e.CompletedAt != nil {
		return *e.CompletedAt
	}
	return time.Time{}
}

func page[T any](items []T, limit, offset int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 {
		end = min(offset+limit, len(items))
	}
	return items[offset:end]
}

func cloneTeam(t *TeamRecord) *TeamRecord {
	c := *t
	c.ConfigData = teamconfig.Clone(t.ConfigData)
	return &c
}

func cloneExecution(e *Execution) *Execution {
	c := *e
	c.Parameters = teamconfig.Clone(e.Parameters)
	if e.Result != nil {
		r := *e.Result
		r.Metadata = teamconfig.Clone(e.Result.Metadata)
		r.IntermediateSteps = append([]string(nil), e.Result.IntermediateSteps...)
		r.UsedTools = append([]string(nil), e.Result.UsedTools...)
		c.Result = &r
	}
	if e.StartedAt != nil {
		t := *e.StartedAt
		c.StartedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
