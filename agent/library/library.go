package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/types"
)

const (
	defaultSearchLimit   = 50
	maxSuggestions       = 3
	maxSuggestionWorkers = 3
	popularCapabilities  = 5
	lowCompatibility     = 0.7
	largeTeamSize        = 5
)

type entry struct {
	meta   AgentMetadata
	config map[string]any
}

// Library 从目录加载单智能体配置并提供检索、统计与组队建议
type Library struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string
	loadedAt time.Time
}

// New 创建智能体库并立即加载一次
func New(dir string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Library{
		dir:     dir,
		logger:  logger.With(zap.String("component", "agent_library")),
		entries: make(map[string]*entry),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir 返回扫描目录
func (l *Library) Dir() string { return l.dir }

// Reload 重新扫描目录。目录不存在时库为空；单个文件解析失败只记录日志。
func (l *Library) Reload() error {
	entries := make(map[string]*entry)
	var order []string

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}

		e, err := l.loadEntry(path)
		if err != nil {
			l.logger.Warn("skip agent config", zap.String("path", path), zap.Error(err))
			return nil
		}
		if e == nil {
			return nil
		}
		if _, dup := entries[e.meta.ID]; dup {
			return nil
		}
		entries[e.meta.ID] = e
		order = append(order, e.meta.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan agent library %s: %w", l.dir, err)
	}

	sort.Strings(order)
	scoreCompatibility(entries, order)

	l.mu.Lock()
	l.entries = entries
	l.order = order
	l.loadedAt = time.Now()
	l.mu.Unlock()

	l.logger.Info("agent library loaded", zap.String("dir", l.dir), zap.Int("agents", len(order)))
	return nil
}

// loadEntry 层级团队配置返回 nil
func (l *Library) loadEntry(path string) (*entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := teamconfig.DecodeMap(data, teamconfig.FormatYAML)
	if err != nil {
		return nil, err
	}
	if teamconfig.DetectType(raw) == teamconfig.TypeHierarchical {
		return nil, nil
	}
	if _, ok := raw["agent"]; !ok {
		return nil, nil
	}
	cfg, err := teamconfig.AgentFromMap(raw)
	if err != nil {
		return nil, err
	}

	id := agentID(l.dir, path)
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = id
	}
	return &entry{meta: buildMetadata(id, path, cfg), config: raw}, nil
}

// agentID 相对路径去扩展名，分隔符替换为下划线
func agentID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}

// scoreCompatibility 每个智能体与库内其余智能体的平均兼容度；库中只有一个时为 1
func scoreCompatibility(entries map[string]*entry, order []string) {
	for _, id := range order {
		e := entries[id]
		if len(order) < 2 {
			e.meta.CompatibilityScore = 1
			continue
		}
		var total float64
		for _, other := range order {
			if other != id {
				total += pairCompatibility(e.meta.Capabilities, entries[other].meta.Capabilities)
			}
		}
		e.meta.CompatibilityScore = total / float64(len(order)-1)
	}
}

// =============================================================================
// 查询
// =============================================================================

// All 按 id 排序返回全部智能体
func (l *Library) All() []AgentMetadata {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]AgentMetadata, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id].meta)
	}
	return out
}

// Len 智能体数量
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Get 返回元数据与原始配置
func (l *Library) Get(id string) (*AgentMetadata, map[string]any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	if !ok {
		return nil, nil, types.NewNotFoundError("agent", id)
	}
	meta := e.meta
	return &meta, teamconfig.Clone(e.config), nil
}

// FindByName 按名称（不区分大小写）查找
func (l *Library) FindByName(name string) (*AgentMetadata, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, id := range l.order {
		if strings.EqualFold(l.entries[id].meta.Name, name) {
			meta := l.entries[id].meta
			return &meta, true
		}
	}
	return nil, false
}

// Search 在名称、描述、能力和专长中做子串匹配，再按角色与能力过滤。
// 返回当前页与过滤后的总数。
func (l *Library) Search(q SearchQuery) ([]AgentMetadata, int) {
	query := strings.ToLower(strings.TrimSpace(q.Query))
	caps := dedupeLower(q.Capabilities)

	var matched []AgentMetadata
	for _, m := range l.All() {
		if query != "" && !matchesQuery(&m, query) {
			continue
		}
		if q.Role != "" && !m.HasRole(q.Role) {
			continue
		}
		if len(caps) > 0 && !slices.ContainsFunc(caps, func(c string) bool { return slices.Contains(m.Capabilities, c) }) {
			continue
		}
		matched = append(matched, m)
	}

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	offset := max(q.Offset, 0)
	if offset >= total {
		return []AgentMetadata{}, total
	}
	end := min(offset+limit, total)
	return matched[offset:end], total
}

func matchesQuery(m *AgentMetadata, query string) bool {
	if strings.Contains(strings.ToLower(m.Name), query) ||
		strings.Contains(strings.ToLower(m.Description), query) {
		return true
	}
	for _, c := range m.Capabilities {
		if strings.Contains(c, query) {
			return true
		}
	}
	for _, s := range m.Specializations {
		if strings.Contains(s, query) {
			return true
		}
	}
	return false
}

// Stats 汇总统计
func (l *Library) Stats() Stats {
	agents := l.All()

	l.mu.RLock()
	loadedAt := l.loadedAt
	l.mu.RUnlock()

	st := Stats{
		TotalAgents:             len(agents),
		ByRole:                  make(map[string]int),
		ByCapability:            make(map[string]int),
		MostPopularCapabilities: []string{},
		LoadedAt:                loadedAt,
	}
	var compat float64
	for _, m := range agents {
		st.ByRole[string(m.PrimaryRole)]++
		for _, c := range m.Capabilities {
			st.ByCapability[c]++
		}
		if m.CanCoordinate {
			st.CoordinationCapable++
		}
		if m.CanSupervise {
			st.SupervisionCapable++
		}
		compat += m.CompatibilityScore
	}
	if len(agents) > 0 {
		st.AverageCompatibility = compat / float64(len(agents))
	}

	caps := make([]string, 0, len(st.ByCapability))
	for c := range st.ByCapability {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool {
		ci, cj := st.ByCapability[caps[i]], st.ByCapability[caps[j]]
		if ci != cj {
			return ci > cj
		}
		return caps[i] < caps[j]
	})
	if len(caps) > popularCapabilities {
		caps = caps[:popularCapabilities]
	}
	st.MostPopularCapabilities = append(st.MostPopularCapabilities, caps...)
	return st
}

// Compatibility 计算给定智能体两两之间的兼容度
func (l *Library) Compatibility(ids []string) (*CompatibilityReport, error) {
	ids = dedupe(ids)
	if len(ids) < 2 {
		return nil, types.NewInvalidRequestError("at least 2 agent ids are required")
	}

	metas := make([]*AgentMetadata, len(ids))
	for i, id := range ids {
		m, _, err := l.Get(id)
		if err != nil {
			return nil, err
		}
		metas[i] = m
	}

	report := &CompatibilityReport{
		Matrix:          make(map[string]map[string]float64, len(ids)),
		Recommendations: []string{},
	}
	var total float64
	pairs := 0
	for i, a := range metas {
		row := make(map[string]float64, len(ids)-1)
		for j, b := range metas {
			if i == j {
				continue
			}
			score := pairCompatibility(a.Capabilities, b.Capabilities)
			row[b.ID] = score
			total += score
			pairs++
		}
		report.Matrix[a.ID] = row
	}
	report.AverageCompatibility = total / float64(pairs)

	if report.AverageCompatibility < lowCompatibility {
		report.Recommendations = append(report.Recommendations, "Consider agents with more complementary capabilities")
	}
	if len(ids) > largeTeamSize {
		report.Recommendations = append(report.Recommendations, "Large teams may benefit from hierarchical organization")
	}
	return report, nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
