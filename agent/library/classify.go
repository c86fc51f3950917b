package library

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/BaSui01/agentteams/agent/routing"
	"github.com/BaSui01/agentteams/teamconfig"
)

// roleKeywords 角色触发词，顺序即同分时的优先级
var roleKeywords = []struct {
	role  Role
	words []string
}{
	{RoleCoordinator, []string{"coordinator", "coordinate", "orchestrate", "orchestrator", "route", "routing", "delegate", "dispatch"}},
	{RoleSupervisor, []string{"supervisor", "supervise", "manage", "manager", "oversee", "lead", "review", "quality"}},
	{RoleSpecialist, []string{"expert", "specialist", "specialized", "senior", "advanced"}},
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenSet 小写分词
type tokenSet map[string]struct{}

func tokenize(parts ...string) tokenSet {
	set := make(tokenSet)
	for _, p := range parts {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(p), -1) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// matches 完全匹配；长度>=4 的触发词也接受前缀匹配（search -> searching）
func (s tokenSet) matches(word string) bool {
	if _, ok := s[word]; ok {
		return true
	}
	if len(word) < 4 {
		return false
	}
	for tok := range s {
		if strings.HasPrefix(tok, word) {
			return true
		}
	}
	return false
}

func (s tokenSet) count(words []string) int {
	n := 0
	for _, w := range words {
		if s.matches(w) {
			n++
		}
	}
	return n
}

// classifyRoles 得分最高的为主角色，其余命中的为次要角色；都未命中时为 worker
func classifyRoles(tokens tokenSet) (Role, []Role) {
	primary, best := RoleWorker, 0
	scores := make([]int, len(roleKeywords))
	for i, rk := range roleKeywords {
		scores[i] = tokens.count(rk.words)
		if scores[i] > best {
			primary, best = rk.role, scores[i]
		}
	}

	secondary := []Role{}
	for i, rk := range roleKeywords {
		if scores[i] > 0 && rk.role != primary {
			secondary = append(secondary, rk.role)
		}
	}
	return primary, secondary
}

// classifyCapabilities 显式声明的能力加上关键词表命中的类别，去重排序
func classifyCapabilities(tokens tokenSet, declared []string) []string {
	seen := make(map[string]struct{})
	for _, c := range declared {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			seen[c] = struct{}{}
		}
	}
	for _, km := range routing.DefaultKeywordMappings() {
		if tokens.count(km.Words) > 0 {
			seen[km.Category] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DetectCapabilities 返回文本命中的能力类别
func DetectCapabilities(text string) []string {
	return classifyCapabilities(tokenize(text), nil)
}

func teamSizeLimit(r Role) int {
	switch r {
	case RoleCoordinator:
		return 10
	case RoleSupervisor:
		return 5
	default:
		return 1
	}
}

// buildMetadata 由单智能体配置生成元数据，CompatibilityScore 由库统一计算
func buildMetadata(id, path string, cfg *teamconfig.AgentConfig) AgentMetadata {
	tools := cfg.ToolNames()
	specs := dedupeLower(cfg.Specialization.Keywords)

	roleTokens := tokenize(cfg.Agent.Name, cfg.Agent.Description, cfg.Prompts.SystemPrompt.Template)
	primary, secondary := classifyRoles(roleTokens)

	parts := []string{cfg.Agent.Name, cfg.Agent.Description, cfg.Prompts.SystemPrompt.Template}
	parts = append(parts, tools...)
	parts = append(parts, specs...)
	capTokens := tokenize(parts...)

	m := AgentMetadata{
		ID:              id,
		Name:            cfg.Agent.Name,
		Description:     cfg.Agent.Description,
		PrimaryRole:     primary,
		SecondaryRoles:  secondary,
		Capabilities:    classifyCapabilities(capTokens, cfg.Specialization.Capabilities),
		Tools:           tools,
		Specializations: specs,
		FilePath:        path,
		TeamSizeLimit:   teamSizeLimit(primary),
	}
	if m.Tools == nil {
		m.Tools = []string{}
	}
	m.CanCoordinate = m.HasRole(RoleCoordinator)
	m.CanSupervise = m.CanCoordinate || m.HasRole(RoleSupervisor)
	return m
}

func dedupeLower(in []string) []string {
	out := []string{}
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// pairCompatibility 0.5 + 0.5*(1-jaccard)，能力越互补分越高
func pairCompatibility(a, b []string) float64 {
	return 0.5 + 0.5*(1-jaccard(a, b))
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]int, len(a)+len(b))
	for _, x := range a {
		set[x] |= 1
	}
	for _, x := range b {
		set[x] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}
