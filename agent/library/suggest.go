package library

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/types"
)

// TeamSuggestions 根据任务描述与必需能力给出至多 3 种团队组成。
// 能力来自 required 与任务文本中命中的关键词类别。
func (l *Library) TeamSuggestions(task string, required []string, maxResults int) (*SuggestionResult, error) {
	if strings.TrimSpace(task) == "" && len(required) == 0 {
		return nil, types.NewInvalidRequestError("task description is required")
	}
	if maxResults <= 0 || maxResults > maxSuggestions {
		maxResults = maxSuggestions
	}

	needed := dedupeLower(append(append([]string(nil), required...), DetectCapabilities(task)...))
	res := &SuggestionResult{
		Suggestions:  []TeamSuggestion{},
		TaskAnalysis: analyzeTask(needed),
	}
	if len(needed) == 0 {
		return res, nil
	}

	agents := l.All()
	overlap := make(map[string]int, len(agents))
	for _, m := range agents {
		overlap[m.ID] = countShared(m.Capabilities, needed)
	}
	rank := func(list []AgentMetadata) {
		sort.SliceStable(list, func(i, j int) bool {
			oi, oj := overlap[list[i].ID], overlap[list[j].ID]
			if oi != oj {
				return oi > oj
			}
			return list[i].CompatibilityScore > list[j].CompatibilityScore
		})
	}

	var coordinators, workers []AgentMetadata
	for _, m := range agents {
		if m.CanCoordinate {
			coordinators = append(coordinators, m)
		}
		if m.PrimaryRole != RoleCoordinator && overlap[m.ID] > 0 {
			workers = append(workers, m)
		}
	}
	rank(coordinators)
	rank(workers)

	seen := make(map[string]struct{})
	for i := 0; i < len(workers) && len(res.Suggestions) < maxResults; i++ {
		set, covered := coverFrom(workers, i, needed)
		key := setKey(set)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		s := TeamSuggestion{
			Workers:             set,
			CoveredCapabilities: covered,
			CompatibilityScore:  setCompatibility(set),
		}
		if len(coordinators) > 0 {
			c := coordinators[len(res.Suggestions)%len(coordinators)]
			s.Coordinator = &c
		}
		coverage := float64(len(covered)) / float64(len(needed))
		s.EstimatedPerformance = 0.6*coverage + 0.4*s.CompatibilityScore
		s.Reasoning = suggestionReasoning(s, needed)
		res.Suggestions = append(res.Suggestions, s)
	}

	sort.SliceStable(res.Suggestions, func(i, j int) bool {
		return res.Suggestions[i].EstimatedPerformance > res.Suggestions[j].EstimatedPerformance
	})

	l.logger.Debug("team suggestions",
		zap.Strings("capabilities", needed),
		zap.Int("suggestions", len(res.Suggestions)))
	return res, nil
}

// coverFrom 以 workers[start] 为起点，贪心补充能覆盖新能力的 worker
func coverFrom(workers []AgentMetadata, start int, needed []string) ([]AgentMetadata, []string) {
	set := []AgentMetadata{workers[start]}
	covered := sharedCaps(workers[start].Capabilities, needed)

	for j := 0; j < len(workers) && len(set) < maxSuggestionWorkers && len(covered) < len(needed); j++ {
		if j == start {
			continue
		}
		gain := 0
		for _, c := range sharedCaps(workers[j].Capabilities, needed) {
			if !slices.Contains(covered, c) {
				gain++
			}
		}
		if gain == 0 {
			continue
		}
		set = append(set, workers[j])
		for _, c := range sharedCaps(workers[j].Capabilities, needed) {
			if !slices.Contains(covered, c) {
				covered = append(covered, c)
			}
		}
	}
	sort.Strings(covered)
	return set, covered
}

func sharedCaps(caps, needed []string) []string {
	var out []string
	for _, c := range needed {
		if slices.Contains(caps, c) {
			out = append(out, c)
		}
	}
	return out
}

func countShared(caps, needed []string) int {
	return len(sharedCaps(caps, needed))
}

func setKey(set []AgentMetadata) string {
	ids := make([]string, len(set))
	for i, m := range set {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// setCompatibility 两两平均；只有一个成员时取其库内兼容度
func setCompatibility(set []AgentMetadata) float64 {
	if len(set) == 1 {
		return set[0].CompatibilityScore
	}
	var total float64
	pairs := 0
	for i := range set {
		for j := i + 1; j < len(set); j++ {
			total += pairCompatibility(set[i].Capabilities, set[j].Capabilities)
			pairs++
		}
	}
	return total / float64(pairs)
}

func suggestionReasoning(s TeamSuggestion, needed []string) string {
	names := make([]string, len(s.Workers))
	for i, w := range s.Workers {
		names[i] = w.Name
	}
	reason := fmt.Sprintf("Covers %d of %d required capabilities (%s) with %s",
		len(s.CoveredCapabilities), len(needed), strings.Join(s.CoveredCapabilities, ", "), strings.Join(names, ", "))
	if s.Coordinator != nil {
		reason += "; coordinated by " + s.Coordinator.Name
	}
	return reason
}

func analyzeTask(needed []string) TaskAnalysis {
	a := TaskAnalysis{
		TaskType:             "general",
		RequiredCapabilities: append([]string{}, needed...),
	}
	if len(needed) > 0 {
		a.TaskType = needed[0]
	}
	switch {
	case len(needed) <= 1:
		a.Complexity = "simple"
	case len(needed) <= 3:
		a.Complexity = "medium"
	default:
		a.Complexity = "complex"
	}
	return a
}
