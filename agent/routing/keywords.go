package routing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// KeywordMapping 能力类别 -> 触发词
type KeywordMapping struct {
	Category string
	Words    []string
}

// DefaultKeywordMappings 默认能力关键词表，顺序固定
func DefaultKeywordMappings() []KeywordMapping {
	return []KeywordMapping{
		{"web_search", []string{"search", "find", "lookup", "web", "internet", "browse", "website"}},
		{"research", []string{"research", "analyze", "investigate", "study", "examine", "explore"}},
		{"writing", []string{"write", "compose", "create", "draft", "document", "article", "content"}},
		{"coding", []string{"code", "program", "develop", "implement", "debug", "script", "function"}},
		{"support", []string{"help", "assist", "support", "troubleshoot", "fix", "resolve", "issue"}},
		{"analysis", []string{"analyze", "examine", "evaluate", "assess", "review", "check"}},
		{"data", []string{"data", "statistics", "numbers", "metrics", "chart", "graph"}},
		{"llm", []string{"gemini", "google", "ai", "language", "model", "llm"}},
	}
}

var (
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	stopWords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
		"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
		"be": {}, "been": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
		"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "can": {},
		"this": {}, "that": {}, "these": {}, "those": {},
	}
)

const maxTaskKeywords = 10

// ExtractTaskKeywords 提取任务关键词：小写、字符数>2、去停用词，最多 10 个。
// 按 Unicode 字母与数字切分，非 ASCII 任务同样可用。
func ExtractTaskKeywords(task string) []string {
	words := wordPattern.FindAllString(strings.ToLower(task), -1)
	out := make([]string, 0, maxTaskKeywords)
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
		if len(out) == maxTaskKeywords {
			break
		}
	}
	return out
}

// IsStopWord 判断是否为停用词
func IsStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(w)]
	return ok
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
