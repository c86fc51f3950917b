package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no candidate in the text decodes into v.
var ErrNoJSON = errors.New("no JSON object found in model output")

// ExtractJSON decodes a JSON object out of free-form model output.
// It tries, in order: the whole text, a ```json fenced block, a bare
// ``` fenced block, and the outermost {...} span.
func ExtractJSON(text string, v any) error {
	for _, candidate := range jsonCandidates(text) {
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

func jsonCandidates(text string) []string {
	text = strings.TrimSpace(text)
	out := []string{text}

	if block, ok := fencedBlock(text, "```json"); ok {
		out = append(out, block)
	}
	if block, ok := fencedBlock(text, "```"); ok {
		// 去掉无法识别的语言标记行
		if nl := strings.IndexByte(block, '\n'); nl != -1 && !strings.HasPrefix(block, "{") {
			block = strings.TrimSpace(block[nl+1:])
		}
		out = append(out, block)
	}
	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			out = append(out, text[start:end+1])
		}
	}
	return out
}

func fencedBlock(text, fence string) (string, bool) {
	idx := strings.Index(text, fence)
	if idx == -1 {
		return "", false
	}
	start := idx + len(fence)
	end := strings.Index(text[start:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}
