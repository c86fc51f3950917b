package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentteams/llm"
)

// ErrNoProvider llm 策略未配置模型
var ErrNoProvider = errors.New("no llm provider configured for llm routing")

const llmRoutingSystemPrompt = "You are an intelligent task router for a hierarchical agent system."

type llmRoutingAnswer struct {
	ChosenAgent  string   `json:"chosen_agent"`
	Confidence   *float64 `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	Alternatives []string `json:"alternatives"`
}

func (e *Engine) routeLLM(ctx context.Context, task string, agents []*AgentCapability, rctx map[string]any) (*Decision, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}

	prompt := buildRoutingPrompt(task, agents, rctx)
	resp, err := e.provider.Completion(ctx, &llm.ChatRequest{
		Model:       e.model,
		Messages:    []llm.Message{llm.System(llmRoutingSystemPrompt), llm.User(prompt)},
		Temperature: 0.1,
		Agent:       "router",
	})
	if err != nil {
		return nil, fmt.Errorf("llm routing call: %w", err)
	}
	text := resp.Content

	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.AgentID
	}

	var answer llmRoutingAnswer
	if err := llm.ExtractJSON(text, &answer); err == nil && slices.Contains(ids, answer.ChosenAgent) {
		confidence := 0.5
		if answer.Confidence != nil {
			confidence = min(1, max(0, *answer.Confidence))
		}
		reasoning := answer.Reasoning
		if reasoning == "" {
			reasoning = "LLM routing decision"
		}
		var alts []Alternative
		for _, id := range answer.Alternatives {
			if len(alts) == 2 {
				break
			}
			if id != answer.ChosenAgent {
				alts = append(alts, Alternative{AgentID: id, Score: 0.5})
			}
		}
		return &Decision{
			Target:       answer.ChosenAgent,
			Confidence:   confidence,
			Reasoning:    reasoning,
			Strategy:     StrategyLLM,
			Alternatives: alts,
			Metadata:     map[string]any{"llm_response": text},
		}, nil
	}

	e.logger.Debug("llm routing answer not parseable, matching agent names", zap.Int("response_len", len(text)))
	return &Decision{
		Target:     extractAgentFromText(text, ids),
		Confidence: 0.6,
		Reasoning:  "LLM analysis: " + truncate(text, 200),
		Strategy:   StrategyLLM,
		Metadata:   map[string]any{"llm_response": text},
	}, nil
}

func buildRoutingPrompt(task string, agents []*AgentCapability, rctx map[string]any) string {
	var b strings.Builder
	b.WriteString("Analyze the task and available agents to make the best routing decision.\n\n")
	fmt.Fprintf(&b, "Task: %s\n\nAvailable Agents:\n", task)
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s: Capabilities: %s, Availability: %.2f, Performance: %.2f\n",
			a.AgentID, strings.Join(a.Capabilities, ", "), a.Availability(), a.PerformanceScore())
	}
	ctxJSON, err := json.MarshalIndent(rctx, "", "  ")
	if err != nil {
		ctxJSON = []byte("{}")
	}
	fmt.Fprintf(&b, "\nContext: %s\n\n", ctxJSON)
	b.WriteString(`Consider:
1. Agent capabilities and task requirements
2. Agent availability and current workload
3. Agent performance history
4. Task complexity and urgency

Respond with a JSON object containing:
{
  "chosen_agent": "agent_id",
  "confidence": 0.0-1.0,
  "reasoning": "explanation of choice",
  "alternatives": ["agent_id1", "agent_id2"]
}`)
	return b.String()
}

// extractAgentFromText 返回首个在文本中出现的 Agent，否则返回第一个
func extractAgentFromText(text string, ids []string) string {
	lower := strings.ToLower(text)
	for _, id := range ids {
		if strings.Contains(lower, strings.ToLower(id)) {
			return id
		}
	}
	return ids[0]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
