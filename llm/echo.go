package llm

import (
	"context"
	"fmt"
	"time"
)

// EchoProvider is an offline provider that answers deterministically. It is
// used when no API key is configured so teams stay runnable in development.
type EchoProvider struct {
	model string
}

// NewEchoProvider creates an echo provider reporting the given model name.
func NewEchoProvider(model string) *EchoProvider {
	return &EchoProvider{model: model}
}

// Name returns "echo".
func (p *EchoProvider) Name() string { return "echo" }

// Completion returns "[<model>] <agent> response to: <last user message>".
func (p *EchoProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	agent := req.Agent
	if agent == "" {
		agent = "agent"
	}

	input := LastUserMessage(req.Messages)
	content := fmt.Sprintf("[%s] %s response to: %s", model, agent, input)

	prompt := 0
	for _, m := range req.Messages {
		prompt += EstimateTokens(m.Content)
	}
	completion := EstimateTokens(content)

	return &ChatResponse{
		Provider: p.Name(),
		Model:    model,
		Content:  content,
		Usage: ChatUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		CreatedAt: time.Now(),
	}, nil
}
