package metrics

import (
	"context"
	"time"

	"github.com/BaSui01/agentteams/llm"
)

// instrumentedProvider 为每次 Completion 记录 LLM 指标
type instrumentedProvider struct {
	llm.Provider
	collector *Collector
}

// InstrumentProvider 包装 provider；collector 为空时原样返回
func InstrumentProvider(p llm.Provider, c *Collector) llm.Provider {
	if p == nil || c == nil {
		return p
	}
	return &instrumentedProvider{Provider: p, collector: c}
}

// Completion 转发请求并记录耗时与 token；provider 未返回用量时用 tiktoken 估算
func (p *instrumentedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := p.Provider.Completion(ctx, req)
	duration := time.Since(start)

	model := req.Model
	if resp != nil && resp.Model != "" {
		model = resp.Model
	}
	if err != nil {
		p.collector.RecordLLMRequest(p.Name(), model, "error", duration, 0, 0)
		return resp, err
	}

	usage := resp.Usage
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		for _, m := range req.Messages {
			usage.PromptTokens += llm.EstimateTokens(m.Content)
		}
		usage.CompletionTokens = llm.EstimateTokens(resp.Content)
	}
	p.collector.RecordLLMRequest(p.Name(), model, "success", duration, usage.PromptTokens, usage.CompletionTokens)
	return resp, nil
}
