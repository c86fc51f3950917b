package hierarchical

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/BaSui01/agentteams/llm"
)

// Status 执行状态
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const defaultSpecialization = "general"

// Worker 叶子节点，直接调用 LLM 完成任务
type Worker struct {
	Name           string
	Role           string
	Description    string
	Specialization string
	Capabilities   []string
	Keywords       []string
	Priority       int
	MaxWorkload    int
	Model          string
	Temperature    float32
	MaxTokens      int
	SystemPrompt   string
	ConfigFile     string
	Tools          []string

	provider llm.Provider
}

// NewWorker 绑定 provider 并补齐默认值
func NewWorker(w Worker, provider llm.Provider) *Worker {
	if w.Specialization == "" {
		w.Specialization = defaultSpecialization
	}
	if w.MaxWorkload <= 0 {
		w.MaxWorkload = 10
	}
	if w.Priority <= 0 {
		w.Priority = 1
	}
	w.provider = provider
	return &w
}

// WorkerResult Worker 执行结果
type WorkerResult struct {
	Response       string         `json:"response"`
	Worker         string         `json:"worker"`
	Specialization string         `json:"specialization"`
	Status         Status         `json:"status"`
	Error          string         `json:"error,omitempty"`
	Usage          llm.ChatUsage  `json:"usage"`
	Duration       time.Duration  `json:"duration"`
	Metadata       map[string]any `json:"metadata,omitempty"`

	err error
}

// Err 返回失败原因（保留错误链）
func (r *WorkerResult) Err() error {
	return r.err
}

func (w *Worker) systemPrompt() string {
	if w.SystemPrompt != "" {
		return w.SystemPrompt
	}
	prompt := fmt.Sprintf("You are %s, a worker specialized in %s.", w.Name, w.Specialization)
	if w.Description != "" {
		prompt += " " + w.Description
	}
	return prompt
}

// Run 执行任务；LLM 失败时返回 failed 状态而不是 error
func (w *Worker) Run(ctx context.Context, input string, params map[string]any) *WorkerResult {
	start := time.Now()
	metadata := map[string]any{
		"task_input":      input,
		"model_used":      w.Model,
		"tools_available": len(w.Tools),
	}
	maps.Copy(metadata, params)

	result := &WorkerResult{
		Worker:         w.Name,
		Specialization: w.Specialization,
		Metadata:       metadata,
	}

	if w.provider == nil {
		result.Status = StatusFailed
		result.err = fmt.Errorf("worker %s has no llm provider", w.Name)
		result.Error = result.err.Error()
		result.Response = "Worker agent is not available"
		result.Duration = time.Since(start)
		return result
	}

	resp, err := w.provider.Completion(ctx, &llm.ChatRequest{
		Model:       w.Model,
		Messages:    []llm.Message{llm.System(w.systemPrompt()), llm.User(input)},
		Temperature: w.Temperature,
		MaxTokens:   w.MaxTokens,
		Agent:       w.Name,
	})
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusFailed
		result.err = err
		result.Error = err.Error()
		result.Response = "Worker error: " + err.Error()
		return result
	}

	result.Status = StatusCompleted
	result.Response = resp.Content
	result.Usage = resp.Usage
	return result
}
