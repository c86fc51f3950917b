package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentteams/internal/tlsutil"
	"github.com/BaSui01/agentteams/types"
	"go.uber.org/zap"
)

// =============================================================================
// OpenAI-Compatible Provider
// =============================================================================

// CompatConfig configures an OpenAI-compatible chat completions endpoint.
type CompatConfig struct {
	// ProviderName is reported by Name() (e.g. "openai", "deepseek").
	ProviderName string
	APIKey       string
	// BaseURL without the endpoint path, e.g. https://api.openai.com
	BaseURL      string
	EndpointPath string
	DefaultModel string
	Timeout      time.Duration
}

// CompatProvider talks to any endpoint implementing POST /v1/chat/completions.
type CompatProvider struct {
	cfg    CompatConfig
	client *http.Client
	logger *zap.Logger
}

// NewCompatProvider creates an OpenAI-compatible provider.
func NewCompatProvider(cfg CompatConfig, logger *zap.Logger) *CompatProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompatProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "llm_compat"), zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *CompatProvider) Name() string { return p.cfg.ProviderName }

type compatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type compatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage ChatUsage `json:"usage"`
}

type compatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Completion performs a non-streaming chat completion.
func (p *CompatProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	payload, err := json.Marshal(compatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + p.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrTimeout, "llm request cancelled").WithCause(ctx.Err())
		}
		return nil, types.NewError(types.ErrUpstreamError, "llm request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body), p.Name())
	}

	var out compatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "invalid llm response").
			WithCause(err).WithRetryable(true)
	}
	if len(out.Choices) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "llm response has no choices")
	}

	result := &ChatResponse{
		Provider:  p.Name(),
		Model:     out.Model,
		Content:   out.Choices[0].Message.Content,
		Usage:     out.Usage,
		Latency:   time.Since(start),
		CreatedAt: time.Now(),
	}
	if out.Created != 0 {
		result.CreatedAt = time.Unix(out.Created, 0)
	}

	p.logger.Debug("completion finished",
		zap.String("model", result.Model),
		zap.Duration("latency", result.Latency),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return result, nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return "unknown error"
	}
	var e compatError
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(data))
}

func mapHTTPError(status int, msg, provider string) *types.Error {
	message := fmt.Sprintf("%s: %s", provider, msg)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewError(types.ErrUnauthorized, message).WithHTTPStatus(http.StatusBadGateway)
	case status == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimit, message).WithRetryable(true)
	case status == http.StatusBadRequest:
		return types.NewError(types.ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadGateway)
	case status >= 500:
		return types.NewError(types.ErrUpstreamError, message).WithRetryable(true)
	default:
		return types.NewError(types.ErrUpstreamError, message)
	}
}
