package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Options selects and configures a provider.
type Options struct {
	Provider  string
	Model     string
	APIKey    string
	APIKeyEnv string
	BaseURL   string
	Timeout   time.Duration
}

var defaultBaseURLs = map[string]string{
	"openai":   "https://api.openai.com",
	"deepseek": "https://api.deepseek.com",
	"groq":     "https://api.groq.com/openai",
	"gemini":   "https://generativelanguage.googleapis.com/v1beta/openai",
	"google":   "https://generativelanguage.googleapis.com/v1beta/openai",
}

// NewProvider builds a provider from options. A remote provider with no
// resolvable API key degrades to an EchoProvider with a warning.
func NewProvider(opts Options, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	name := strings.ToLower(strings.TrimSpace(opts.Provider))
	if name == "" || name == "echo" || name == "mock" {
		return NewEchoProvider(opts.Model), nil
	}

	apiKey := opts.APIKey
	if apiKey == "" && opts.APIKeyEnv != "" {
		apiKey = os.Getenv(opts.APIKeyEnv)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		var ok bool
		baseURL, ok = defaultBaseURLs[name]
		if !ok {
			return nil, fmt.Errorf("unsupported llm provider %q: base_url is required", opts.Provider)
		}
	}

	if apiKey == "" && opts.BaseURL == "" {
		logger.Warn("no api key for llm provider, falling back to echo",
			zap.String("provider", name),
			zap.String("api_key_env", opts.APIKeyEnv),
		)
		return NewEchoProvider(opts.Model), nil
	}

	endpoint := "/v1/chat/completions"
	if name == "gemini" || name == "google" {
		endpoint = "/chat/completions"
	}

	return NewCompatProvider(CompatConfig{
		ProviderName: name,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		EndpointPath: endpoint,
		DefaultModel: opts.Model,
		Timeout:      opts.Timeout,
	}, logger), nil
}
