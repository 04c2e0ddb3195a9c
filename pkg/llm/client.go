package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultMaxTokens      = 1024
)

// ChatClient is a tool-calling chat model. Use this interface for
// dependency injection to enable mocking in tests.
type ChatClient interface {
	// Chat performs one model call. Errors are *Error.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Provider returns the provider name, e.g. "anthropic".
	Provider() string

	// GetModel returns the configured model name.
	GetModel() string
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider  string // anthropic, openai or none
	Model     string
	APIKey    string
	BaseURL   string // optional; OpenAI-compatible gateways and proxies
	MaxTokens int

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// NewChatClient builds the client for cfg.Provider. Provider "none" or a
// missing key returns apperrors.ErrLLMNotConfigured so callers can run in
// basic mode.
func NewChatClient(cfg Config, logger *zap.Logger) (ChatClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderNone {
		return nil, apperrors.ErrLLMNotConfigured
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: no API key for %s", apperrors.ErrLLMNotConfigured, provider)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", apperrors.ErrInvalidRequest, cfg.Provider)
	}
}
