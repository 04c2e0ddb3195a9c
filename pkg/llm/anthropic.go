package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/metrics"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates a new Anthropic chat client.
func NewAnthropicClient(cfg Config, logger *zap.Logger) *AnthropicClient {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		endpoint:  cfg.BaseURL,
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm.anthropic"),
	}
}

func (c *AnthropicClient) Provider() string { return ProviderAnthropic }
func (c *AnthropicClient) GetModel() string { return c.model }

// Chat performs one Messages API call with tools.
func (c *AnthropicClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("tool_count", len(req.Tools)))

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages:  buildAnthropicMessages(req.Messages),
		Tools:     buildAnthropicTools(req.Tools),
	})
	metrics.ObserveLLMRequest(ProviderAnthropic, err)
	if err != nil {
		llmErr := ClassifyError(err)
		llmErr.Model = c.model
		llmErr.Endpoint = c.endpoint
		return nil, llmErr
	}

	out := &ChatResponse{}
	var texts []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text != nil {
				texts = append(texts, *block.Text)
			}
		case "tool_use":
			if block.MessageContentToolUse == nil {
				continue
			}
			args := json.RawMessage(block.MessageContentToolUse.Input)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.MessageContentToolUse.ID,
				Name:      block.MessageContentToolUse.Name,
				Arguments: args,
			})
		}
	}
	out.Content = strings.Join(texts, "\n")

	c.logger.Debug("LLM response",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("tool_calls", len(out.ToolCalls)))
	return out, nil
}

// buildAnthropicMessages converts our messages. Consecutive tool results are
// folded into one user turn, as the Messages API requires.
func buildAnthropicMessages(messages []Message) []anthropic.Message {
	var result []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			content := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, msg.IsError)
			if n := len(result); n > 0 && result[n-1].Role == anthropic.RoleUser && isToolResultTurn(result[n-1]) {
				result[n-1].Content = append(result[n-1].Content, content)
				continue
			}
			result = append(result, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{content}})

		case RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.MessageContent{
					Type: "tool_use",
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: tc.Arguments,
					},
				})
			}
			result = append(result, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})

		default:
			result = append(result, anthropic.NewUserTextMessage(msg.Content))
		}
	}

	return result
}

func isToolResultTurn(msg anthropic.Message) bool {
	for _, c := range msg.Content {
		if c.Type != "tool_result" {
			return false
		}
	}
	return len(msg.Content) > 0
}

func buildAnthropicTools(tools []ToolDefinition) []anthropic.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	result := make([]anthropic.ToolDefinition, len(tools))
	for i, def := range tools {
		result[i] = anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		}
	}
	return result
}

var _ ChatClient = (*AnthropicClient)(nil)
