package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/metrics"
)

// OpenAIClient talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible chat client.
func NewOpenAIClient(cfg Config, logger *zap.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  clientConfig.BaseURL,
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm.openai"),
	}
}

func (c *OpenAIClient) Provider() string { return ProviderOpenAI }
func (c *OpenAIClient) GetModel() string { return c.model }

// Chat performs one chat completion with tools.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("tool_count", len(req.Tools)))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  buildOpenAIMessages(req.Messages, req.SystemPrompt),
		Tools:     buildOpenAITools(req.Tools),
		MaxTokens: maxTokens,
	})
	metrics.ObserveLLMRequest(ProviderOpenAI, err)
	if err != nil {
		return nil, c.parseError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, c.parseError(fmt.Errorf("no choices in response"))
	}

	choice := resp.Choices[0]
	out := &ChatResponse{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	c.logger.Debug("LLM response",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return out, nil
}

func (c *OpenAIClient) parseError(err error) error {
	llmErr := ClassifyError(err)
	llmErr.Model = c.model
	llmErr.Endpoint = c.endpoint
	return llmErr
}

// buildOpenAIMessages converts our message format to OpenAI format.
func buildOpenAIMessages(messages []Message, systemPrompt string) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage

	if systemPrompt != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		result = append(result, oaiMsg)
	}

	return result
}

// buildOpenAITools converts our tool definitions to OpenAI format.
func buildOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.Tool, len(tools))
	for i, def := range tools {
		paramsJSON, _ := json.Marshal(def.Parameters)
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(paramsJSON),
			},
		}
	}

	return result
}

var _ ChatClient = (*OpenAIClient)(nil)
