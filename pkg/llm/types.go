// Package llm talks to hosted chat models with tool calling. Anthropic and
// OpenAI-compatible endpoints sit behind the same ChatClient interface.
package llm

import "encoding/json"

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is a provider-neutral chat message. Assistant messages may carry
// ToolCalls; tool messages answer one call by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// ChatRequest is one model call.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	MaxTokens    int
}

// ChatResponse holds the model's text and any tool calls. A response with
// tool calls expects tool results before the model can finish.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model asked for tools.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}
