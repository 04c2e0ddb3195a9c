package llm

import (
	"context"
	"fmt"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set ChatFunc, or queue Responses to be returned in order.
type MockLLMClient struct {
	// ChatFunc is called when Chat is invoked. It takes precedence over Responses.
	ChatFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Responses are returned in order; running out is an error.
	Responses []*ChatResponse

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	ChatCalls int
	Requests  []*ChatRequest
}

// NewMockLLMClient creates a mock that replies with responses in order.
func NewMockLLMClient(responses ...*ChatResponse) *MockLLMClient {
	return &MockLLMClient{Model: "mock-model", Responses: responses}
}

// Chat implements ChatClient.
func (m *MockLLMClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.ChatCalls++
	m.Requests = append(m.Requests, req)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if len(m.Responses) == 0 {
		return nil, NewError(ErrorTypeUnknown, fmt.Sprintf("mock exhausted after %d calls", m.ChatCalls-1), false, nil)
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}

// Provider implements ChatClient.
func (m *MockLLMClient) Provider() string { return "mock" }

// GetModel implements ChatClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

var _ ChatClient = (*MockLLMClient)(nil)
