package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

func TestNewChatClient_NotConfigured(t *testing.T) {
	for _, provider := range []string{"", "none", " NONE "} {
		_, err := NewChatClient(Config{Provider: provider, APIKey: "k"}, zap.NewNop())
		assert.ErrorIs(t, err, apperrors.ErrLLMNotConfigured, "provider %q", provider)
	}

	_, err := NewChatClient(Config{Provider: ProviderAnthropic}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrLLMNotConfigured)
}

func TestNewChatClient_UnknownProvider(t *testing.T) {
	_, err := NewChatClient(Config{Provider: "bard", APIKey: "k"}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
}

func TestNewChatClient_Providers(t *testing.T) {
	client, err := NewChatClient(Config{Provider: "Anthropic", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, client.Provider())
	assert.Equal(t, DefaultAnthropicModel, client.GetModel())

	client, err = NewChatClient(Config{Provider: ProviderOpenAI, BaseURL: "http://localhost:11434/v1", Model: "llama3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, client.Provider())
	assert.Equal(t, "llama3", client.GetModel())
}

func TestMockLLMClient(t *testing.T) {
	mock := NewMockLLMClient(&ChatResponse{Content: "hi"})

	resp, err := mock.Chat(t.Context(), &ChatRequest{SystemPrompt: "s"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)

	_, err = mock.Chat(t.Context(), &ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 2, mock.ChatCalls)
	assert.Equal(t, "s", mock.Requests[0].SystemPrompt)
}
