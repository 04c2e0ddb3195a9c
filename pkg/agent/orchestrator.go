// Package agent is the conversational layer: an LLM tool loop over the
// schema service and memory store, with a keyword-driven fallback when the
// model is unavailable.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/llm"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
	"github.com/milkyway-analytics/milkyway/pkg/metrics"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// DefaultMaxIterations bounds LLM calls per message.
const DefaultMaxIterations = 10

// Reply is the outcome of one user message.
type Reply struct {
	Text            string           `json:"text"`
	SuggestedConfig *SuggestedConfig `json:"suggested_config"`
	ToolResults     []ToolResult     `json:"tool_results"`

	// Degraded is set when the rule-based responder produced the text.
	Degraded bool `json:"degraded"`
}

// Config holds the dependencies of an Orchestrator.
type Config struct {
	// Client is the chat model. Nil runs in basic mode.
	Client        llm.ChatClient
	Schema        services.SchemaService
	Memory        *memory.Store
	MaxIterations int
	MaxTokens     int
	Logger        *zap.Logger
}

// Orchestrator drives one conversation. Build one per session.
type Orchestrator struct {
	client        llm.ChatClient
	tools         *ToolExecutor
	fallback      *RuleBasedResponder
	memory        *memory.Store
	maxIterations int
	maxTokens     int
	logger        *zap.Logger

	mu      sync.Mutex
	history []llm.Message
}

// NewOrchestrator creates an Orchestrator. Schema and Memory are required.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	return &Orchestrator{
		client:        cfg.Client,
		tools:         NewToolExecutor(cfg.Schema, cfg.Memory, logger),
		fallback:      NewRuleBasedResponder(cfg.Schema, cfg.Memory, logger),
		memory:        cfg.Memory,
		maxIterations: maxIterations,
		maxTokens:     cfg.MaxTokens,
		logger:        logger.Named("orchestrator"),
	}
}

// LLMEnabled reports whether a chat model is configured.
func (o *Orchestrator) LLMEnabled() bool {
	return o.client != nil
}

// ProcessMessage answers one user message. LLM failures never surface as
// errors: the rule-based responder takes over and the reply says so.
func (o *Orchestrator) ProcessMessage(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", apperrors.ErrInvalidRequest)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.history = append(o.history, llm.Message{Role: llm.RoleUser, Content: text})

	if o.client == nil {
		reply := o.fallback.Respond(ctx, text)
		reply.Degraded = true
		o.appendAssistant(reply.Text)
		return reply, nil
	}

	reply := &Reply{}
	if err := o.runToolLoop(ctx, reply); err != nil {
		return o.degrade(ctx, text, reply, err), nil
	}
	o.appendAssistant(reply.Text)
	return reply, nil
}

func (o *Orchestrator) runToolLoop(ctx context.Context, reply *Reply) error {
	messages := make([]llm.Message, len(o.history))
	copy(messages, o.history)

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		resp, err := o.client.Chat(ctx, &llm.ChatRequest{
			SystemPrompt: SystemPrompt(o.memory.ContextSummary()),
			Messages:     messages,
			Tools:        llm.AssistantTools(),
			MaxTokens:    o.maxTokens,
		})
		if err != nil {
			return err
		}

		if !resp.HasToolCalls() {
			reply.Text = resp.Content
			return nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result := o.tools.Execute(ctx, call)
			reply.ToolResults = append(reply.ToolResults, result)
			if result.Config != nil {
				reply.SuggestedConfig = result.Config
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result.JSON(),
				ToolCallID: call.ID,
				IsError:    !result.Success(),
			})
		}
	}

	return llm.NewError(llm.ErrorTypeToolLoop,
		fmt.Sprintf("no final answer after %d model calls", o.maxIterations), false, nil)
}

// degrade replaces the reply text with the rule-based answer. Tool results
// gathered before the failure are kept.
func (o *Orchestrator) degrade(ctx context.Context, text string, reply *Reply, err error) *Reply {
	classified := llm.ClassifyError(err)
	o.logger.Warn("LLM call failed, falling back to basic mode",
		zap.String("error_type", string(classified.Type)),
		zap.Bool("retryable", classified.Retryable),
		zap.String("error", logging.SanitizeError(classified)))
	metrics.IncrementAgentFallback()

	fallback := o.fallback.Respond(ctx, text)
	reply.Text = fmt.Sprintf("Error communicating with LLM: %s\n\nFalling back to basic mode.\n\n%s",
		logging.SanitizeError(classified), fallback.Text)
	reply.SuggestedConfig = fallback.SuggestedConfig
	reply.Degraded = true

	o.appendAssistant(fallback.Text)
	return reply
}

func (o *Orchestrator) appendAssistant(text string) {
	if text == "" {
		return
	}
	o.history = append(o.history, llm.Message{Role: llm.RoleAssistant, Content: text})
}

// History returns a copy of the conversation so far.
func (o *Orchestrator) History() []llm.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]llm.Message, len(o.history))
	copy(out, o.history)
	return out
}

// ClearHistory forgets the conversation. Memory is untouched.
func (o *Orchestrator) ClearHistory() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
}
