// Package mcp exposes the assistant's warehouse and configuration tools to
// MCP clients, over streamable HTTP or stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/llm"
	"github.com/milkyway-analytics/milkyway/pkg/middleware"
)

// ToolHealth is the liveness tool every server registers.
const ToolHealth = "health"

// ToolExecutor runs one assistant tool call.
type ToolExecutor interface {
	Execute(ctx context.Context, call llm.ToolCall) agent.ToolResult
}

type healthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Server wraps the mcp-go MCPServer with the assistant's tool set.
type Server struct {
	mcp      *server.MCPServer
	executor ToolExecutor
	logger   *zap.Logger
}

// NewServer creates an MCP server with the health tool and every assistant
// tool registered.
func NewServer(name, version string, executor ToolExecutor, logger *zap.Logger) (*Server, error) {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcp:      mcpServer,
		executor: executor,
		logger:   logger.Named("mcp"),
	}

	s.registerHealthTool(version)
	for _, def := range llm.AssistantTools() {
		schema, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for %s: %w", def.Name, err)
		}
		s.RegisterTool(mcp.NewToolWithRawSchema(def.Name, def.Description, schema), s.toolHandler(def.Name))
	}
	return s, nil
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// Handler is the HTTP transport with request logging.
func (s *Server) Handler() http.Handler {
	return middleware.MCPRequestLogger(s.logger)(s.NewStreamableHTTPServer())
}

// ServeStdio answers JSON-RPC messages read from in until ctx is done or in
// is exhausted.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, in, out)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}

func (s *Server) registerHealthTool(version string) {
	tool := mcp.NewTool(
		ToolHealth,
		mcp.WithDescription("Returns server health status and version"),
	)

	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{Status: "ok", Version: version})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

// toolHandler forwards a call to the executor. Tool failures come back as
// results with IsError set so the client sees the message.
func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage("{}")
		if raw := req.GetRawArguments(); raw != nil {
			b, err := json.Marshal(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
			args = b
		}

		result := s.executor.Execute(ctx, llm.ToolCall{Name: name, Arguments: args})
		out := mcp.NewToolResultText(result.JSON())
		out.IsError = !result.Success()
		return out, nil
	}
}
