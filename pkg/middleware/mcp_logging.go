package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

// maxArgumentLogLength bounds each logged string argument.
const maxArgumentLogLength = 200

// sensitiveArgumentKeywords mark argument names whose values are never logged.
var sensitiveArgumentKeywords = []string{"password", "secret", "token", "key", "credential"}

// MCPRequestLogger returns middleware that logs MCP JSON-RPC tool calls and
// their outcome. Tool arguments are redacted and truncated before logging.
// Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var rpcReq jsonRPCRequest
			if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil {
				// Not every request on the endpoint is a JSON-RPC body
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}

			toolName := rpcReq.Params.Name
			logger.Debug("MCP request",
				zap.String("method", rpcReq.Method),
				zap.String("tool", toolName),
				zap.Any("arguments", sanitizeArguments(rpcReq.Params.Arguments)),
			)

			recorder := &mcpResponseRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			var rpcResp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &rpcResp); err != nil {
				logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
				return
			}

			switch {
			case rpcResp.Error != nil:
				logger.Debug("MCP response error",
					zap.String("tool", toolName),
					zap.Int("error_code", rpcResp.Error.Code),
					zap.String("error_message", logging.SanitizeText(rpcResp.Error.Message)),
					zap.Duration("duration", duration),
				)
			case rpcResp.Result.IsError:
				// Tool failures are reported in-band as isError results
				logger.Debug("MCP tool error",
					zap.String("tool", toolName),
					zap.Duration("duration", duration),
				)
			default:
				logger.Debug("MCP response success",
					zap.String("tool", toolName),
					zap.Duration("duration", duration),
				)
			}
		})
	}
}

type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder tees the response body so the outcome can be logged.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *mcpResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// sanitizeArguments redacts sensitive fields, scrubs credentials out of SQL
// and truncates long values.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	result := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveArgument(k) {
			result[k] = logging.RedactedText
			continue
		}
		str, ok := v.(string)
		if !ok {
			result[k] = v
			continue
		}
		if k == "sql" {
			str = logging.SanitizeQuery(str)
		}
		result[k] = logging.TruncateString(logging.SanitizeText(str), maxArgumentLogLength)
	}
	return result
}

func isSensitiveArgument(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveArgumentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
