package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/audit"
	"github.com/milkyway-analytics/milkyway/pkg/jsonutil"
	"github.com/milkyway-analytics/milkyway/pkg/llm"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

const (
	defaultPreviewRows = 5
	defaultQueryRows   = 100
)

// SuggestedConfig is a resolved pattern configuration the UI can apply to
// its form. Nothing is compiled until the user confirms.
type SuggestedConfig struct {
	Pattern   models.Pattern           `json:"pattern"`
	Variables models.ResolvedVariables `json:"variables"`
}

// ToolResult records one tool invocation for the reply.
type ToolResult struct {
	Tool   string          `json:"tool"`
	Input  json.RawMessage `json:"input"`
	Output map[string]any  `json:"output"`

	// Config is set when a configure tool succeeded.
	Config *SuggestedConfig `json:"-"`
}

// Success reports the "success" flag of the output.
func (r ToolResult) Success() bool {
	ok, _ := r.Output["success"].(bool)
	return ok
}

// JSON renders the output as the tool result content sent back to the model.
func (r ToolResult) JSON() string {
	b, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(b)
}

// ToolExecutor runs the assistant's tools against the schema service and the
// memory store. Tool failures never escape as Go errors; they are reported to
// the model as {"success": false, "error": ...} so it can recover.
type ToolExecutor struct {
	schema  services.SchemaService
	memory  *memory.Store
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewToolExecutor creates a tool executor.
func NewToolExecutor(schema services.SchemaService, mem *memory.Store, logger *zap.Logger) *ToolExecutor {
	return &ToolExecutor{
		schema:  schema,
		memory:  mem,
		auditor: audit.NewSecurityAuditor(logger),
		logger:  logger.Named("tool-executor"),
	}
}

// Execute dispatches one tool call by name.
func (e *ToolExecutor) Execute(ctx context.Context, call llm.ToolCall) ToolResult {
	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	result := ToolResult{Tool: call.Name, Input: args}

	e.logger.Debug("Executing tool",
		zap.String("tool", call.Name),
		zap.String("arguments", logging.TruncateString(string(args), logging.MaxQueryLogLength)))

	var err error
	switch call.Name {
	case llm.ToolListDatasets:
		result.Output, err = e.listDatasets(ctx)
	case llm.ToolListTables:
		result.Output, err = e.listTables(ctx, args)
	case llm.ToolGetTableSchema:
		result.Output, err = e.getTableSchema(ctx, args)
	case llm.ToolPreviewTable:
		result.Output, err = e.previewTable(ctx, args)
	case llm.ToolRunQuery:
		result.Output, err = e.runQuery(ctx, args)
	case llm.ToolConfigureGrowthAccounting:
		result.Output, result.Config, err = e.configureGrowthAccounting(args)
	case llm.ToolRememberPreference:
		result.Output, err = e.rememberPreference(args)
	case llm.ToolRememberFact:
		result.Output, err = e.rememberFact(args)
	default:
		err = fmt.Errorf("unknown tool: %s", call.Name)
	}

	if err != nil {
		e.logger.Info("Tool failed",
			zap.String("tool", call.Name),
			zap.String("error", logging.SanitizeError(err)))
		result.Output = failure(err)
		result.Config = nil
	}
	return result
}

func failure(err error) map[string]any {
	return map[string]any{"success": false, "error": logging.SanitizeError(err)}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// rowLimit reads an optional limit argument. Models send it as a number or
// a string; anything not positive means the default.
func rowLimit(raw json.RawMessage, fallback int) (int, error) {
	n, err := jsonutil.FlexibleInt(raw, fallback)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: %w", err)
	}
	if n <= 0 {
		return fallback, nil
	}
	return n, nil
}

type tableArgs struct {
	Dataset string          `json:"dataset"`
	Table   string          `json:"table"`
	Limit   json.RawMessage `json:"limit"`
}

func (e *ToolExecutor) listDatasets(ctx context.Context) (map[string]any, error) {
	datasets, err := e.schema.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "datasets": datasets}, nil
}

func (e *ToolExecutor) listTables(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args tableArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	tables, err := e.schema.ListTables(ctx, args.Dataset)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "tables": tables}, nil
}

func (e *ToolExecutor) getTableSchema(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args tableArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	columns, err := e.schema.GetSchema(ctx, args.Dataset, args.Table)
	if err != nil {
		return nil, err
	}
	e.rememberTable(models.TableRef{Dataset: args.Dataset, Table: args.Table}.String())

	return map[string]any{
		"success":  true,
		"schema":   columns,
		"detected": services.DetectColumns(columns),
	}, nil
}

func (e *ToolExecutor) previewTable(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args tableArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	limit, err := rowLimit(args.Limit, defaultPreviewRows)
	if err != nil {
		return nil, err
	}
	result, err := e.schema.Preview(ctx, args.Dataset, args.Table, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "rows": result.Rows}, nil
}

func (e *ToolExecutor) runQuery(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		SQL   string          `json:"sql"`
		Limit json.RawMessage `json:"limit"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	limit, err := rowLimit(args.Limit, defaultQueryRows)
	if err != nil {
		return nil, err
	}
	result, err := e.schema.Query(ctx, args.SQL, limit)

	details := audit.AdHocQueryDetails{SQL: args.SQL, Limit: limit}
	if err != nil {
		details.Error = logging.SanitizeError(err)
	} else {
		details.RowCount = result.RowCount
	}
	e.auditor.LogAdHocQuery("assistant", "", details)

	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "rows": result.Rows, "row_count": result.RowCount}, nil
}

// configureGrowthAccounting resolves the tool's arguments through the same
// resolver the form uses, so the model cannot suggest an invalid payload.
func (e *ToolExecutor) configureGrowthAccounting(raw json.RawMessage) (map[string]any, *SuggestedConfig, error) {
	var args map[string]any
	if err := decodeArgs(raw, &args); err != nil {
		return nil, nil, err
	}
	vars, err := services.Resolve(models.PatternGrowthAccounting, models.RawConfig(args))
	if err != nil {
		return nil, nil, err
	}
	e.rememberTable(vars[models.VarActivityTable])

	suggested := &SuggestedConfig{Pattern: models.PatternGrowthAccounting, Variables: vars}
	return map[string]any{"success": true, "config": suggested}, suggested, nil
}

func (e *ToolExecutor) rememberPreference(raw json.RawMessage) (map[string]any, error) {
	var args struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	value := jsonutil.FlexibleString(args.Value)
	if err := e.memory.AddPreference(args.Key, value); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "message": fmt.Sprintf("Remembered: %s = %s", args.Key, value)}, nil
}

func (e *ToolExecutor) rememberFact(raw json.RawMessage) (map[string]any, error) {
	var args struct {
		Fact string `json:"fact"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Fact == "" {
		return nil, fmt.Errorf("fact is required")
	}
	if _, err := e.memory.AddFact(args.Fact); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "message": "Remembered: " + args.Fact}, nil
}

// rememberTable records a table as recently used. A failed write is logged;
// the tool call itself still succeeded.
func (e *ToolExecutor) rememberTable(table string) {
	if table == "" {
		return
	}
	if err := e.memory.AddRecentTable(table); err != nil {
		e.logger.Warn("Failed to persist recent table",
			zap.String("table", table),
			zap.Error(err))
	}
}
