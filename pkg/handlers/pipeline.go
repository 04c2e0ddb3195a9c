package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/audit"
	"github.com/milkyway-analytics/milkyway/pkg/dbt"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// --- Request Types ---

// PatternRequest names a pattern and the user's raw form values. When
// DetectTable is set, its columns are auto-detected and layered under Config.
type PatternRequest struct {
	Pattern     string           `json:"pattern"`
	Config      models.RawConfig `json:"config"`
	DetectTable string           `json:"detect_table,omitempty"`
}

// PreviewRequest previews either a pattern's compiled SQL (Pattern set) or
// a warehouse table (Table set, as dataset.table).
type PreviewRequest struct {
	PatternRequest
	Table string `json:"table,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// --- Response Types ---

// ResolveResponse is the body of POST /api/resolve.
type ResolveResponse struct {
	Pattern   models.Pattern           `json:"pattern"`
	Variables models.ResolvedVariables `json:"variables"`
	VarsJSON  string                   `json:"vars_json"`
}

// CompileResponse is the body of POST /api/compile.
type CompileResponse struct {
	Pattern   models.Pattern           `json:"pattern"`
	Variables models.ResolvedVariables `json:"variables"`
	SQL       string                   `json:"sql"`
}

// RunResponse is the body of POST /api/run. A failed dbt run is still a
// successful request; Outcome.Success carries the verdict.
type RunResponse struct {
	Pattern   models.Pattern           `json:"pattern"`
	Variables models.ResolvedVariables `json:"variables"`
	Outcome   *dbt.RunOutcome          `json:"outcome"`
}

// PreviewResponse is the body of POST /api/preview. SQL is empty for table
// previews.
type PreviewResponse struct {
	SQL    string                          `json:"sql,omitempty"`
	Result *warehouse.QueryExecutionResult `json:"result"`
}

// --- Handler ---

// PipelineHandler turns form input into dbt variables and hands them to dbt.
type PipelineHandler struct {
	schemaService services.SchemaService
	bridge        dbt.Bridge
	previewLimit  int
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
}

// NewPipelineHandler creates a PipelineHandler.
func NewPipelineHandler(schemaService services.SchemaService, bridge dbt.Bridge, previewLimit int, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{
		schemaService: schemaService,
		bridge:        bridge,
		previewLimit:  previewLimit,
		auditor:       audit.NewSecurityAuditor(logger),
		logger:        logger,
	}
}

// RegisterRoutes registers the pipeline routes on the given mux.
func (h *PipelineHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/resolve", h.Resolve)
	mux.HandleFunc("POST /api/compile", h.Compile)
	mux.HandleFunc("POST /api/run", h.Run)
	mux.HandleFunc("POST /api/preview", h.Preview)
}

// Resolve handles POST /api/resolve.
func (h *PipelineHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req PatternRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pattern, vars, err := h.resolve(r, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	varsJSON, err := services.Serialize(vars)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, ResolveResponse{Pattern: pattern, Variables: vars, VarsJSON: varsJSON})
}

// Compile handles POST /api/compile.
func (h *PipelineHandler) Compile(w http.ResponseWriter, r *http.Request) {
	var req PatternRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pattern, vars, err := h.resolve(r, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	compiled, err := h.bridge.Compile(r.Context(), pattern, vars)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, CompileResponse{Pattern: pattern, Variables: vars, SQL: compiled})
}

// Run handles POST /api/run.
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req PatternRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pattern, vars, err := h.resolve(r, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	outcome, err := h.bridge.Run(r.Context(), pattern, vars)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !outcome.Success {
		h.logger.Info("dbt run reported failure",
			zap.String("pattern", string(pattern)),
			zap.Int("exit_code", outcome.ExitCode))
	}
	writeData(w, h.logger, RunResponse{Pattern: pattern, Variables: vars, Outcome: outcome})
}

// Preview handles POST /api/preview.
func (h *PipelineHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit := capLimit(req.Limit, h.previewLimit)

	switch {
	case req.Pattern != "":
		pattern, vars, err := h.resolve(r, req.PatternRequest)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		compiled, err := h.bridge.Compile(r.Context(), pattern, vars)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		result, err := h.schemaService.Query(r.Context(), compiled, limit)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeData(w, h.logger, PreviewResponse{SQL: compiled, Result: result})

	case strings.TrimSpace(req.Table) != "":
		ref := models.ParseTableRef(req.Table)
		result, err := h.schemaService.Preview(r.Context(), ref.Dataset, ref.Table, limit)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeData(w, h.logger, PreviewResponse{Result: result})

	default:
		writeError(w, h.logger, fmt.Errorf("%w: pattern or table is required", apperrors.ErrInvalidRequest))
	}
}

// resolve layers defaults, detected columns and the user's values, then
// validates them into the exact dbt payload.
func (h *PipelineHandler) resolve(r *http.Request, req PatternRequest) (models.Pattern, models.ResolvedVariables, error) {
	pattern, err := models.ParsePattern(req.Pattern)
	if err != nil {
		return "", nil, err
	}

	vars, err := services.ResolveForTable(r.Context(), h.schemaService, pattern, req.DetectTable, req.Config)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidLiteral) {
			h.auditor.LogRejectedLiteral("api", audit.ClientIP(r), audit.RejectedLiteralDetails{
				Pattern: string(pattern),
				Reason:  err.Error(),
			})
		}
		return "", nil, err
	}
	return pattern, vars, nil
}
