package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/audit"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// --- Request Types ---

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit"`
}

// --- Response Types ---

// DatasetsResponse is the body of GET /api/datasets.
type DatasetsResponse struct {
	Datasets []string `json:"datasets"`
}

// TablesResponse is the body of GET /api/datasets/{dataset}/tables.
type TablesResponse struct {
	Dataset string   `json:"dataset"`
	Tables  []string `json:"tables"`
}

// TableSchemaResponse is the body of GET /api/schema/{dataset}/{table}.
// When the lookup fails or detection is incomplete, ManualEntry is set and
// the form falls back to ManualDefaults.
type TableSchemaResponse struct {
	Table          models.TableRef           `json:"table"`
	Pattern        models.Pattern            `json:"pattern"`
	Columns        []models.ColumnDescriptor `json:"columns"`
	Detected       models.DetectedColumns    `json:"detected"`
	Suggested      models.RawConfig          `json:"suggested"`
	ManualEntry    bool                      `json:"manual_entry"`
	ManualDefaults models.RawConfig          `json:"manual_defaults"`
	LookupError    string                    `json:"lookup_error,omitempty"`
	LookupKind     string                    `json:"lookup_kind,omitempty"`
}

// --- Handler ---

// SchemaHandler handles warehouse browsing and ad-hoc queries.
type SchemaHandler struct {
	schemaService services.SchemaService
	previewLimit  int
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
}

// NewSchemaHandler creates a new schema handler. previewLimit caps every
// row-returning request.
func NewSchemaHandler(schemaService services.SchemaService, previewLimit int, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		schemaService: schemaService,
		previewLimit:  previewLimit,
		auditor:       audit.NewSecurityAuditor(logger),
		logger:        logger,
	}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasets", h.ListDatasets)
	mux.HandleFunc("GET /api/datasets/{dataset}/tables", h.ListTables)
	mux.HandleFunc("GET /api/schema/{dataset}/{table}", h.GetTableSchema)
	mux.HandleFunc("POST /api/query", h.Query)
}

// ListDatasets handles GET /api/datasets.
func (h *SchemaHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.schemaService.ListDatasets(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, DatasetsResponse{Datasets: datasets})
}

// ListTables handles GET /api/datasets/{dataset}/tables.
func (h *SchemaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	dataset := r.PathValue("dataset")
	tables, err := h.schemaService.ListTables(r.Context(), dataset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, TablesResponse{Dataset: dataset, Tables: tables})
}

// GetTableSchema handles GET /api/schema/{dataset}/{table}?pattern=p.
// Lookup failures degrade to a manual-entry response instead of an error
// status, so the form stays usable.
func (h *SchemaHandler) GetTableSchema(w http.ResponseWriter, r *http.Request) {
	pattern := models.PatternGrowthAccounting
	if name := r.URL.Query().Get("pattern"); name != "" {
		p, err := models.ParsePattern(name)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		pattern = p
	}

	ref := models.TableRef{Dataset: r.PathValue("dataset"), Table: r.PathValue("table")}
	response := TableSchemaResponse{
		Table:          ref,
		Pattern:        pattern,
		Columns:        []models.ColumnDescriptor{},
		ManualDefaults: models.Examples(pattern),
	}

	columns, err := h.schemaService.GetSchema(r.Context(), ref.Dataset, ref.Table)
	if err != nil {
		var lookupErr *apperrors.SchemaLookupError
		if !errors.As(err, &lookupErr) {
			writeError(w, h.logger, err)
			return
		}
		h.logger.Info("Schema lookup failed, offering manual entry",
			zap.String("table", ref.String()),
			zap.String("kind", string(lookupErr.Kind)))
		response.ManualEntry = true
		response.LookupError = logging.SanitizeError(err)
		response.LookupKind = string(lookupErr.Kind)
		response.Suggested = models.RawConfig{}
		writeData(w, h.logger, response)
		return
	}

	response.Columns = columns
	response.Detected = services.DetectColumns(columns)
	response.Suggested = services.DetectedRawConfig(pattern, ref, response.Detected)
	response.ManualEntry = !response.Detected.Complete()
	writeData(w, h.logger, response)
}

// Query handles POST /api/query. The row limit never exceeds the preview limit.
func (h *SchemaHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	limit := h.limit(req.Limit)
	result, err := h.schemaService.Query(r.Context(), req.SQL, limit)

	details := audit.AdHocQueryDetails{SQL: req.SQL, Limit: limit}
	if err != nil {
		details.Error = logging.SanitizeError(err)
	} else {
		details.RowCount = result.RowCount
	}
	h.auditor.LogAdHocQuery("api", audit.ClientIP(r), details)

	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, result)
}

func (h *SchemaHandler) limit(requested int) int {
	return capLimit(requested, h.previewLimit)
}

// capLimit returns requested bounded by ceiling; zero or negative means ceiling.
func capLimit(requested, ceiling int) int {
	if ceiling <= 0 {
		ceiling = warehouse.MaxQueryLimit
	}
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}
