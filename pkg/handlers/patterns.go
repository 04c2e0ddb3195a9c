package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

// PatternInfo is one pattern contract plus the values the form prefills
// when detection fails.
type PatternInfo struct {
	models.PatternContract
	ManualDefaults models.RawConfig `json:"manual_defaults"`
}

// PatternsResponse is the body of GET /api/patterns.
type PatternsResponse struct {
	Patterns   []PatternInfo      `json:"patterns"`
	TimeGrains []models.TimeGrain `json:"time_grains"`
}

// WarehouseTypesResponse is the body of GET /api/warehouse/types.
type WarehouseTypesResponse struct {
	Current string                  `json:"current"`
	Types   []warehouse.AdapterInfo `json:"types"`
}

// PatternsHandler serves the static catalog: pattern contracts and the
// compiled-in warehouse adapters.
type PatternsHandler struct {
	factory       warehouse.AdapterFactory
	warehouseType string
	logger        *zap.Logger
}

// NewPatternsHandler creates a PatternsHandler.
func NewPatternsHandler(factory warehouse.AdapterFactory, warehouseType string, logger *zap.Logger) *PatternsHandler {
	return &PatternsHandler{factory: factory, warehouseType: warehouseType, logger: logger}
}

// RegisterRoutes registers the catalog routes on the given mux.
func (h *PatternsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/patterns", h.ListPatterns)
	mux.HandleFunc("GET /api/warehouse/types", h.ListWarehouseTypes)
}

// ListPatterns handles GET /api/patterns.
func (h *PatternsHandler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	contracts := models.Contracts()
	patterns := make([]PatternInfo, 0, len(contracts))
	for _, c := range contracts {
		patterns = append(patterns, PatternInfo{PatternContract: c, ManualDefaults: models.Examples(c.Pattern)})
	}
	writeData(w, h.logger, PatternsResponse{Patterns: patterns, TimeGrains: models.AllTimeGrains()})
}

// ListWarehouseTypes handles GET /api/warehouse/types.
func (h *PatternsHandler) ListWarehouseTypes(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.logger, WarehouseTypesResponse{Current: h.warehouseType, Types: h.factory.ListTypes()})
}
