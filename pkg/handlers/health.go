package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/config"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

// healthCheckTimeout bounds the warehouse probe behind /health.
const healthCheckTimeout = 5 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Warehouse string `json:"warehouse,omitempty"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Service       string `json:"service"`
	GoVersion     string `json:"go_version"`
	Hostname      string `json:"hostname"`
	Environment   string `json:"environment"`
	WarehouseType string `json:"warehouse_type"`
	LLMProvider   string `json:"llm_provider"`
}

// HealthHandler handles health check, ping and metrics endpoints.
type HealthHandler struct {
	cfg    *config.Config
	tester warehouse.ConnectionTester
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil tester skips the
// warehouse probe.
func NewHealthHandler(cfg *config.Config, tester warehouse.ConnectionTester, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, tester: tester, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Health handles GET /health requests. The warehouse is probed when a
// tester is configured; a failed probe reports 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok"}
	status := http.StatusOK

	if h.tester != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.tester.TestConnection(ctx); err != nil {
			h.logger.Warn("Warehouse health check failed", zap.String("error", logging.SanitizeError(err)))
			response.Status = "degraded"
			response.Warehouse = logging.SanitizeError(err)
			status = http.StatusServiceUnavailable
		} else {
			response.Warehouse = "ok"
		}
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:        "ok",
		Version:       h.cfg.Version,
		Service:       "milkyway",
		GoVersion:     runtime.Version(),
		Hostname:      hostname,
		Environment:   h.cfg.Server.Env,
		WarehouseType: h.cfg.Warehouse.Type,
		LLMProvider:   h.cfg.LLM.Provider,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
