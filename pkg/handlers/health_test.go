package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/config"
)

type fakeTester struct {
	err error
}

func (f *fakeTester) TestConnection(ctx context.Context) error { return f.err }
func (f *fakeTester) Close() error                             { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Version:   "test-version",
		Server:    config.ServerConfig{Env: "test"},
		Warehouse: config.WarehouseConfig{Type: "duckdb"},
		LLM:       config.LLMConfig{Provider: "none"},
	}
}

func TestHealthHandler_Health_WithoutTester(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Warehouse != "" {
		t.Errorf("expected no warehouse status without a tester, got %q", response.Warehouse)
	}
}

func TestHealthHandler_Health_WarehouseReachable(t *testing.T) {
	handler := NewHealthHandler(testConfig(), &fakeTester{}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Warehouse)
}

func TestHealthHandler_Health_WarehouseDown(t *testing.T) {
	tester := &fakeTester{err: errors.New("dial tcp: password=hunter2 refused")}
	handler := NewHealthHandler(testConfig(), tester, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "degraded", response.Status)
	assert.NotContains(t, response.Warehouse, "hunter2")
}

func TestHealthHandler_Ping(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Version != "test-version" {
		t.Errorf("expected version 'test-version', got '%s'", response.Version)
	}
	if response.Service != "milkyway" {
		t.Errorf("expected service 'milkyway', got '%s'", response.Service)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	assert.Equal(t, "duckdb", response.WarehouseType)
	assert.Equal(t, "none", response.LLMProvider)
}

func TestHealthHandler_Metrics(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(testConfig(), nil, zap.NewNop()).RegisterRoutes(mux)

	rec := serve(mux, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "milkyway_"), "expected milkyway collectors in /metrics")
}
