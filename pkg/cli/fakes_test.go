package cli

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/config"
	"github.com/milkyway-analytics/milkyway/pkg/dbt"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// fakeWarehouse serves one activity table and one table without id or
// timestamp columns.
type fakeWarehouse struct{}

var fakeTables = map[string][]warehouse.ColumnMetadata{
	"sessions.user_activity": {
		{ColumnName: "user_id", DataType: "STRING", OrdinalPosition: 1},
		{ColumnName: "event_time", DataType: "TIMESTAMP", OrdinalPosition: 2},
		{ColumnName: "event_type", DataType: "STRING", OrdinalPosition: 3},
	},
	"sessions.blobs": {
		{ColumnName: "payload", DataType: "STRING", OrdinalPosition: 1},
	},
}

func (fakeWarehouse) Type() string                         { return "fake" }
func (fakeWarehouse) TestConnection(context.Context) error { return nil }
func (fakeWarehouse) Close() error                         { return nil }
func (fakeWarehouse) QuoteIdentifier(name string) string   { return `"` + name + `"` }

func (fakeWarehouse) ListDatasets(context.Context) ([]string, error) {
	return []string{"sessions"}, nil
}

func (fakeWarehouse) ListTables(_ context.Context, dataset string) ([]string, error) {
	return []string{"blobs", "user_activity"}, nil
}

func (fakeWarehouse) DiscoverColumns(_ context.Context, dataset, table string) ([]warehouse.ColumnMetadata, error) {
	cols, ok := fakeTables[dataset+"."+table]
	if !ok {
		return nil, &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset, Table: table}
	}
	return cols, nil
}

func (fakeWarehouse) Query(_ context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error) {
	return &warehouse.QueryExecutionResult{
		Columns:  []warehouse.ColumnInfo{{Name: "user_id", Type: "TEXT"}},
		Rows:     []map[string]any{{"user_id": "user_0001"}},
		RowCount: 1,
	}, nil
}

var _ warehouse.Warehouse = fakeWarehouse{}

func newTestApp(t *testing.T) *app {
	t.Helper()
	logger := zap.NewNop()
	w := fakeWarehouse{}
	return &app{
		cfg: &config.Config{
			Server:    config.ServerConfig{BindAddr: "127.0.0.1", Port: "0", Env: "test"},
			Warehouse: config.WarehouseConfig{Type: "fake", PreviewLimit: 100},
			LLM:       config.LLMConfig{Provider: "none", MaxTokens: 256},
			Session:   config.SessionConfig{CookieName: "milkyway_session"},
			Version:   "test",
		},
		logger:    logger,
		factory:   warehouse.NewAdapterFactory(logger),
		warehouse: w,
		schema:    services.NewSchemaService(w, services.SchemaServiceOptions{}, logger),
		memory:    memory.Open(filepath.Join(t.TempDir(), "memory.json"), logger),
		bridge:    dbt.NewBridge(dbt.Config{ProjectDir: t.TempDir()}, nil, logger),
	}
}
