package agent

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// fakeSchema is an in-memory SchemaService.
type fakeSchema struct {
	tables  map[string][]models.ColumnDescriptor // dataset.table -> columns
	rows    []map[string]any
	err     error
	queries []string
}

func newFakeSchema() *fakeSchema {
	return &fakeSchema{
		tables: map[string][]models.ColumnDescriptor{
			"sessions.user_activity": {
				{Name: "user_id", Type: models.ColumnTypeString},
				{Name: "event_time", Type: models.ColumnTypeTimestamp},
				{Name: "event_type", Type: models.ColumnTypeString},
				{Name: "amount", Type: models.ColumnTypeFloat},
			},
			"sessions.raw_blobs": {
				{Name: "payload", Type: models.ColumnTypeJSON},
			},
			"analytics.daily": {
				{Name: "account_id", Type: models.ColumnTypeInteger},
				{Name: "day", Type: models.ColumnTypeDate},
			},
		},
		rows: []map[string]any{{"user_id": "user_0001", "event_type": "login"}},
	}
}

func (f *fakeSchema) ListDatasets(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"analytics", "sessions"}, nil
}

func (f *fakeSchema) ListTables(ctx context.Context, dataset string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch dataset {
	case "sessions":
		return []string{"raw_blobs", "user_activity"}, nil
	case "analytics":
		return []string{"daily"}, nil
	}
	return nil, &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset}
}

func (f *fakeSchema) GetSchema(ctx context.Context, dataset, table string) ([]models.ColumnDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	cols, ok := f.tables[dataset+"."+table]
	if !ok {
		return nil, &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset, Table: table}
	}
	return cols, nil
}

func (f *fakeSchema) Preview(ctx context.Context, dataset, table string, limit int) (*warehouse.QueryExecutionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &warehouse.QueryExecutionResult{Rows: f.rows, RowCount: len(f.rows)}, nil
}

func (f *fakeSchema) Query(ctx context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error) {
	f.queries = append(f.queries, sqlQuery)
	if f.err != nil {
		return nil, f.err
	}
	return &warehouse.QueryExecutionResult{Rows: f.rows, RowCount: len(f.rows)}, nil
}

var _ services.SchemaService = (*fakeSchema)(nil)

func newTestMemory(t *testing.T) *memory.Store {
	t.Helper()
	return memory.Open(filepath.Join(t.TempDir(), "memory.json"), zap.NewNop())
}
