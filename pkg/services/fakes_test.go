package services

import (
	"context"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// fakeWarehouse serves tables from memory. errs are returned in order, one
// per DiscoverColumns call, before falling through to the table data.
type fakeWarehouse struct {
	tables        map[string][]warehouse.ColumnMetadata // "dataset.table" -> columns
	datasets      []string
	errs          []error
	discoverCalls int
	lastQuery     string
	lastLimit     int
	queryErr      error
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		datasets: []string{"sessions"},
		tables: map[string][]warehouse.ColumnMetadata{
			"sessions.user_activity": {
				{ColumnName: "id", DataType: "INTEGER", OrdinalPosition: 1},
				{ColumnName: "user_id", DataType: "STRING", OrdinalPosition: 2},
				{ColumnName: "event_time", DataType: "TIMESTAMP", OrdinalPosition: 3},
			},
		},
	}
}

func (f *fakeWarehouse) Type() string                             { return "fake" }
func (f *fakeWarehouse) TestConnection(ctx context.Context) error { return nil }
func (f *fakeWarehouse) Close() error                             { return nil }
func (f *fakeWarehouse) QuoteIdentifier(name string) string       { return `"` + name + `"` }

func (f *fakeWarehouse) ListDatasets(ctx context.Context) ([]string, error) {
	return f.datasets, nil
}

func (f *fakeWarehouse) ListTables(ctx context.Context, dataset string) ([]string, error) {
	var out []string
	for key := range f.tables {
		if len(key) > len(dataset) && key[:len(dataset)+1] == dataset+"." {
			out = append(out, key[len(dataset)+1:])
		}
	}
	return out, nil
}

func (f *fakeWarehouse) DiscoverColumns(ctx context.Context, dataset, table string) ([]warehouse.ColumnMetadata, error) {
	f.discoverCalls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	cols, ok := f.tables[dataset+"."+table]
	if !ok {
		return nil, &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset, Table: table}
	}
	return cols, nil
}

func (f *fakeWarehouse) Query(ctx context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error) {
	f.lastQuery = sqlQuery
	f.lastLimit = limit
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &warehouse.QueryExecutionResult{
		Columns:  []warehouse.ColumnInfo{{Name: "user_id", Type: "TEXT"}},
		Rows:     []map[string]any{{"user_id": "u1"}},
		RowCount: 1,
	}, nil
}

var _ warehouse.Warehouse = (*fakeWarehouse)(nil)
