package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/dbt"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// mockSchemaService serves one dataset with a detectable activity table.
type mockSchemaService struct {
	tables      map[string][]models.ColumnDescriptor
	err         error
	lastQuery   string
	lastLimit   int
	lastPreview string
}

func newMockSchemaService() *mockSchemaService {
	return &mockSchemaService{
		tables: map[string][]models.ColumnDescriptor{
			"sessions.user_activity": {
				{Name: "user_id", Type: models.ColumnTypeString},
				{Name: "event_time", Type: models.ColumnTypeTimestamp},
				{Name: "event_type", Type: models.ColumnTypeString},
			},
			"sessions.blobs": {
				{Name: "payload", Type: models.ColumnTypeJSON},
			},
		},
	}
}

func (m *mockSchemaService) ListDatasets(ctx context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []string{"sessions"}, nil
}

func (m *mockSchemaService) ListTables(ctx context.Context, dataset string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	if dataset != "sessions" {
		return nil, &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset}
	}
	return []string{"blobs", "user_activity"}, nil
}

func (m *mockSchemaService) GetSchema(ctx context.Context, dataset, table string) ([]models.ColumnDescriptor, error) {
	if m.err != nil {
		return nil, m.err
	}
	cols, ok := m.tables[dataset+"."+table]
	if !ok {
		return nil, &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset, Table: table}
	}
	return cols, nil
}

func (m *mockSchemaService) Preview(ctx context.Context, dataset, table string, limit int) (*warehouse.QueryExecutionResult, error) {
	m.lastPreview = dataset + "." + table
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return &warehouse.QueryExecutionResult{Rows: []map[string]any{{"user_id": "user_0001"}}, RowCount: 1}, nil
}

func (m *mockSchemaService) Query(ctx context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error) {
	m.lastQuery = sqlQuery
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return &warehouse.QueryExecutionResult{Rows: []map[string]any{{"n": 1}}, RowCount: 1}, nil
}

var _ services.SchemaService = (*mockSchemaService)(nil)

// mockBridge records what would have been handed to dbt.
type mockBridge struct {
	compiled   string
	compileErr error
	outcome    *dbt.RunOutcome
	runErr     error
	lastVars   models.ResolvedVariables
}

func (m *mockBridge) Compile(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) (string, error) {
	m.lastVars = vars
	if m.compileErr != nil {
		return "", m.compileErr
	}
	return m.compiled, nil
}

func (m *mockBridge) Run(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) (*dbt.RunOutcome, error) {
	m.lastVars = vars
	if m.runErr != nil {
		return nil, m.runErr
	}
	return m.outcome, nil
}

var _ dbt.Bridge = (*mockBridge)(nil)

// apiResult decodes an ApiResponse whose Data is unmarshaled into data.
func apiResult(t *testing.T, rec *httptest.ResponseRecorder, data any) ApiResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw), "body: %s", rec.Body.String())
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return ApiResponse{Success: raw.Success, Error: raw.Error, Message: raw.Message}
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}
