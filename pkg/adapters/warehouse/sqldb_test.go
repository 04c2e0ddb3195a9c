package warehouse

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

type testDialect struct{}

func (testDialect) Type() string              { return "test" }
func (testDialect) ListDatasetsQuery() string { return "SELECT schema_name FROM schemata" }
func (testDialect) ListTablesQuery() string   { return "SELECT table_name FROM tables WHERE table_schema = ?" }
func (testDialect) ColumnsQuery() string {
	return "SELECT column_name, data_type, is_nullable, ordinal_position FROM columns WHERE table_schema = ? AND table_name = ?"
}
func (testDialect) QuoteIdentifier(name string) string       { return QuoteDoubleQuoted(name) }
func (testDialect) WrapLimit(query string, limit int) string { return WrapLimitClause(query, limit) }
func (testDialect) ClassifyError(err error) apperrors.SchemaLookupKind {
	return ClassifyByMessage(err)
}

func newMockWarehouse(t *testing.T) (*SQLWarehouse, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLWarehouse(db, testDialect{}, zap.NewNop()), mock
}

func TestSQLWarehouse_DiscoverColumns(t *testing.T) {
	w, mock := newMockWarehouse(t)

	mock.ExpectQuery(testDialect{}.ColumnsQuery()).
		WithArgs("sessions", "user_activity").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("user_id", "character varying", "NO", 1).
			AddRow("event_time", "timestamp with time zone", "YES", 2).
			AddRow("amount", "numeric(10,2)", "YES", 3))

	columns, err := w.DiscoverColumns(context.Background(), "sessions", "user_activity")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "user_id", columns[0].ColumnName)
	assert.Equal(t, models.ColumnTypeString, columns[0].DataType)
	assert.False(t, columns[0].IsNullable)
	assert.Equal(t, models.ColumnTypeTimestamp, columns[1].DataType)
	assert.Equal(t, "timestamp with time zone", columns[1].RawType)
	assert.Equal(t, models.ColumnTypeNumeric, columns[2].DataType)
	assert.Equal(t, 3, columns[2].OrdinalPosition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWarehouse_DiscoverColumns_EmptyIsNotFound(t *testing.T) {
	w, mock := newMockWarehouse(t)

	mock.ExpectQuery(testDialect{}.ColumnsQuery()).
		WithArgs("sessions", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	_, err := w.DiscoverColumns(context.Background(), "sessions", "nope")
	assert.True(t, apperrors.IsSchemaLookupKind(err, apperrors.SchemaLookupNotFound))
}

func TestSQLWarehouse_DiscoverColumns_ClassifiesDriverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperrors.SchemaLookupKind
	}{
		{"permission", errors.New("permission denied for schema finance"), apperrors.SchemaLookupPermissionDenied},
		{"timeout", context.DeadlineExceeded, apperrors.SchemaLookupTransient},
		{"unknown", errors.New("connection reset by peer"), apperrors.SchemaLookupTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, mock := newMockWarehouse(t)
			mock.ExpectQuery(testDialect{}.ColumnsQuery()).WillReturnError(tt.err)

			_, err := w.DiscoverColumns(context.Background(), "finance", "ledger")

			var lookupErr *apperrors.SchemaLookupError
			require.True(t, errors.As(err, &lookupErr))
			assert.Equal(t, tt.kind, lookupErr.Kind)
			assert.Equal(t, "finance", lookupErr.Dataset)
			assert.Equal(t, "ledger", lookupErr.Table)
		})
	}
}

func TestSQLWarehouse_ListDatasetsAndTables(t *testing.T) {
	w, mock := newMockWarehouse(t)

	mock.ExpectQuery(testDialect{}.ListDatasetsQuery()).
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("public").AddRow("sessions"))
	mock.ExpectQuery(testDialect{}.ListTablesQuery()).
		WithArgs("sessions").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("user_activity"))

	datasets, err := w.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"public", "sessions"}, datasets)

	tables, err := w.ListTables(context.Background(), "sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_activity"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWarehouse_QueryWrapsAndClampsLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"zero uses max", 0, MaxQueryLimit},
		{"negative uses max", -5, MaxQueryLimit},
		{"over max is capped", 5000, MaxQueryLimit},
		{"within range", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, mock := newMockWarehouse(t)
			mock.ExpectQuery(WrapLimitClause("SELECT user_id FROM sessions.user_activity", tt.expected)).
				WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow([]byte("u1")).AddRow("u2"))

			result, err := w.Query(context.Background(), "SELECT user_id FROM sessions.user_activity", tt.limit)
			require.NoError(t, err)
			assert.Equal(t, 2, result.RowCount)
			assert.Equal(t, "user_id", result.Columns[0].Name)
			// []byte values come back as strings
			assert.Equal(t, "u1", result.Rows[0]["user_id"])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLWarehouse_QueryError(t *testing.T) {
	w, mock := newMockWarehouse(t)
	mock.ExpectQuery(WrapLimitClause("SELECT nope", 10)).WillReturnError(errors.New("syntax error"))

	_, err := w.Query(context.Background(), "SELECT nope", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestSQLWarehouse_TestConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	w := NewSQLWarehouse(db, testDialect{}, nil)

	mock.ExpectPing()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectClose()

	require.NoError(t, w.TestConnection(context.Background()))
	require.NoError(t, w.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreviewTable(t *testing.T) {
	w, mock := newMockWarehouse(t)
	mock.ExpectQuery(WrapLimitClause(`SELECT * FROM "sessions"."user_activity"`, 5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

	result, err := PreviewTable(context.Background(), w, "sessions", "user_activity", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapHelpers(t *testing.T) {
	assert.Equal(t, "SELECT * FROM (\nSELECT 1 -- note\n) AS _limited LIMIT 10", WrapLimitClause("SELECT 1 -- note", 10))
	assert.Equal(t, "SELECT TOP (10) * FROM (\nSELECT 1\n) AS _limited", WrapTop("SELECT 1", 10))
	assert.Equal(t, `"we""ird"`, QuoteDoubleQuoted(`we"ird`))
	assert.Equal(t, "[we]]ird]", QuoteBracketed("we]ird"))
}
