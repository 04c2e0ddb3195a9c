package mssql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mssqldb "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

func TestDialect_ClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected apperrors.SchemaLookupKind
	}{
		{"invalid object name", mssqldb.Error{Number: 208, Message: "Invalid object name 'sales.nope'."}, apperrors.SchemaLookupNotFound},
		{"wrapped", fmt.Errorf("query: %w", mssqldb.Error{Number: 229}), apperrors.SchemaLookupPermissionDenied},
		{"login failed", mssqldb.Error{Number: 18456}, apperrors.SchemaLookupPermissionDenied},
		{"deadlock victim", mssqldb.Error{Number: 1205}, apperrors.SchemaLookupTransient},
		{"non-driver error", errors.New("permission denied"), apperrors.SchemaLookupPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Dialect{}.ClassifyError(tt.err))
		})
	}
}

func TestDialect_QuoteAndWrap(t *testing.T) {
	assert.Equal(t, "[sales]", Dialect{}.QuoteIdentifier("sales"))
	assert.Equal(t, "SELECT TOP (5) * FROM (\nSELECT * FROM [sales].[orders]\n) AS _limited",
		Dialect{}.WrapLimit("SELECT * FROM [sales].[orders]", 5))
}

func TestSQLWarehouse_WithMSSQLDialect(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	w := warehouse.NewSQLWarehouse(db, Dialect{}, zap.NewNop())
	defer w.Close()

	mock.ExpectQuery(Dialect{}.ColumnsQuery()).
		WithArgs("sales", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "ORDINAL_POSITION"}).
			AddRow("customer_id", "int", "NO", 1).
			AddRow("ordered_at", "datetime2", "NO", 2))
	mock.ExpectQuery(warehouse.WrapTop("SELECT * FROM [sales].[orders]", 3)).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(1))

	columns, err := w.DiscoverColumns(context.Background(), "sales", "orders")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnTypeInteger, columns[0].DataType)
	assert.Equal(t, models.ColumnTypeDatetime, columns[1].DataType)

	result, err := warehouse.PreviewTable(context.Background(), w, "sales", "orders", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "mssql", w.Type())
	assert.NoError(t, mock.ExpectationsWereMet())
}
