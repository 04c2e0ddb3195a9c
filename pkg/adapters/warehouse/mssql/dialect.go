package mssql

import (
	"errors"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// Dialect is the SQL Server flavour of information_schema plus TOP wrapping.
type Dialect struct{}

func (Dialect) Type() string { return "mssql" }

func (Dialect) ListDatasetsQuery() string {
	return `
		SELECT SCHEMA_NAME
		FROM INFORMATION_SCHEMA.SCHEMATA
		WHERE SCHEMA_NAME NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
		  AND SCHEMA_NAME NOT LIKE 'db[_]%'
		ORDER BY SCHEMA_NAME
	`
}

func (Dialect) ListTablesQuery() string {
	return `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1
		ORDER BY TABLE_NAME
	`
}

func (Dialect) ColumnsQuery() string {
	return `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION
	`
}

func (Dialect) QuoteIdentifier(name string) string {
	return warehouse.QuoteBracketed(name)
}

func (Dialect) WrapLimit(query string, limit int) string {
	return warehouse.WrapTop(query, limit)
}

// ClassifyError maps SQL Server error numbers onto lookup kinds.
func (Dialect) ClassifyError(err error) apperrors.SchemaLookupKind {
	var msErr mssqldb.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 208, // invalid object name
			2812, // could not find stored procedure
			4060: // cannot open database
			return apperrors.SchemaLookupNotFound
		case 229, 230, 262, 297, 300, // permission denied variants
			18456: // login failed
			return apperrors.SchemaLookupPermissionDenied
		}
		return apperrors.SchemaLookupTransient
	}
	return warehouse.ClassifyByMessage(err)
}

var _ warehouse.Dialect = Dialect{}
