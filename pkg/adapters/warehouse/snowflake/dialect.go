package snowflake

import (
	"errors"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// Dialect targets the connected database's INFORMATION_SCHEMA. Snowflake
// folds unquoted identifiers to upper case, so lookups compare upper-cased.
type Dialect struct{}

func (Dialect) Type() string { return "snowflake" }

func (Dialect) ListDatasetsQuery() string {
	return `
		SELECT SCHEMA_NAME
		FROM INFORMATION_SCHEMA.SCHEMATA
		WHERE SCHEMA_NAME <> 'INFORMATION_SCHEMA'
		ORDER BY SCHEMA_NAME
	`
}

func (Dialect) ListTablesQuery() string {
	return `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = UPPER(?)
		ORDER BY TABLE_NAME
	`
}

func (Dialect) ColumnsQuery() string {
	return `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = UPPER(?) AND TABLE_NAME = UPPER(?)
		ORDER BY ORDINAL_POSITION
	`
}

func (Dialect) QuoteIdentifier(name string) string {
	return warehouse.QuoteDoubleQuoted(name)
}

func (Dialect) WrapLimit(query string, limit int) string {
	return warehouse.WrapLimitClause(query, limit)
}

// ClassifyError maps Snowflake error numbers onto lookup kinds.
func (Dialect) ClassifyError(err error) apperrors.SchemaLookupKind {
	var sfErr *sf.SnowflakeError
	if errors.As(err, &sfErr) {
		switch sfErr.Number {
		case 2003: // object does not exist or not authorized
			return apperrors.SchemaLookupNotFound
		case 3001, // insufficient privileges
			390100, // incorrect username or password
			390144: // JWT token invalid
			return apperrors.SchemaLookupPermissionDenied
		}
		return apperrors.SchemaLookupTransient
	}
	return warehouse.ClassifyByMessage(err)
}

var _ warehouse.Dialect = Dialect{}
