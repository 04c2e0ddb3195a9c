//go:build duckdb || all_adapters

package duckdb

import (
	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// Dialect reads information_schema of the attached database file.
type Dialect struct{}

func (Dialect) Type() string { return "duckdb" }

func (Dialect) ListDatasetsQuery() string {
	return `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE catalog_name = current_database()
		  AND schema_name NOT IN ('information_schema', 'pg_catalog')
		ORDER BY schema_name
	`
}

func (Dialect) ListTablesQuery() string {
	return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_catalog = current_database() AND table_schema = ?
		ORDER BY table_name
	`
}

func (Dialect) ColumnsQuery() string {
	return `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_catalog = current_database() AND table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
}

func (Dialect) QuoteIdentifier(name string) string {
	return warehouse.QuoteDoubleQuoted(name)
}

func (Dialect) WrapLimit(query string, limit int) string {
	return warehouse.WrapLimitClause(query, limit)
}

// ClassifyError relies on message text; DuckDB reports missing objects as
// "Catalog Error" and has no numeric codes.
func (Dialect) ClassifyError(err error) apperrors.SchemaLookupKind {
	return warehouse.ClassifyByMessage(err)
}

var _ warehouse.Dialect = Dialect{}
