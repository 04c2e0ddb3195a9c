package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

// Dialect supplies the warehouse-specific SQL for a database/sql backed adapter.
type Dialect interface {
	// Type is the registered adapter type.
	Type() string

	// ListDatasetsQuery returns one string column of schema names.
	ListDatasetsQuery() string

	// ListTablesQuery takes the dataset as its only parameter.
	ListTablesQuery() string

	// ColumnsQuery takes dataset and table and returns column_name, data_type,
	// is_nullable ("YES"/"NO") and ordinal_position ordered by position.
	ColumnsQuery() string

	QuoteIdentifier(name string) string

	// WrapLimit bounds an arbitrary SELECT to limit rows.
	WrapLimit(query string, limit int) string

	ClassifyError(err error) apperrors.SchemaLookupKind
}

// SQLWarehouse implements Warehouse over database/sql for drivers that
// register with it (SQL Server, Snowflake, DuckDB).
type SQLWarehouse struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLWarehouse wraps an open *sql.DB. The warehouse owns db and closes it.
func NewSQLWarehouse(db *sql.DB, dialect Dialect, logger *zap.Logger) *SQLWarehouse {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLWarehouse{db: db, dialect: dialect, logger: logger}
}

func (w *SQLWarehouse) Type() string { return w.dialect.Type() }

// TestConnection pings and runs a trivial query.
func (w *SQLWarehouse) TestConnection(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := w.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

func (w *SQLWarehouse) Close() error {
	return w.db.Close()
}

func (w *SQLWarehouse) QuoteIdentifier(name string) string {
	return w.dialect.QuoteIdentifier(name)
}

func (w *SQLWarehouse) ListDatasets(ctx context.Context) ([]string, error) {
	names, err := w.queryStrings(ctx, w.dialect.ListDatasetsQuery())
	if err != nil {
		return nil, LookupError("", "", err, w.dialect.ClassifyError)
	}
	return names, nil
}

func (w *SQLWarehouse) ListTables(ctx context.Context, dataset string) ([]string, error) {
	names, err := w.queryStrings(ctx, w.dialect.ListTablesQuery(), dataset)
	if err != nil {
		return nil, LookupError(dataset, "", err, w.dialect.ClassifyError)
	}
	return names, nil
}

func (w *SQLWarehouse) DiscoverColumns(ctx context.Context, dataset, table string) ([]ColumnMetadata, error) {
	rows, err := w.db.QueryContext(ctx, w.dialect.ColumnsQuery(), dataset, table)
	if err != nil {
		return nil, LookupError(dataset, table, err, w.dialect.ClassifyError)
	}
	defer rows.Close()

	var columns []ColumnMetadata
	for rows.Next() {
		var (
			name, dataType, nullable string
			position                 int
		)
		if err := rows.Scan(&name, &dataType, &nullable, &position); err != nil {
			return nil, LookupError(dataset, table, fmt.Errorf("scan column: %w", err), w.dialect.ClassifyError)
		}
		columns = append(columns, ColumnMetadata{
			ColumnName:      name,
			DataType:        NormalizeType(dataType),
			RawType:         dataType,
			IsNullable:      strings.EqualFold(nullable, "YES"),
			OrdinalPosition: position,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, LookupError(dataset, table, err, w.dialect.ClassifyError)
	}
	if len(columns) == 0 {
		return nil, NotFound(dataset, table)
	}
	return columns, nil
}

// Query wraps sqlQuery with the dialect's limit and returns the rows.
func (w *SQLWarehouse) Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error) {
	wrapped := w.dialect.WrapLimit(sqlQuery, ClampLimit(limit))
	w.logger.Debug("Executing query", zap.String("sql", logging.SanitizeQuery(sqlQuery)))

	rows, err := w.db.QueryContext(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	columns := make([]ColumnInfo, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = ColumnInfo{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rowMap[col.Name] = string(b)
			} else {
				rowMap[col.Name] = values[i]
			}
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &QueryExecutionResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Exec runs a statement without wrapping. Used only by the sample data loader.
func (w *SQLWarehouse) Exec(ctx context.Context, statement string, args ...any) error {
	_, err := w.db.ExecContext(ctx, statement, args...)
	return err
}

func (w *SQLWarehouse) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ Warehouse = (*SQLWarehouse)(nil)

// WrapLimitClause bounds query with a trailing LIMIT. The inner query sits on
// its own lines so a trailing line comment cannot swallow the parenthesis.
func WrapLimitClause(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS _limited LIMIT %d", query, limit)
}

// WrapTop bounds query with SQL Server's TOP.
func WrapTop(query string, limit int) string {
	return fmt.Sprintf("SELECT TOP (%d) * FROM (\n%s\n) AS _limited", limit, query)
}

// QuoteDoubleQuoted quotes an ANSI identifier, doubling embedded quotes.
func QuoteDoubleQuoted(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBracketed quotes a SQL Server identifier, doubling closing brackets.
func QuoteBracketed(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
