package warehouse

import "context"

// ConnectionTester tests warehouse connectivity.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the warehouse is reachable with valid credentials.
	TestConnection(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// SchemaDiscoverer lists datasets and tables and describes table columns.
type SchemaDiscoverer interface {
	// ListDatasets returns user datasets (schemas), excluding system ones.
	ListDatasets(ctx context.Context) ([]string, error)

	// ListTables returns the tables and views of one dataset.
	ListTables(ctx context.Context, dataset string) ([]string, error)

	// DiscoverColumns returns columns in declaration order. A table that does
	// not exist yields a *apperrors.SchemaLookupError of kind not_found.
	DiscoverColumns(ctx context.Context, dataset, table string) ([]ColumnMetadata, error)
}

// MaxQueryLimit is the hard cap on rows returned by Query.
const MaxQueryLimit = 1000

// QueryExecutor runs bounded read queries.
type QueryExecutor interface {
	// Query runs a SELECT statement and returns bounded results.
	// The query is ALWAYS wrapped with a dialect-specific limit:
	//   - PostgreSQL, Snowflake, DuckDB: SELECT * FROM (query) AS _limited LIMIT n
	//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited
	//
	// limit <= 0 uses MaxQueryLimit; larger values are capped to it.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// QuoteIdentifier safely quotes a dataset, table or column name.
	QuoteIdentifier(name string) string
}

// Warehouse is everything the engine needs from a configured warehouse.
type Warehouse interface {
	ConnectionTester
	SchemaDiscoverer
	QueryExecutor

	// Type returns the registered adapter type, e.g. "postgres".
	Type() string
}

// StatementExecutor runs DDL and inserts. Only the sample data loader uses it;
// the engine itself never writes to a warehouse.
type StatementExecutor interface {
	Exec(ctx context.Context, statement string, args ...any) error
}

// ColumnMetadata represents a discovered column.
type ColumnMetadata struct {
	ColumnName      string `json:"column_name"`
	DataType        string `json:"data_type"` // normalized, see NormalizeType
	RawType         string `json:"raw_type"`  // as reported by the warehouse
	IsNullable      bool   `json:"is_nullable"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // database type name (e.g. "TEXT", "INT4", "VARCHAR")
}

// QueryExecutionResult holds the results from executing a query.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ClampLimit applies the MaxQueryLimit rules to a requested limit.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
