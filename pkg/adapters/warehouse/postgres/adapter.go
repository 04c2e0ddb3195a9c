package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

// Adapter provides PostgreSQL connectivity over a pgx pool.
type Adapter struct {
	config *Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewAdapter opens a pool. The pool connects lazily; use TestConnection to verify.
func NewAdapter(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	logger.Info("Opened postgres pool",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.ConnectionString())),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database))

	return &Adapter{config: cfg, pool: pool, logger: logger}, nil
}

func (a *Adapter) Type() string { return "postgres" }

// TestConnection checks connectivity and that the pool landed on the
// configured database rather than a default one.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	if currentDB != a.config.Database {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}
	return nil
}

func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// QuoteIdentifier uses PostgreSQL's double-quote quoting.
func (a *Adapter) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (a *Adapter) ListDatasets(ctx context.Context) ([]string, error) {
	const query = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND schema_name NOT LIKE 'pg_temp_%'
		  AND schema_name NOT LIKE 'pg_toast_temp_%'
		ORDER BY schema_name
	`
	names, err := a.queryStrings(ctx, query)
	if err != nil {
		return nil, warehouse.LookupError("", "", err, classifyError)
	}
	return names, nil
}

func (a *Adapter) ListTables(ctx context.Context, dataset string) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name
	`
	names, err := a.queryStrings(ctx, query, dataset)
	if err != nil {
		return nil, warehouse.LookupError(dataset, "", err, classifyError)
	}
	return names, nil
}

// DiscoverColumns returns columns in declaration order.
func (a *Adapter) DiscoverColumns(ctx context.Context, dataset, table string) ([]warehouse.ColumnMetadata, error) {
	const query = `
		SELECT column_name, data_type, udt_name, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := a.pool.Query(ctx, query, dataset, table)
	if err != nil {
		return nil, warehouse.LookupError(dataset, table, err, classifyError)
	}
	defer rows.Close()

	var columns []warehouse.ColumnMetadata
	for rows.Next() {
		var (
			name, dataType, udtName, nullable string
			position                          int32
		)
		if err := rows.Scan(&name, &dataType, &udtName, &nullable, &position); err != nil {
			return nil, warehouse.LookupError(dataset, table, fmt.Errorf("scan column: %w", err), classifyError)
		}

		// information_schema reports domains and arrays as USER-DEFINED/ARRAY;
		// udt_name carries the concrete type (timestamptz, _int4, ...).
		raw := dataType
		if dataType == "USER-DEFINED" {
			raw = udtName
		}
		columns = append(columns, warehouse.ColumnMetadata{
			ColumnName:      name,
			DataType:        warehouse.NormalizeType(raw),
			RawType:         raw,
			IsNullable:      nullable == "YES",
			OrdinalPosition: int(position),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, warehouse.LookupError(dataset, table, err, classifyError)
	}
	if len(columns) == 0 {
		return nil, warehouse.NotFound(dataset, table)
	}
	return columns, nil
}

// Query runs sqlQuery wrapped in a LIMIT subquery.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error) {
	queryToRun := warehouse.WrapLimitClause(sqlQuery, warehouse.ClampLimit(limit))
	a.logger.Debug("Executing query", zap.String("sql", logging.SanitizeQuery(sqlQuery)))

	rows, err := a.pool.Query(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]warehouse.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = warehouse.ColumnInfo{
			Name: fd.Name,
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &warehouse.QueryExecutionResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Exec runs a statement without wrapping. Used only by the sample data loader.
func (a *Adapter) Exec(ctx context.Context, statement string, args ...any) error {
	_, err := a.pool.Exec(ctx, statement, args...)
	return err
}

func (a *Adapter) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// pgTypeNameFromOID maps common PostgreSQL type OIDs to type names for
// result column headers. Unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	default:
		return "UNKNOWN"
	}
}

var _ warehouse.Warehouse = (*Adapter)(nil)
