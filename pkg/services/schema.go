package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
	"github.com/milkyway-analytics/milkyway/pkg/metrics"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/retry"
	"github.com/milkyway-analytics/milkyway/pkg/sql"
)

// DefaultSchemaCacheTTL is how long a successful column lookup is reused.
const DefaultSchemaCacheTTL = 300 * time.Second

// SchemaService defines the read-only warehouse operations used by the UI,
// the CLI and the assistant. Lookup failures are *apperrors.SchemaLookupError
// and callers degrade to manual entry on them.
type SchemaService interface {
	// ListDatasets returns the datasets (schemas) visible to the configured credentials.
	ListDatasets(ctx context.Context) ([]string, error)

	// ListTables returns the tables of a dataset.
	ListTables(ctx context.Context, dataset string) ([]string, error)

	// GetSchema returns the columns of dataset.table in declaration order.
	GetSchema(ctx context.Context, dataset, table string) ([]models.ColumnDescriptor, error)

	// Preview returns the first rows of dataset.table.
	Preview(ctx context.Context, dataset, table string, limit int) (*warehouse.QueryExecutionResult, error)

	// Query runs a single read statement wrapped in a row limit.
	Query(ctx context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error)
}

// SchemaServiceOptions tunes caching and retries. Zero values pick the defaults.
type SchemaServiceOptions struct {
	CacheTTL time.Duration
	Retry    *retry.Config
	Now      func() time.Time
}

type cachedSchema struct {
	columns   []models.ColumnDescriptor
	expiresAt time.Time
}

type schemaService struct {
	warehouse warehouse.Warehouse
	logger    *zap.Logger
	ttl       time.Duration
	retryCfg  *retry.Config
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSchema
}

// NewSchemaService creates a SchemaService over an open warehouse.
func NewSchemaService(w warehouse.Warehouse, opts SchemaServiceOptions, logger *zap.Logger) SchemaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultSchemaCacheTTL
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &schemaService{
		warehouse: w,
		logger:    logger.Named("schema"),
		ttl:       opts.CacheTTL,
		retryCfg:  opts.Retry,
		now:       opts.Now,
		cache:     make(map[string]cachedSchema),
	}
}

func (s *schemaService) ListDatasets(ctx context.Context) ([]string, error) {
	datasets, err := retry.DoWithResultIf(ctx, s.retryCfg, retry.IsRetryable, func() ([]string, error) {
		return s.warehouse.ListDatasets(ctx)
	})
	if err != nil {
		return nil, s.lookupFailure("", "", err)
	}
	return datasets, nil
}

func (s *schemaService) ListTables(ctx context.Context, dataset string) ([]string, error) {
	if err := checkIdentifiers(dataset, "", dataset); err != nil {
		return nil, s.lookupFailure(dataset, "", err)
	}
	tables, err := retry.DoWithResultIf(ctx, s.retryCfg, retry.IsRetryable, func() ([]string, error) {
		return s.warehouse.ListTables(ctx, dataset)
	})
	if err != nil {
		return nil, s.lookupFailure(dataset, "", err)
	}
	return tables, nil
}

func (s *schemaService) GetSchema(ctx context.Context, dataset, table string) ([]models.ColumnDescriptor, error) {
	if err := checkIdentifiers(dataset, table, dataset, table); err != nil {
		return nil, s.lookupFailure(dataset, table, err)
	}

	key := dataset + "." + table
	if columns, ok := s.cached(key); ok {
		metrics.ObserveSchemaCache(true)
		return columns, nil
	}
	metrics.ObserveSchemaCache(false)

	discovered, err := retry.DoWithResultIf(ctx, s.retryCfg, retry.IsRetryable, func() ([]warehouse.ColumnMetadata, error) {
		return s.warehouse.DiscoverColumns(ctx, dataset, table)
	})
	if err != nil {
		return nil, s.lookupFailure(dataset, table, err)
	}

	columns := make([]models.ColumnDescriptor, len(discovered))
	for i, c := range discovered {
		columns[i] = models.ColumnDescriptor{Name: c.ColumnName, Type: c.DataType}
	}

	s.mu.Lock()
	s.cache[key] = cachedSchema{columns: columns, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	s.logger.Debug("Discovered table schema",
		zap.String("table", key),
		zap.Int("columns", len(columns)))
	return cloneColumns(columns), nil
}

func (s *schemaService) Preview(ctx context.Context, dataset, table string, limit int) (*warehouse.QueryExecutionResult, error) {
	if err := checkIdentifiers(dataset, table, dataset, table); err != nil {
		return nil, s.lookupFailure(dataset, table, err)
	}
	result, err := warehouse.PreviewTable(ctx, s.warehouse, dataset, table, limit)
	if err != nil {
		return nil, fmt.Errorf("preview %s.%s: %s", dataset, table, logging.SanitizeError(err))
	}
	return result, nil
}

func (s *schemaService) Query(ctx context.Context, sqlQuery string, limit int) (*warehouse.QueryExecutionResult, error) {
	normalized, err := sql.NormalizeStatement(sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}
	result, err := s.warehouse.Query(ctx, normalized, limit)
	if err != nil {
		s.logger.Warn("Query failed",
			zap.String("sql", logging.SanitizeQuery(normalized)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("query failed: %s", logging.SanitizeError(err))
	}
	return result, nil
}

func (s *schemaService) cached(key string) ([]models.ColumnDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.cache, key)
		return nil, false
	}
	return cloneColumns(entry.columns), true
}

// lookupFailure normalizes err into a SchemaLookupError and records it.
func (s *schemaService) lookupFailure(dataset, table string, err error) error {
	var lookupErr *apperrors.SchemaLookupError
	if !errors.As(err, &lookupErr) {
		// adapters classify their own errors; anything else is network or context
		lookupErr = &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupTransient, Dataset: dataset, Table: table, Cause: err}
	}
	metrics.IncrementSchemaLookupFailure(string(lookupErr.Kind))
	s.logger.Info("Schema lookup failed",
		zap.String("dataset", dataset),
		zap.String("table", table),
		zap.String("kind", string(lookupErr.Kind)),
		zap.String("error", logging.SanitizeError(lookupErr.Cause)))
	return lookupErr
}

func checkIdentifiers(dataset, table string, names ...string) error {
	for _, name := range names {
		if !sql.IsValidIdentifier(name) {
			return &apperrors.SchemaLookupError{
				Kind:    apperrors.SchemaLookupInvalidIdentifier,
				Dataset: dataset,
				Table:   table,
				Cause:   fmt.Errorf("invalid identifier %q", name),
			}
		}
	}
	return nil
}

func cloneColumns(columns []models.ColumnDescriptor) []models.ColumnDescriptor {
	out := make([]models.ColumnDescriptor, len(columns))
	copy(out, columns)
	return out
}
