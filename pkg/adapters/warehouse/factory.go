package warehouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AdapterFactory creates warehouses from the registry.
type AdapterFactory interface {
	// NewWarehouse opens a warehouse of the given type.
	NewWarehouse(ctx context.Context, whType string, config map[string]any) (Warehouse, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	logger *zap.Logger
}

// NewAdapterFactory returns a factory that uses the global registry.
func NewAdapterFactory(logger *zap.Logger) AdapterFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{logger: logger}
}

func (f *registryFactory) NewWarehouse(ctx context.Context, whType string, config map[string]any) (Warehouse, error) {
	factory := GetFactory(whType)
	if factory == nil {
		return nil, fmt.Errorf("unsupported warehouse type: %s (not compiled in)", whType)
	}
	return factory(ctx, config, f.logger.Named(whType))
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

var _ AdapterFactory = (*registryFactory)(nil)

// PreviewTable returns the first rows of dataset.table.
func PreviewTable(ctx context.Context, w QueryExecutor, dataset, table string, limit int) (*QueryExecutionResult, error) {
	ref := w.QuoteIdentifier(table)
	if dataset != "" {
		ref = w.QuoteIdentifier(dataset) + "." + ref
	}
	return w.Query(ctx, "SELECT * FROM "+ref, limit)
}
