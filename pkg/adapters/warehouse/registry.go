package warehouse

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered adapter for UI discovery.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "mssql", "snowflake", "duckdb"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// FactoryFunc opens a warehouse from a generic config map.
type FactoryFunc func(ctx context.Context, config map[string]any, logger *zap.Logger) (Warehouse, error)

// AdapterRegistration contains info plus the factory for one adapter type.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory FactoryFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for an adapter type, or nil if not registered.
func GetFactory(whType string) FactoryFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[whType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(whType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[whType]
	return ok
}
