//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2" // registers the duckdb driver
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
)

// Config points at a DuckDB database file. An empty path opens an in-memory database.
type Config struct {
	Path string
}

// FromMap creates a Config from a generic config map.
func FromMap(cfgMap map[string]any) *Config {
	path, _ := warehouse.StringOption(cfgMap, "path", "database")
	return &Config{Path: path}
}

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "duckdb",
			DisplayName: "DuckDB",
			Description: "Local analytical database file, handy for demos and tests",
			Icon:        "duckdb",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (warehouse.Warehouse, error) {
			return Open(FromMap(config), logger)
		},
	})
}

// Open opens the database file at cfg.Path.
func Open(cfg *Config, logger *zap.Logger) (*warehouse.SQLWarehouse, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", cfg.Path, err)
	}
	return warehouse.NewSQLWarehouse(db, Dialect{}, logger), nil
}
