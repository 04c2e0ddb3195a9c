package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb/azuread" // registers the azuresql driver
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database, Synapse",
			Icon:        "mssql",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (warehouse.Warehouse, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return Open(cfg, logger)
		},
	})
}

// Open creates a database/sql backed warehouse for cfg.
func Open(cfg *Config, logger *zap.Logger) (*warehouse.SQLWarehouse, error) {
	db, err := sql.Open(cfg.DriverName(), cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open sql server connection: %s", logging.SanitizeError(err))
	}
	return warehouse.NewSQLWarehouse(db, Dialect{}, logger), nil
}
