package snowflake

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "snowflake",
			DisplayName: "Snowflake",
			Description: "Connect to a Snowflake account with a virtual warehouse",
			Icon:        "snowflake",
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

// Open creates a database/sql backed warehouse for cfg. The gosnowflake
// package registers the "snowflake" driver.
func Open(cfg *Config, logger *zap.Logger) (*warehouse.SQLWarehouse, error) {
	dsn := cfg.DSN()
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %s", logging.SanitizeError(err))
	}
	if logger != nil {
		logger.Debug("Opened snowflake connection", zap.String("dsn", logging.SanitizeConnectionString(dsn)))
	}
	return warehouse.NewSQLWarehouse(db, Dialect{}, logger), nil
}
