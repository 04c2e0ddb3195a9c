package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
)

func init() {
	warehouse.Register(warehouse.AdapterRegistration{
		Info: warehouse.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase, Redshift-compatible endpoints",
			Icon:        "postgres",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (warehouse.Warehouse, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg, logger)
		},
	})
}
