package cli

// Warehouse adapters register themselves in init.
import (
	_ "github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse/mssql"
	_ "github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse/postgres"
	_ "github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse/snowflake"
)
