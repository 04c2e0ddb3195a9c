//go:build duckdb || all_adapters

package cli

// DuckDB needs cgo, so it is only compiled in on request.
import _ "github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse/duckdb"
