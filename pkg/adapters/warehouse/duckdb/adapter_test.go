//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

func TestAdapter_InMemory(t *testing.T) {
	ctx := context.Background()
	w, err := Open(&Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.TestConnection(ctx))
	require.NoError(t, w.Exec(ctx, `CREATE SCHEMA sessions`))
	require.NoError(t, w.Exec(ctx, `CREATE TABLE sessions.user_activity (user_id VARCHAR, event_time TIMESTAMP, amount DECIMAL(10,2))`))
	require.NoError(t, w.Exec(ctx, `INSERT INTO sessions.user_activity VALUES ('u1', TIMESTAMP '2025-01-01 10:00:00', 9.99), ('u2', TIMESTAMP '2025-01-02 11:00:00', 5.00)`))

	datasets, err := w.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Contains(t, datasets, "sessions")

	tables, err := w.ListTables(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_activity"}, tables)

	columns, err := w.DiscoverColumns(ctx, "sessions", "user_activity")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, models.ColumnTypeString, columns[0].DataType)
	assert.Equal(t, models.ColumnTypeTimestamp, columns[1].DataType)
	assert.Equal(t, models.ColumnTypeNumeric, columns[2].DataType)

	result, err := w.Query(ctx, `SELECT user_id FROM sessions.user_activity ORDER BY user_id`, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "u1", result.Rows[0]["user_id"])

	_, err = w.DiscoverColumns(ctx, "sessions", "nope")
	assert.True(t, apperrors.IsSchemaLookupKind(err, apperrors.SchemaLookupNotFound))
}
