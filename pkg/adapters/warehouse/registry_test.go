package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type stubWarehouse struct {
	*SQLWarehouse
	config map[string]any
}

func TestRegistryFactory(t *testing.T) {
	var received map[string]any
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "stub", DisplayName: "Stub"},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (Warehouse, error) {
			received = config
			return &stubWarehouse{SQLWarehouse: NewSQLWarehouse(nil, testDialect{}, logger), config: config}, nil
		},
	})

	assert.True(t, IsRegistered("stub"))
	assert.False(t, IsRegistered("bigquery"))

	factory := NewAdapterFactory(zaptest.NewLogger(t))
	w, err := factory.NewWarehouse(context.Background(), "stub", map[string]any{"host": "localhost"})
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "localhost", received["host"])

	found := false
	for _, info := range factory.ListTypes() {
		if info.Type == "stub" {
			found = true
			assert.Equal(t, "Stub", info.DisplayName)
		}
	}
	assert.True(t, found)
}

func TestRegistryFactory_UnknownType(t *testing.T) {
	factory := NewAdapterFactory(nil)
	_, err := factory.NewWarehouse(context.Background(), "bigquery", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not compiled in")
}
