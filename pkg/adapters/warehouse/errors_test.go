package warehouse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

func TestClassifyByMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected apperrors.SchemaLookupKind
	}{
		{errors.New(`relation "sessions.nope" does not exist`), apperrors.SchemaLookupNotFound},
		{errors.New("Invalid object name 'dbo.nope'"), apperrors.SchemaLookupNotFound},
		{errors.New("Catalog Error: Table with name nope does not exist!"), apperrors.SchemaLookupNotFound},
		{errors.New("permission denied for table ledger"), apperrors.SchemaLookupPermissionDenied},
		{errors.New("Insufficient privileges to operate on schema"), apperrors.SchemaLookupPermissionDenied},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), apperrors.SchemaLookupTransient},
		{errors.New("broken pipe"), apperrors.SchemaLookupTransient},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyByMessage(tt.err))
		})
	}
}

func TestLookupError(t *testing.T) {
	assert.NoError(t, LookupError("a", "b", nil, nil))

	err := LookupError("a", "b", errors.New("access denied"), nil)
	assert.True(t, apperrors.IsSchemaLookupKind(err, apperrors.SchemaLookupPermissionDenied))

	// already-classified errors are kept
	existing := NotFound("a", "b")
	assert.Same(t, existing, LookupError("a", "b", existing, func(error) apperrors.SchemaLookupKind {
		return apperrors.SchemaLookupTransient
	}))
}
