package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/milkyway-analytics/milkyway/pkg/models"
)

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"timestamptz":                 models.ColumnTypeTimestamp,
		"timestamp with time zone":    models.ColumnTypeTimestamp,
		"timestamp(6) with time zone": models.ColumnTypeTimestamp,
		"TIMESTAMP_NTZ":               models.ColumnTypeTimestamp,
		"TIMESTAMP_LTZ(9)":            models.ColumnTypeTimestamp,
		"datetime2":                   models.ColumnTypeDatetime,
		"datetimeoffset":              models.ColumnTypeDatetime,
		"date":                        models.ColumnTypeDate,
		"time without time zone":      models.ColumnTypeTime,
		"varchar":                     models.ColumnTypeString,
		"character varying(255)":      models.ColumnTypeString,
		"nvarchar":                    models.ColumnTypeString,
		"uuid":                        models.ColumnTypeString,
		"int4":                        models.ColumnTypeInteger,
		"BIGINT":                      models.ColumnTypeInteger,
		"double precision":            models.ColumnTypeFloat,
		"NUMBER(38,0)":                models.ColumnTypeNumeric,
		"numeric(10,2)":               models.ColumnTypeNumeric,
		"bit":                         models.ColumnTypeBoolean,
		"boolean":                     models.ColumnTypeBoolean,
		"jsonb":                       models.ColumnTypeJSON,
		"VARIANT":                     models.ColumnTypeJSON,
		"bytea":                       models.ColumnTypeBytes,
		"integer[]":                   models.ColumnTypeOther,
		"geometry":                    models.ColumnTypeOther,
		"":                            models.ColumnTypeOther,
		"varchar(":                    models.ColumnTypeString,
	}

	for raw, expected := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, expected, NormalizeType(raw))
		})
	}
}
