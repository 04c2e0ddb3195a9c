package warehouse

import (
	"strings"

	"github.com/milkyway-analytics/milkyway/pkg/models"
)

var typeAliases = map[string]string{
	"DATE": models.ColumnTypeDate,

	"DATETIME":       models.ColumnTypeDatetime,
	"DATETIME2":      models.ColumnTypeDatetime,
	"SMALLDATETIME":  models.ColumnTypeDatetime,
	"DATETIMEOFFSET": models.ColumnTypeDatetime,

	"TIME":                   models.ColumnTypeTime,
	"TIMETZ":                 models.ColumnTypeTime,
	"TIME WITH TIME ZONE":    models.ColumnTypeTime,
	"TIME WITHOUT TIME ZONE": models.ColumnTypeTime,

	"INT": models.ColumnTypeInteger, "INT2": models.ColumnTypeInteger, "INT4": models.ColumnTypeInteger,
	"INT8": models.ColumnTypeInteger, "INTEGER": models.ColumnTypeInteger, "BIGINT": models.ColumnTypeInteger,
	"SMALLINT": models.ColumnTypeInteger, "TINYINT": models.ColumnTypeInteger, "HUGEINT": models.ColumnTypeInteger,
	"UBIGINT": models.ColumnTypeInteger, "UINTEGER": models.ColumnTypeInteger, "USMALLINT": models.ColumnTypeInteger,
	"UTINYINT": models.ColumnTypeInteger, "SERIAL": models.ColumnTypeInteger, "BIGSERIAL": models.ColumnTypeInteger,

	"FLOAT": models.ColumnTypeFloat, "FLOAT4": models.ColumnTypeFloat, "FLOAT8": models.ColumnTypeFloat,
	"REAL": models.ColumnTypeFloat, "DOUBLE": models.ColumnTypeFloat, "DOUBLE PRECISION": models.ColumnTypeFloat,

	"NUMERIC": models.ColumnTypeNumeric, "DECIMAL": models.ColumnTypeNumeric, "NUMBER": models.ColumnTypeNumeric,
	"MONEY": models.ColumnTypeNumeric, "SMALLMONEY": models.ColumnTypeNumeric,

	"BOOL": models.ColumnTypeBoolean, "BOOLEAN": models.ColumnTypeBoolean, "BIT": models.ColumnTypeBoolean,

	"TEXT": models.ColumnTypeString, "VARCHAR": models.ColumnTypeString, "CHAR": models.ColumnTypeString,
	"CHARACTER": models.ColumnTypeString, "CHARACTER VARYING": models.ColumnTypeString, "BPCHAR": models.ColumnTypeString,
	"NVARCHAR": models.ColumnTypeString, "NCHAR": models.ColumnTypeString, "NTEXT": models.ColumnTypeString,
	"STRING": models.ColumnTypeString, "UUID": models.ColumnTypeString, "UNIQUEIDENTIFIER": models.ColumnTypeString,
	"CITEXT": models.ColumnTypeString, "NAME": models.ColumnTypeString,

	"BYTEA": models.ColumnTypeBytes, "BLOB": models.ColumnTypeBytes, "BINARY": models.ColumnTypeBytes,
	"VARBINARY": models.ColumnTypeBytes, "IMAGE": models.ColumnTypeBytes,

	"JSON": models.ColumnTypeJSON, "JSONB": models.ColumnTypeJSON, "VARIANT": models.ColumnTypeJSON,
	"OBJECT": models.ColumnTypeJSON,
}

// NormalizeType maps a dialect type name (timestamptz, datetime2,
// TIMESTAMP_NTZ, varchar(255), ...) onto the upper-case column types the
// detector understands. Unknown types become OTHER.
func NormalizeType(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.Index(t, "("); i >= 0 {
		// varchar(255), numeric(10,2), timestamp(6) with time zone
		rest := ""
		if j := strings.Index(t, ")"); j > i {
			rest = t[j+1:]
		}
		t = strings.Join(strings.Fields(t[:i]+rest), " ")
	}
	if t == "" || strings.HasSuffix(t, "[]") || t == "ARRAY" {
		return models.ColumnTypeOther
	}

	// Every TIMESTAMP flavour across dialects: TIMESTAMPTZ, TIMESTAMP_NTZ,
	// TIMESTAMP WITH TIME ZONE, TIMESTAMP_S ...
	if strings.HasPrefix(t, "TIMESTAMP") {
		return models.ColumnTypeTimestamp
	}
	if normalized, ok := typeAliases[t]; ok {
		return normalized
	}
	return models.ColumnTypeOther
}
