package models

import "strings"

// Normalized column types. Warehouse adapters map dialect type names onto these.
const (
	ColumnTypeString    = "STRING"
	ColumnTypeInteger   = "INTEGER"
	ColumnTypeFloat     = "FLOAT"
	ColumnTypeNumeric   = "NUMERIC"
	ColumnTypeBoolean   = "BOOLEAN"
	ColumnTypeTimestamp = "TIMESTAMP"
	ColumnTypeDatetime  = "DATETIME"
	ColumnTypeDate      = "DATE"
	ColumnTypeTime      = "TIME"
	ColumnTypeBytes     = "BYTES"
	ColumnTypeJSON      = "JSON"
	ColumnTypeOther     = "OTHER"
)

// ColumnDescriptor is one column of a looked-up table, in declaration order.
type ColumnDescriptor struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsTemporal reports whether the column can serve as an activity timestamp.
func (c ColumnDescriptor) IsTemporal() bool {
	switch strings.ToUpper(c.Type) {
	case ColumnTypeTimestamp, ColumnTypeDatetime, ColumnTypeDate:
		return true
	}
	return false
}

// TableRef identifies a warehouse table as dataset.table.
type TableRef struct {
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// String returns dataset.table.
func (r TableRef) String() string {
	if r.Dataset == "" {
		return r.Table
	}
	return r.Dataset + "." + r.Table
}

// ParseTableRef splits "dataset.table". A bare name yields an empty dataset.
func ParseTableRef(s string) TableRef {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return TableRef{Dataset: s[:i], Table: s[i+1:]}
	}
	return TableRef{Table: s}
}

// DetectedColumns is the column auto-detector's verdict. A nil field means
// nothing matched and the user has to supply the value.
type DetectedColumns struct {
	CustomerID *string `json:"customer_id"`
	Timestamp  *string `json:"timestamp"`
}

// Complete reports whether both roles were detected.
func (d DetectedColumns) Complete() bool {
	return d.CustomerID != nil && d.Timestamp != nil
}
