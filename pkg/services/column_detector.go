package services

import (
	"strings"

	"github.com/milkyway-analytics/milkyway/pkg/models"
)

// customerIDRules are name substrings in priority order. Each rule is tried
// against every column before the next rule is considered, so a later
// column matching a higher rule beats an earlier column matching bare "id".
var customerIDRules = []string{
	"user_id",
	"customer_id",
	"account_id",
	"member_id",
	"uid",
	"cust_id",
	"id",
}

// timestampRules are name substrings in priority order. A match only counts
// when the column type is TIMESTAMP, DATETIME or DATE.
var timestampRules = []string{
	"event_time",
	"created_at",
	"timestamp",
	"event_timestamp",
	"activity_timestamp",
	"created",
	"date",
	"event_date",
	"activity_date",
	"time",
}

// DetectColumns guesses the customer-identifier and timestamp columns of a
// table from names and types alone. The result is stable for a given column
// order. Nil fields mean the user must choose.
func DetectColumns(columns []models.ColumnDescriptor) models.DetectedColumns {
	return models.DetectedColumns{
		CustomerID: detectCustomerID(columns),
		Timestamp:  detectTimestamp(columns),
	}
}

func detectCustomerID(columns []models.ColumnDescriptor) *string {
	for _, rule := range customerIDRules {
		for _, col := range columns {
			if strings.Contains(strings.ToLower(col.Name), rule) {
				name := col.Name
				return &name
			}
		}
	}
	return nil
}

func detectTimestamp(columns []models.ColumnDescriptor) *string {
	for _, rule := range timestampRules {
		for _, col := range columns {
			if col.IsTemporal() && strings.Contains(strings.ToLower(col.Name), rule) {
				name := col.Name
				return &name
			}
		}
	}

	// No name matched: take the first temporal column of any name.
	for _, col := range columns {
		if col.IsTemporal() {
			name := col.Name
			return &name
		}
	}
	return nil
}

// DetectedRawConfig maps detected columns onto the variable names of pattern p.
// Undetected roles are left out so they surface as missing required fields.
func DetectedRawConfig(p models.Pattern, ref models.TableRef, detected models.DetectedColumns) models.RawConfig {
	raw := models.RawConfig{}
	set := func(key string, value *string) {
		if value != nil {
			raw[key] = *value
		}
	}
	table := ref.String()

	switch p {
	case models.PatternGrowthAccounting:
		raw[models.VarActivityTable] = table
		set(models.VarActivityCustomerID, detected.CustomerID)
		set(models.VarActivityTimestamp, detected.Timestamp)
	case models.PatternRetention:
		raw[models.VarSourceTable] = table
		set(models.VarCustomerID, detected.CustomerID)
		set(models.VarActivityTimestamp, detected.Timestamp)
	case models.PatternCumulativeSnapshot:
		raw[models.VarFactTable] = table
		set(models.VarKeyColumn, detected.CustomerID)
	case models.PatternCumulative:
		if ref.Dataset != "" {
			raw[models.VarSourceDataset] = ref.Dataset
		}
		set(models.VarEntityID, detected.CustomerID)
		set(models.VarEventTimestamp, detected.Timestamp)
	}
	return raw
}
