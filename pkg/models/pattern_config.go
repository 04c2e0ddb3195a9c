package models

import (
	"encoding/json"
	"fmt"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// dbt variable names. These must match the var() calls in the dbt models exactly.
const (
	VarActivityTable              = "activity_table"
	VarActivityCustomerID         = "activity_customer_id"
	VarActivityTimestamp          = "activity_timestamp"
	VarTimeGrain                  = "time_grain"
	VarFirstActivationTable       = "first_activation_table"
	VarFirstActivationCustomerID  = "first_activation_customer_id"
	VarFirstActivationTimestamp   = "first_activation_timestamp"
	VarDateSpineTable             = "date_spine_table"
	VarDateSpineColumn            = "date_spine_column"
	VarSourceTable                = "source_table"
	VarCustomerID                 = "customer_id"
	VarSnapshotTable              = "snapshot_table"
	VarFactTable                  = "fact_table"
	VarKeyColumn                  = "key_column"
	VarPeriodColumn               = "period_column"
	VarPrevPeriod                 = "prev_period"
	VarCurrPeriod                 = "curr_period"
	VarMetricType                 = "metric_type"
	VarMetricColumn               = "metric_column"
	VarTodayColName               = "today_col_name"
	VarCumulativeColName          = "cumulative_col_name"
	VarSourceDataset              = "source_dataset"
	VarEntityID                   = "entity_id"
	VarEventTimestamp             = "event_timestamp"
	VarEventType                  = "event_type"
	AliasDatasetName              = "dataset_name"
	AliasCustomerIDColumn         = "customer_id_column"
	AliasTimestampColumn          = "timestamp_column"
	DefaultTodayColName           = "today_value"
	DefaultCumulativeColName      = "cumulative_value"
)

// ResolvedVariables is the final payload handed to dbt via --vars. Only set
// keys are present so dbt's own defaults are never overridden with nulls.
type ResolvedVariables map[string]string

// JSON serializes the payload as a flat object with sorted keys.
func (v ResolvedVariables) JSON() (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(v))
	if err != nil {
		return "", fmt.Errorf("marshal variables: %w", err)
	}
	return string(b), nil
}

// PatternConfig is one variant of the per-pattern configuration union.
type PatternConfig interface {
	Pattern() Pattern
	// Validate checks required fields in declared order and returns a
	// *apperrors.MissingRequiredFieldError naming the first missing one.
	Validate() error
	// Variables renders the set fields under their dbt names.
	Variables() ResolvedVariables
}

type requiredField struct {
	name  string
	value string
}

func checkRequired(p Pattern, fields ...requiredField) error {
	for _, f := range fields {
		if f.value == "" {
			return &apperrors.MissingRequiredFieldError{Pattern: string(p), Field: f.name}
		}
	}
	return nil
}

func putIfSet(vars ResolvedVariables, key, value string) {
	if value != "" {
		vars[key] = value
	}
}

// ActivationSource is the optional first-activation table of growth accounting.
type ActivationSource struct {
	Table      string `json:"table"`
	CustomerID string `json:"customer_id"`
	Timestamp  string `json:"timestamp"`
}

// DateSpine is the optional calendar table of growth accounting.
type DateSpine struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// GrowthAccountingConfig configures the growth_accounting model.
// FirstActivation and DateSpine are all-or-nothing groups; nil means absent.
type GrowthAccountingConfig struct {
	ActivityTable      string            `json:"activity_table"`
	ActivityCustomerID string            `json:"activity_customer_id"`
	ActivityTimestamp  string            `json:"activity_timestamp"`
	TimeGrain          TimeGrain         `json:"time_grain"`
	FirstActivation    *ActivationSource `json:"first_activation,omitempty"`
	DateSpine          *DateSpine        `json:"date_spine,omitempty"`
}

func (c *GrowthAccountingConfig) Pattern() Pattern { return PatternGrowthAccounting }

func (c *GrowthAccountingConfig) Validate() error {
	if err := checkRequired(PatternGrowthAccounting,
		requiredField{VarActivityTable, c.ActivityTable},
		requiredField{VarActivityCustomerID, c.ActivityCustomerID},
		requiredField{VarActivityTimestamp, c.ActivityTimestamp},
	); err != nil {
		return err
	}
	if _, err := ParseTimeGrain(string(c.TimeGrain)); err != nil {
		return err
	}
	if a := c.FirstActivation; a != nil {
		if err := checkRequired(PatternGrowthAccounting,
			requiredField{VarFirstActivationTable, a.Table},
			requiredField{VarFirstActivationCustomerID, a.CustomerID},
			requiredField{VarFirstActivationTimestamp, a.Timestamp},
		); err != nil {
			return err
		}
	}
	if s := c.DateSpine; s != nil {
		if err := checkRequired(PatternGrowthAccounting,
			requiredField{VarDateSpineTable, s.Table},
			requiredField{VarDateSpineColumn, s.Column},
		); err != nil {
			return err
		}
	}
	return nil
}

func (c *GrowthAccountingConfig) Variables() ResolvedVariables {
	vars := ResolvedVariables{
		VarActivityTable:      c.ActivityTable,
		VarActivityCustomerID: c.ActivityCustomerID,
		VarActivityTimestamp:  c.ActivityTimestamp,
		VarTimeGrain:          string(c.TimeGrain),
	}
	if a := c.FirstActivation; a != nil {
		vars[VarFirstActivationTable] = a.Table
		vars[VarFirstActivationCustomerID] = a.CustomerID
		vars[VarFirstActivationTimestamp] = a.Timestamp
	}
	if s := c.DateSpine; s != nil {
		vars[VarDateSpineTable] = s.Table
		vars[VarDateSpineColumn] = s.Column
	}
	return vars
}

// RetentionConfig configures the retention model.
type RetentionConfig struct {
	SourceTable       string `json:"source_table"`
	CustomerID        string `json:"customer_id"`
	ActivityTimestamp string `json:"activity_timestamp"`
}

func (c *RetentionConfig) Pattern() Pattern { return PatternRetention }

func (c *RetentionConfig) Validate() error {
	return checkRequired(PatternRetention,
		requiredField{VarSourceTable, c.SourceTable},
		requiredField{VarCustomerID, c.CustomerID},
		requiredField{VarActivityTimestamp, c.ActivityTimestamp},
	)
}

func (c *RetentionConfig) Variables() ResolvedVariables {
	return ResolvedVariables{
		VarSourceTable:       c.SourceTable,
		VarCustomerID:        c.CustomerID,
		VarActivityTimestamp: c.ActivityTimestamp,
	}
}

// CumulativeSnapshotConfig configures the outer-join cumulative_snapshot model.
// MetricColumn is required only when MetricType is sum.
type CumulativeSnapshotConfig struct {
	SnapshotTable     string     `json:"snapshot_table"`
	FactTable         string     `json:"fact_table"`
	KeyColumn         string     `json:"key_column"`
	PeriodColumn      string     `json:"period_column"`
	PrevPeriod        string     `json:"prev_period"`
	CurrPeriod        string     `json:"curr_period"`
	MetricType        MetricType `json:"metric_type"`
	MetricColumn      string     `json:"metric_column,omitempty"`
	TodayColName      string     `json:"today_col_name,omitempty"`
	CumulativeColName string     `json:"cumulative_col_name,omitempty"`
}

func (c *CumulativeSnapshotConfig) Pattern() Pattern { return PatternCumulativeSnapshot }

func (c *CumulativeSnapshotConfig) Validate() error {
	if err := checkRequired(PatternCumulativeSnapshot,
		requiredField{VarSnapshotTable, c.SnapshotTable},
		requiredField{VarFactTable, c.FactTable},
		requiredField{VarKeyColumn, c.KeyColumn},
		requiredField{VarPeriodColumn, c.PeriodColumn},
		requiredField{VarPrevPeriod, c.PrevPeriod},
		requiredField{VarCurrPeriod, c.CurrPeriod},
	); err != nil {
		return err
	}
	metricType, err := ParseMetricType(string(c.MetricType))
	if err != nil {
		return err
	}
	if metricType == MetricTypeSum {
		return checkRequired(PatternCumulativeSnapshot, requiredField{VarMetricColumn, c.MetricColumn})
	}
	return nil
}

func (c *CumulativeSnapshotConfig) Variables() ResolvedVariables {
	vars := ResolvedVariables{
		VarSnapshotTable: c.SnapshotTable,
		VarFactTable:     c.FactTable,
		VarKeyColumn:     c.KeyColumn,
		VarPeriodColumn:  c.PeriodColumn,
		VarPrevPeriod:    c.PrevPeriod,
		VarCurrPeriod:    c.CurrPeriod,
		VarMetricType:    string(c.MetricType),
	}
	putIfSet(vars, VarMetricColumn, c.MetricColumn)
	putIfSet(vars, VarTodayColName, c.TodayColName)
	putIfSet(vars, VarCumulativeColName, c.CumulativeColName)
	return vars
}

// LegacyCumulativeConfig configures the older simple-schema cumulative model.
// Users supply the dataset as dataset_name; dbt expects source_dataset.
type LegacyCumulativeConfig struct {
	SourceDataset  string `json:"source_dataset"`
	EntityID       string `json:"entity_id"`
	EventTimestamp string `json:"event_timestamp"`
	EventType      string `json:"event_type,omitempty"`
}

func (c *LegacyCumulativeConfig) Pattern() Pattern { return PatternCumulative }

func (c *LegacyCumulativeConfig) Validate() error {
	return checkRequired(PatternCumulative,
		requiredField{VarSourceDataset, c.SourceDataset},
		requiredField{VarEntityID, c.EntityID},
		requiredField{VarEventTimestamp, c.EventTimestamp},
	)
}

func (c *LegacyCumulativeConfig) Variables() ResolvedVariables {
	vars := ResolvedVariables{
		VarSourceDataset:  c.SourceDataset,
		VarEntityID:       c.EntityID,
		VarEventTimestamp: c.EventTimestamp,
	}
	putIfSet(vars, VarEventType, c.EventType)
	return vars
}

var (
	_ PatternConfig = (*GrowthAccountingConfig)(nil)
	_ PatternConfig = (*RetentionConfig)(nil)
	_ PatternConfig = (*CumulativeSnapshotConfig)(nil)
	_ PatternConfig = (*LegacyCumulativeConfig)(nil)
)
